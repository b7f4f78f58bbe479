// Package memory keeps datasets and visibility in process memory.
// Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/OutOfBedlam/trendline/dataset"
	"github.com/OutOfBedlam/trendline/store"
)

var (
	_ store.DatasetStore    = (*Store)(nil)
	_ store.VisibilityStore = (*Store)(nil)
)

type entry struct {
	table   dataset.Table
	created time.Time
}

type Store struct {
	mu       sync.RWMutex
	datasets map[string]entry
	hidden   map[string][]string
}

func New() *Store {
	return &Store{
		datasets: make(map[string]entry),
		hidden:   make(map[string][]string),
	}
}

func (s *Store) Save(_ context.Context, name string, tbl dataset.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasets[name] = entry{
		table: dataset.Table{
			Columns: slices.Clone(tbl.Columns),
			Rows:    slices.Clone(tbl.Rows),
		},
		created: time.Now(),
	}
	return nil
}

func (s *Store) Load(_ context.Context, name string) (dataset.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.datasets[name]
	if !ok {
		return dataset.Table{}, fmt.Errorf("dataset %q: %w", name, store.ErrNotFound)
	}
	return e.table, nil
}

func (s *Store) List(_ context.Context) ([]store.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make([]store.Dataset, 0, len(s.datasets))
	for name, e := range s.datasets {
		ret = append(ret, store.Dataset{
			Name:    name,
			Created: e.created,
			Rows:    len(e.table.Rows),
			Columns: e.table.Columns,
		})
	}
	slices.SortFunc(ret, func(a, b store.Dataset) int {
		if a.Name < b.Name {
			return -1
		} else if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return ret, nil
}

func (s *Store) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.datasets[name]; !ok {
		return fmt.Errorf("dataset %q: %w", name, store.ErrNotFound)
	}
	delete(s.datasets, name)
	return nil
}

func (s *Store) Hidden(_ context.Context, chartID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.hidden[chartID]), nil
}

func (s *Store) SetHidden(_ context.Context, chartID string, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(names) == 0 {
		delete(s.hidden, chartID)
		return nil
	}
	names = slices.Clone(names)
	slices.Sort(names)
	s.hidden[chartID] = slices.Compact(names)
	return nil
}

func (s *Store) Toggle(_ context.Context, chartID, series string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := s.hidden[chartID]
	i, found := slices.BinarySearch(names, series)
	if !found {
		s.hidden[chartID] = slices.Insert(slices.Clone(names), i, series)
		return true, nil
	}
	names = slices.Delete(slices.Clone(names), i, i+1)
	if len(names) == 0 {
		delete(s.hidden, chartID)
	} else {
		s.hidden[chartID] = names
	}
	return false, nil
}

func (s *Store) Clear(_ context.Context, chartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hidden, chartID)
	return nil
}
