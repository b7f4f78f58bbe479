// Package storetest holds the behavior every store implementation shares.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/OutOfBedlam/trendline/dataset"
	"github.com/OutOfBedlam/trendline/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func RunVisibilityContract(t *testing.T, s store.VisibilityStore) {
	ctx := context.Background()

	t.Run("Empty", func(t *testing.T) {
		hidden, err := s.Hidden(ctx, "contract-empty")
		require.NoError(t, err)
		assert.Empty(t, hidden)
	})

	t.Run("Set and Get", func(t *testing.T) {
		require.NoError(t, s.SetHidden(ctx, "contract", []string{"toe", "flat", "toe"}))
		hidden, err := s.Hidden(ctx, "contract")
		require.NoError(t, err)
		assert.Equal(t, []string{"flat", "toe"}, hidden)

		other, err := s.Hidden(ctx, "contract-other")
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("Replace", func(t *testing.T) {
		require.NoError(t, s.SetHidden(ctx, "contract", []string{"normal"}))
		hidden, err := s.Hidden(ctx, "contract")
		require.NoError(t, err)
		assert.Equal(t, []string{"normal"}, hidden)

		require.NoError(t, s.SetHidden(ctx, "contract", nil))
		hidden, err = s.Hidden(ctx, "contract")
		require.NoError(t, err)
		assert.Empty(t, hidden)
	})

	t.Run("Toggle", func(t *testing.T) {
		require.NoError(t, s.SetHidden(ctx, "contract-toggle", []string{"toe"}))
		hidden, err := s.Toggle(ctx, "contract-toggle", "flat")
		require.NoError(t, err)
		assert.True(t, hidden)
		hidden, err = s.Toggle(ctx, "contract-toggle", "toe")
		require.NoError(t, err)
		assert.False(t, hidden)
		names, err := s.Hidden(ctx, "contract-toggle")
		require.NoError(t, err)
		assert.Equal(t, []string{"flat"}, names)

		hidden, err = s.Toggle(ctx, "contract-toggle", "flat")
		require.NoError(t, err)
		assert.False(t, hidden)
		names, err = s.Hidden(ctx, "contract-toggle")
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("Concurrent Toggle", func(t *testing.T) {
		const n = 50
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if _, err := s.Toggle(ctx, "contract-race", fmt.Sprintf("s%02d", i)); err != nil {
					errs <- err
				}
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
		names, err := s.Hidden(ctx, "contract-race")
		require.NoError(t, err)
		assert.Len(t, names, n)
		require.NoError(t, s.Clear(ctx, "contract-race"))
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, s.SetHidden(ctx, "contract", []string{"toe"}))
		require.NoError(t, s.Clear(ctx, "contract"))
		hidden, err := s.Hidden(ctx, "contract")
		require.NoError(t, err)
		assert.Empty(t, hidden)
		require.NoError(t, s.Clear(ctx, "contract"), "clearing twice is fine")
	})
}

func RunDatasetContract(t *testing.T, s store.DatasetStore) {
	ctx := context.Background()
	tbl := dataset.Table{
		Columns: []string{"timestamp", "toe"},
		Rows: []dataset.Row{
			{"timestamp": "2020-01-01", "toe": 1},
			{"timestamp": "2020-01-02", "toe": 2},
		},
	}

	t.Run("Save and Load", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "contract", tbl))
		got, err := s.Load(ctx, "contract")
		require.NoError(t, err)
		assert.Equal(t, tbl.Columns, got.Columns)
		require.Len(t, got.Rows, 2)
		assert.Equal(t, "2020-01-02", got.Rows[1]["timestamp"])

		records, err := dataset.ToRecords(got.Rows, dataset.Options{})
		require.NoError(t, err)
		v, err := records[1].Float("toe")
		require.NoError(t, err)
		assert.Equal(t, 2.0, v)
	})

	t.Run("List", func(t *testing.T) {
		list, err := s.List(ctx)
		require.NoError(t, err)
		var found bool
		for _, ds := range list {
			if ds.Name == "contract" {
				found = true
				assert.Equal(t, 2, ds.Rows)
			}
		}
		assert.True(t, found)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := s.Load(ctx, "contract-missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "contract"))
		_, err := s.Load(ctx, "contract")
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, "contract"), store.ErrNotFound)
	})
}
