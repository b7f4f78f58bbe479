// Package store defines where datasets and legend visibility live
// between requests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/OutOfBedlam/trendline/dataset"
)

var ErrNotFound = errors.New("not found")

// Dataset describes a stored table.
type Dataset struct {
	Name    string    `json:"name"`
	Created time.Time `json:"created"`
	Rows    int       `json:"rows"`
	Columns []string  `json:"columns"`
}

type DatasetStore interface {
	// Save replaces the dataset called name.
	Save(ctx context.Context, name string, tbl dataset.Table) error
	Load(ctx context.Context, name string) (dataset.Table, error)
	List(ctx context.Context) ([]Dataset, error)
	Delete(ctx context.Context, name string) error
}

// VisibilityStore keeps the hidden series of each chart.
type VisibilityStore interface {
	Hidden(ctx context.Context, chartID string) ([]string, error)
	SetHidden(ctx context.Context, chartID string, names []string) error
	// Toggle hides the series when it is visible and shows it otherwise,
	// in one step, and reports whether it is hidden now.
	Toggle(ctx context.Context, chartID, series string) (hidden bool, err error)
	Clear(ctx context.Context, chartID string) error
}
