package memory

import (
	"context"
	"testing"

	"github.com/OutOfBedlam/trendline/dataset"
	"github.com/OutOfBedlam/trendline/store/storetest"
	"github.com/stretchr/testify/require"
)

func TestContract(t *testing.T) {
	storetest.RunDatasetContract(t, New())
	storetest.RunVisibilityContract(t, New())
}

func TestListSorted(t *testing.T) {
	ctx := context.Background()
	s := New()
	tbl := dataset.Table{Columns: []string{"timestamp", "a"}, Rows: []dataset.Row{{"timestamp": 1, "a": 2}}}
	require.NoError(t, s.Save(ctx, "b", tbl))
	require.NoError(t, s.Save(ctx, "a", tbl))

	got, err := s.Load(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, tbl, got)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, []string{list[0].Name, list[1].Name})
	require.Equal(t, 1, list[0].Rows)
}
