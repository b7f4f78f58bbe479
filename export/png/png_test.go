package png

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/OutOfBedlam/trendline/chart"
	"github.com/stretchr/testify/require"
)

func newChart(t *testing.T) *chart.Chart {
	t.Helper()
	c := chart.New(chart.DefaultConfig(), chart.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	records := []chart.Record{
		{Timestamp: 20200101, Fields: map[string]any{"toe": 1, "flat": 2}},
		{Timestamp: 20200102, Fields: map[string]any{"toe": 3, "flat": 1}},
		{Timestamp: 20200103, Fields: map[string]any{"toe": 2, "flat": 2}},
	}
	_, err := c.Render(records, []string{"toe", "flat"}, chart.Domain{Min: 0, Max: 3}, chart.Domain{Min: 20200101, Max: 20200103})
	require.NoError(t, err)
	return c
}

func TestPNG(t *testing.T) {
	out := &bytes.Buffer{}
	require.NoError(t, NewCanvas().Export(out, newChart(t)))
	require.True(t, bytes.HasPrefix(out.Bytes(), []byte("\x89PNG\r\n\x1a\n")))
}

func TestPNGHiddenSeries(t *testing.T) {
	c := newChart(t)
	_, err := c.ToggleSeries("toe")
	require.NoError(t, err)
	require.NoError(t, NewCanvas().Export(io.Discard, c))

	_, err = c.ToggleSeries("flat")
	require.NoError(t, err)
	out := &bytes.Buffer{}
	require.NoError(t, NewCanvas().Export(out, c))
	require.True(t, bytes.HasPrefix(out.Bytes(), []byte("\x89PNG\r\n\x1a\n")))

	c.Reset()
	require.ErrorIs(t, NewCanvas().Export(io.Discard, c), ErrNoFrames)
}

func TestPNGNoRecords(t *testing.T) {
	c := chart.New(chart.DefaultConfig(), chart.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	_, err := c.Render(nil, []string{"toe"}, chart.Domain{Min: 0, Max: 1}, chart.Domain{Min: 0, Max: 1})
	require.NoError(t, err)
	out := &bytes.Buffer{}
	require.NoError(t, NewCanvas().Export(out, c))
	require.True(t, bytes.HasPrefix(out.Bytes(), []byte("\x89PNG")))
}

func TestDomainHelpers(t *testing.T) {
	d := union(chart.Domain{Min: 0, Max: 1}, chart.Domain{Min: 5, Max: -2})
	require.Equal(t, chart.Domain{Min: -2, Max: 5}, d)

	r := rangeOf(chart.Domain{Min: 4, Max: 4})
	require.Equal(t, 3.5, r.Min)
	require.Equal(t, 4.5, r.Max)
	require.NotEmpty(t, ticksOf(chart.Domain{Min: 4, Max: 4}, 10))
}
