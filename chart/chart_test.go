package chart

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func quietChart(opts ...func(*Config)) *Chart {
	cfg := DefaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return New(cfg, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func exampleRecords() []Record {
	return []Record{
		{Timestamp: 0, Fields: map[string]any{"A": 1, "B": 2}},
		{Timestamp: 1, Fields: map[string]any{"A": 3, "B": 1}},
	}
}

func TestRenderExample(t *testing.T) {
	c := quietChart()
	f, err := c.Render(exampleRecords(), []string{"A", "B"}, Domain{0, 3}, Domain{0, 1})
	require.NoError(t, err)

	require.Len(t, f.Lines, 2)
	require.Equal(t, []Point{{0, 1}, {1, 3}}, f.Series[0].Points)
	require.Equal(t, []Point{{0, 2}, {1, 1}}, f.Series[1].Points)

	w, h := c.Config().Width, c.Config().Height
	require.Equal(t, "A", f.Lines[0].Series)
	require.InDeltaSlice(t, []float64{0, w}, []float64{f.Lines[0].Points[0].X, f.Lines[0].Points[1].X}, 1e-9)
	require.InDelta(t, h-h/3, f.Lines[0].Points[0].Y, 1e-9)
	require.InDelta(t, 0, f.Lines[0].Points[1].Y, 1e-9)
	require.InDelta(t, h-2*h/3, f.Lines[1].Points[0].Y, 1e-9)
	require.Equal(t, 4.0, f.Lines[0].Width)

	require.Len(t, f.Markers, 4)
	for _, m := range f.Markers {
		require.Equal(t, 5.0, m.R)
		require.Equal(t, "white", m.Stroke)
	}

	require.Len(t, f.Labels, 2)
	require.Equal(t, "A", f.Labels[0].Text)
	require.InDelta(t, w, f.Labels[0].X, 1e-9)
	require.InDelta(t, 0, f.Labels[0].Y, 1e-9)
	require.Equal(t, 12.0, f.Labels[0].DX)
	require.Equal(t, 15.0, f.Labels[0].FontSize)
	require.Equal(t, "B", f.Labels[1].Text)
	require.InDelta(t, h-h/3, f.Labels[1].Y, 1e-9)

	require.Len(t, f.Legend, 2)
	require.Equal(t, LegendEntry{Series: "A", Text: "A", Color: Category20[0], X: 30, Y: 30, FontSize: 15}, f.Legend[0])
	require.Equal(t, LegendEntry{Series: "B", Text: "B", Color: Category20[1], X: 90, Y: 30, FontSize: 15}, f.Legend[1])

	require.Equal(t, OrientBottom, f.TimeAxis.Orient)
	require.Equal(t, h, f.TimeAxis.Y)
	require.Equal(t, OrientLeft, f.ValueAxis.Orient)
	require.NotEmpty(t, f.TimeAxis.Ticks)
	require.NotEmpty(t, f.ValueAxis.Ticks)
}

func TestRenderPolylineShape(t *testing.T) {
	names := []string{"toe", "flat", "normal"}
	var records []Record
	for i := 0; i < 7; i++ {
		records = append(records, Record{
			Timestamp: float64(20200101 + i),
			Fields:    map[string]any{"toe": i, "flat": 2 * i, "normal": "3.5"},
		})
	}
	f, err := quietChart().Render(records, names, Domain{0, 20}, Domain{20200101, 20200107})
	require.NoError(t, err)
	require.Len(t, f.Lines, len(names))
	for i, l := range f.Lines {
		require.Equal(t, names[i], l.Series)
		require.Len(t, l.Points, len(records))
		for j := 1; j < len(l.Points); j++ {
			require.Greater(t, l.Points[j].X, l.Points[j-1].X, "vertices follow record order")
		}
	}
	require.Len(t, f.Markers, len(names)*len(records))
}

func TestColorIsSharedBySeriesElements(t *testing.T) {
	f, err := quietChart().Render(exampleRecords(), []string{"A", "B"}, Domain{0, 3}, Domain{0, 1})
	require.NoError(t, err)
	for i, name := range []string{"A", "B"} {
		color := Category20[i]
		for _, l := range f.Lines {
			if l.Series == name {
				require.Equal(t, color, l.Color)
			}
		}
		for _, m := range f.Markers {
			if m.Series == name {
				require.Equal(t, color, m.Color)
			}
		}
		for _, l := range f.Labels {
			if l.Series == name {
				require.Equal(t, color, l.Color)
			}
		}
		require.Equal(t, color, f.Legend[i].Color)
	}

	// the same position yields the same color on another render
	g, err := quietChart().Render(exampleRecords(), []string{"B", "A"}, Domain{0, 3}, Domain{0, 1})
	require.NoError(t, err)
	require.Equal(t, Category20[0], g.Legend[0].Color)
	require.Equal(t, "B", g.Legend[0].Series)
}

func TestDomainSpanScalesSpread(t *testing.T) {
	records := exampleRecords()
	f1, err := quietChart().Render(records, []string{"A"}, Domain{0, 3}, Domain{0, 1})
	require.NoError(t, err)
	f2, err := quietChart().Render(records, []string{"A"}, Domain{0, 6}, Domain{0, 2})
	require.NoError(t, err)

	spread := func(f *Frame) (float64, float64) {
		p := f.Lines[0].Points
		return p[1].X - p[0].X, p[0].Y - p[1].Y
	}
	dx1, dy1 := spread(f1)
	dx2, dy2 := spread(f2)
	require.InDelta(t, dx1/2, dx2, 1e-9)
	require.InDelta(t, dy1/2, dy2, 1e-9)
}

func TestOutOfDomainExtrapolates(t *testing.T) {
	records := []Record{{Timestamp: 2, Fields: map[string]any{"A": -3}}}
	c := quietChart()
	f, err := c.Render(records, []string{"A"}, Domain{0, 3}, Domain{0, 1})
	require.NoError(t, err)
	require.InDelta(t, 2*c.Config().Width, f.Markers[0].X, 1e-9)
	require.InDelta(t, 2*c.Config().Height, f.Markers[0].Y, 1e-9)
}

func TestToggleSeries(t *testing.T) {
	c := quietChart()
	_, err := c.Render(exampleRecords(), []string{"A", "B"}, Domain{0, 3}, Domain{0, 1})
	require.NoError(t, err)

	require.Equal(t, 1.0, c.Opacity("A"))
	op, err := c.ToggleSeries("A")
	require.NoError(t, err)
	require.Equal(t, 0.0, op)
	require.Equal(t, 0.0, c.Opacity("A"))
	require.Equal(t, 1.0, c.Opacity("B"))
	require.Equal(t, []string{"A"}, c.Hidden())

	op, err = c.ToggleSeries("A")
	require.NoError(t, err)
	require.Equal(t, 1.0, op)
	require.Equal(t, 1.0, c.Opacity("A"))
	require.Empty(t, c.Hidden())

	_, err = c.ToggleSeries("C")
	require.ErrorIs(t, err, ErrUnknownSeries)
}

func TestSetHiddenIgnoresUnknown(t *testing.T) {
	c := quietChart()
	_, err := c.Render(exampleRecords(), []string{"A", "B"}, Domain{0, 3}, Domain{0, 1})
	require.NoError(t, err)
	c.SetHidden([]string{"B", "Z"})
	require.Equal(t, []string{"B"}, c.Hidden())
}

func TestRenderEmptyRecords(t *testing.T) {
	f, err := quietChart().Render(nil, []string{"A", "B"}, Domain{0, 3}, Domain{0, 1})
	require.NoError(t, err)
	require.Empty(t, f.Lines)
	require.Empty(t, f.Markers)
	require.Empty(t, f.Labels)
	require.Len(t, f.Legend, 2)
	require.Zero(t, f.Elements("A"))
	require.NotEmpty(t, f.TimeAxis.Ticks)
	require.Equal(t, "0.0", f.TimeAxis.Ticks[0].Label)
	require.Equal(t, "1.0", f.TimeAxis.Ticks[len(f.TimeAxis.Ticks)-1].Label)
}

func TestRenderFieldErrors(t *testing.T) {
	records := []Record{
		{Timestamp: 0, Fields: map[string]any{"A": 1}},
		{Timestamp: 1, Fields: map[string]any{"A": "n/a"}},
		{Timestamp: 2, Fields: map[string]any{"B": 4}},
	}
	tests := []struct {
		name    string
		series  []string
		policy  MissingPolicy
		wantErr error
		points  int
	}{
		{name: "not numeric fails", series: []string{"A"}, policy: MissingFail, wantErr: ErrNotNumeric},
		{name: "missing fails", series: []string{"B"}, policy: MissingFail, wantErr: ErrMissingField},
		{name: "not numeric skipped", series: []string{"A"}, policy: MissingSkip, points: 1},
		{name: "missing skipped", series: []string{"B"}, policy: MissingSkip, points: 1},
		{name: "duplicate", series: []string{"A", "A"}, policy: MissingSkip, wantErr: ErrDuplicateSeries},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := quietChart(func(cfg *Config) { cfg.Missing = tt.policy })
			f, err := c.Render(records, tt.series, Domain{0, 5}, Domain{0, 2})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Empty(t, c.Frames(), "failed render leaves no frame")
				return
			}
			require.NoError(t, err)
			require.Len(t, f.Series[0].Points, tt.points)
		})
	}

	_, err := quietChart().Render(records, []string{"A"}, Domain{0, 5}, Domain{0, 2})
	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, 1, fe.Row)
	require.Equal(t, "A", fe.Field)
}

func TestRenderInvalidDomain(t *testing.T) {
	nan := Domain{Min: 0, Max: math.NaN()}
	_, err := quietChart().Render(exampleRecords(), []string{"A"}, nan, Domain{0, 1})
	require.ErrorIs(t, err, ErrInvalidDomain)
}

func TestDegenerateDomainCentersPoints(t *testing.T) {
	c := quietChart()
	f, err := c.Render(exampleRecords(), []string{"A"}, Domain{3, 3}, Domain{0, 1})
	require.NoError(t, err)
	for _, p := range f.Lines[0].Points {
		require.Equal(t, c.Config().Height/2, p.Y)
	}
}

func TestRenderAccumulatesUntilReset(t *testing.T) {
	c := quietChart()
	for i := 0; i < 3; i++ {
		f, err := c.Render(exampleRecords(), []string{"A"}, Domain{0, 3}, Domain{0, 1})
		require.NoError(t, err)
		require.Equal(t, i, f.Seq)
	}
	require.Len(t, c.Frames(), 3)
	_, err := c.ToggleSeries("A")
	require.NoError(t, err)

	c.Reset()
	require.Empty(t, c.Frames())
	require.Empty(t, c.Hidden())
	require.Empty(t, c.SeriesNames())
}
