package chart

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

type Margin struct {
	Top    float64 `toml:"top"`
	Right  float64 `toml:"right"`
	Bottom float64 `toml:"bottom"`
	Left   float64 `toml:"left"`
}

// Config is the fixed geometry and styling of a chart.
// Width and Height are the plot area, margins excluded.
type Config struct {
	Width        float64       `toml:"width"`
	Height       float64       `toml:"height"`
	Margin       Margin        `toml:"margin"`
	StrokeWidth  float64       `toml:"stroke_width"`
	MarkerRadius float64       `toml:"marker_radius"`
	MarkerStroke string        `toml:"marker_stroke"`
	LabelOffset  float64       `toml:"label_offset"`
	FontSize     float64       `toml:"font_size"`
	LegendX      float64       `toml:"legend_x"`
	LegendY      float64       `toml:"legend_y"`
	LegendStep   float64       `toml:"legend_step"`
	Ticks        int           `toml:"ticks"`
	Palette      Palette       `toml:"palette"`
	Missing      MissingPolicy `toml:"missing"`
}

func DefaultConfig() Config {
	return Config{
		Width:        460 - 30 - 100,
		Height:       400 - 10 - 30,
		Margin:       Margin{Top: 10, Right: 100, Bottom: 30, Left: 30},
		StrokeWidth:  4,
		MarkerRadius: 5,
		MarkerStroke: "white",
		LabelOffset:  12,
		FontSize:     15,
		LegendX:      30,
		LegendY:      30,
		LegendStep:   60,
		Ticks:        10,
		Palette:      Category20,
		Missing:      MissingFail,
	}
}

// OuterWidth is the width of the whole drawing including margins.
func (c Config) OuterWidth() float64 {
	return c.Width + c.Margin.Left + c.Margin.Right
}

func (c Config) OuterHeight() float64 {
	return c.Height + c.Margin.Top + c.Margin.Bottom
}

// Chart is the drawing surface. Renders accumulate as frames until Reset.
// Visibility of series is shared by every frame, the way a legend click
// affects every element of the series class.
type Chart struct {
	mu     sync.Mutex
	cfg    Config
	logger *slog.Logger
	frames []*Frame
	hidden map[string]bool
}

type Option func(*Chart)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Chart) {
		c.logger = logger
	}
}

func New(cfg Config, opts ...Option) *Chart {
	ret := &Chart{
		cfg:    cfg,
		logger: slog.Default(),
		hidden: make(map[string]bool),
	}
	for _, o := range opts {
		o(ret)
	}
	return ret
}

func (c *Chart) Config() Config {
	return c.cfg
}

// Render draws records as one line per name in seriesNames and appends
// the resulting frame to the chart.
func (c *Chart) Render(records []Record, seriesNames []string, valueDomain, timeDomain Domain) (*Frame, error) {
	if err := timeDomain.Validate(); err != nil {
		return nil, fmt.Errorf("time axis: %w", err)
	}
	if err := valueDomain.Validate(); err != nil {
		return nil, fmt.Errorf("value axis: %w", err)
	}
	series, err := Derive(records, seriesNames, c.cfg.Palette, c.cfg.Missing, c.logger)
	if err != nil {
		return nil, err
	}
	if timeDomain.Span() == 0 || valueDomain.Span() == 0 {
		c.logger.Warn("Degenerate domain", "time", timeDomain.String(), "value", valueDomain.String())
	}

	cfg := c.cfg
	x := NewLinear(timeDomain, 0, cfg.Width)
	y := NewLinear(valueDomain, cfg.Height, 0)

	f := &Frame{
		TimeScale:  x,
		ValueScale: y,
		TimeAxis:   axis(OrientBottom, 0, cfg.Height, x, cfg.Ticks),
		ValueAxis:  axis(OrientLeft, 0, 0, y, cfg.Ticks),
		Series:     series,
	}

	for _, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		line := Line{Series: s.Name, Color: s.Color, Width: cfg.StrokeWidth, Points: make([]XY, len(s.Points))}
		for i, p := range s.Points {
			line.Points[i] = XY{X: x.Apply(p.Time), Y: y.Apply(p.Value)}
		}
		f.Lines = append(f.Lines, line)
	}

	for _, s := range series {
		for _, p := range s.Points {
			f.Markers = append(f.Markers, Marker{
				Series: s.Name,
				Color:  s.Color,
				Stroke: cfg.MarkerStroke,
				X:      x.Apply(p.Time),
				Y:      y.Apply(p.Value),
				R:      cfg.MarkerRadius,
			})
		}
	}

	for _, s := range series {
		last, ok := s.Last()
		if !ok {
			continue
		}
		f.Labels = append(f.Labels, Label{
			Series:   s.Name,
			Text:     s.Name,
			Color:    s.Color,
			X:        x.Apply(last.Time),
			Y:        y.Apply(last.Value),
			DX:       cfg.LabelOffset,
			FontSize: cfg.FontSize,
		})
	}

	for i, s := range series {
		f.Legend = append(f.Legend, LegendEntry{
			Series:   s.Name,
			Text:     s.Name,
			Color:    s.Color,
			X:        cfg.LegendX + float64(i)*cfg.LegendStep,
			Y:        cfg.LegendY,
			FontSize: cfg.FontSize,
		})
	}

	c.mu.Lock()
	f.Seq = len(c.frames)
	c.frames = append(c.frames, f)
	c.mu.Unlock()

	c.logger.Info("Plotted series", "count", len(series), "records", len(records), "frame", f.Seq)
	return f, nil
}

func axis(orient Orient, tx, ty float64, scale Linear, count int) Axis {
	ticks := scale.Ticks(count)
	ret := Axis{Orient: orient, X: tx, Y: ty, Scale: scale, Ticks: make([]AxisTick, len(ticks))}
	for i, t := range ticks {
		ret.Ticks[i] = AxisTick{Pos: scale.Apply(t.Value), Label: t.Label}
	}
	return ret
}

// Frames returns the rendered frames in drawing order.
func (c *Chart) Frames() []*Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.frames)
}

// Reset removes every frame and makes all series visible again.
func (c *Chart) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
	c.hidden = make(map[string]bool)
}

// SeriesNames returns the distinct series names of all frames in first-drawn order.
func (c *Chart) SeriesNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seriesNames()
}

func (c *Chart) seriesNames() []string {
	var ret []string
	for _, f := range c.frames {
		for _, s := range f.Series {
			if !slices.Contains(ret, s.Name) {
				ret = append(ret, s.Name)
			}
		}
	}
	return ret
}

// ToggleSeries flips the series between fully visible and fully
// transparent, and returns the new opacity.
func (c *Chart) ToggleSeries(name string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !slices.Contains(c.seriesNames(), name) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSeries, name)
	}
	if c.hidden[name] {
		delete(c.hidden, name)
		c.logger.Debug("Show series", "series", name)
		return 1, nil
	}
	c.hidden[name] = true
	c.logger.Debug("Hide series", "series", name)
	return 0, nil
}

func (c *Chart) Opacity(name string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hidden[name] {
		return 0
	}
	return 1
}

// Hidden returns the hidden series names, sorted.
func (c *Chart) Hidden() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ret := make([]string, 0, len(c.hidden))
	for k := range c.hidden {
		ret = append(ret, k)
	}
	slices.Sort(ret)
	return ret
}

// SetHidden replaces the visibility state. Names that no frame draws are ignored.
func (c *Chart) SetHidden(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	known := c.seriesNames()
	c.hidden = make(map[string]bool, len(names))
	for _, n := range names {
		if slices.Contains(known, n) {
			c.hidden[n] = true
		}
	}
}
