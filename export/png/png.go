// Package png rasterizes chart frames with go-chart.
package png

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/OutOfBedlam/trendline/chart"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var ErrNoFrames = errors.New("chart has no frames")

type Canvas struct {
	Title string
	// Width and Height default to the outer size of the chart.
	Width  int
	Height int
	Legend bool
}

func NewCanvas() *Canvas {
	return &Canvas{Legend: true}
}

// Export draws every frame of ch into one PNG. Hidden series are left
// out, with every series hidden only the axes are drawn. A series drawn by more than one frame is suffixed with the frame
// number after its first appearance.
func (c Canvas) Export(w io.Writer, ch *chart.Chart) error {
	frames := ch.Frames()
	cfg := ch.Config()

	var (
		series  []gochart.Series
		seen    = map[string]bool{}
		timeDom = chart.Domain{Min: math.Inf(1), Max: math.Inf(-1)}
		valDom  = chart.Domain{Min: math.Inf(1), Max: math.Inf(-1)}
	)
	for _, f := range frames {
		timeDom = union(timeDom, f.TimeScale.Domain)
		valDom = union(valDom, f.ValueScale.Domain)
		for _, s := range f.Series {
			if len(s.Points) == 0 || ch.Opacity(s.Name) == 0 {
				continue
			}
			name := s.Name
			if seen[name] {
				name = fmt.Sprintf("%s #%d", s.Name, f.Seq)
			}
			seen[s.Name] = true
			color := drawing.ParseColor(s.Color)
			cs := gochart.ContinuousSeries{
				Name: name,
				Style: gochart.Style{
					StrokeColor: color,
					StrokeWidth: cfg.StrokeWidth,
					DotColor:    color,
					DotWidth:    cfg.MarkerRadius,
				},
				XValues: make([]float64, len(s.Points)),
				YValues: make([]float64, len(s.Points)),
			}
			for i, p := range s.Points {
				cs.XValues[i] = p.Time
				cs.YValues[i] = p.Value
			}
			series = append(series, cs)
		}
	}
	if len(frames) == 0 {
		return ErrNoFrames
	}
	legend := c.Legend && len(series) > 0
	if len(series) == 0 {
		// go-chart draws nothing without a visible series, a transparent
		// diagonal across the domains keeps the axes.
		t, v := widen(timeDom), widen(valDom)
		series = append(series, gochart.ContinuousSeries{
			Style:   gochart.Style{StrokeColor: drawing.ColorTransparent, StrokeWidth: 1},
			XValues: []float64{t.Min, t.Max},
			YValues: []float64{v.Min, v.Max},
		})
	}

	width, height := c.Width, c.Height
	if width <= 0 {
		width = int(cfg.OuterWidth())
	}
	if height <= 0 {
		height = int(cfg.OuterHeight())
	}
	graph := gochart.Chart{
		Title:  c.Title,
		Width:  width,
		Height: height,
		Background: gochart.Style{Padding: gochart.Box{
			Top:    int(cfg.Margin.Top),
			Left:   int(cfg.Margin.Left),
			Right:  int(cfg.Margin.Right),
			Bottom: int(cfg.Margin.Bottom),
		}},
		XAxis:  gochart.XAxis{Range: rangeOf(timeDom), Ticks: ticksOf(timeDom, cfg.Ticks)},
		YAxis:  gochart.YAxis{Range: rangeOf(valDom), Ticks: ticksOf(valDom, cfg.Ticks)},
		Series: series,
	}
	if legend {
		graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}
	}
	return graph.Render(gochart.PNG, w)
}

func union(a, b chart.Domain) chart.Domain {
	lo, hi := math.Min(b.Min, b.Max), math.Max(b.Min, b.Max)
	return chart.Domain{Min: math.Min(a.Min, lo), Max: math.Max(a.Max, hi)}
}

// widen gives a zero-span domain a unit span around its value,
// go-chart refuses to draw a zero x-range.
func widen(d chart.Domain) chart.Domain {
	if d.Span() == 0 {
		return chart.Domain{Min: d.Min - 0.5, Max: d.Max + 0.5}
	}
	return d
}

func rangeOf(d chart.Domain) *gochart.ContinuousRange {
	d = widen(d)
	return &gochart.ContinuousRange{Min: d.Min, Max: d.Max}
}

func ticksOf(d chart.Domain, count int) []gochart.Tick {
	d = widen(d)
	var ret []gochart.Tick
	for _, t := range chart.NewLinear(d, 0, 1).Ticks(count) {
		ret = append(ret, gochart.Tick{Value: t.Value, Label: t.Label})
	}
	return ret
}
