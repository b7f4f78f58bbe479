package chart

type Orient string

const (
	OrientBottom Orient = "bottom"
	OrientLeft   Orient = "left"
)

// XY is a position in plot-area pixels.
type XY struct {
	X float64
	Y float64
}

type AxisTick struct {
	Pos   float64
	Label string
}

// Axis is a drawn scale: a domain line along [Scale.R0, Scale.R1]
// translated to (X, Y), with ticks placed by Pos.
type Axis struct {
	Orient Orient
	X, Y   float64
	Scale  Linear
	Ticks  []AxisTick
}

type Line struct {
	Series string
	Color  string
	Width  float64
	Points []XY
}

type Marker struct {
	Series string
	Color  string
	Stroke string
	X, Y   float64
	R      float64
}

type Label struct {
	Series   string
	Text     string
	Color    string
	X, Y     float64
	DX       float64
	FontSize float64
}

type LegendEntry struct {
	Series   string
	Text     string
	Color    string
	X, Y     float64
	FontSize float64
}

// Frame is the output of one render, stacked in drawing order:
// axes, lines, markers, end labels, legend.
type Frame struct {
	Seq        int
	TimeScale  Linear
	ValueScale Linear
	TimeAxis   Axis
	ValueAxis  Axis
	Series     []Series
	Lines      []Line
	Markers    []Marker
	Labels     []Label
	Legend     []LegendEntry
}

// Elements returns how many drawn elements carry the series class.
// Legend entries are not counted, toggling never hides them.
func (f *Frame) Elements(series string) int {
	n := 0
	for _, l := range f.Lines {
		if l.Series == series {
			n++
		}
	}
	for _, m := range f.Markers {
		if m.Series == series {
			n++
		}
	}
	for _, l := range f.Labels {
		if l.Series == series {
			n++
		}
	}
	return n
}
