package svg

import (
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/url"
	"strconv"
	"strings"
	textTemplate "text/template"

	"github.com/OutOfBedlam/trendline/chart"
)

var ErrNoFrames = errors.New("chart has no frames")

func NewCanvas() *Canvas {
	return &Canvas{
		BackgroundColor: "white",
		AxisColor:       "currentColor",
		FontFamily:      "sans-serif",
		AxisFontSize:    10,
		TickSize:        6,
	}
}

// Canvas holds the presentation options of an SVG document. The geometry
// comes from the chart config.
type Canvas struct {
	XMLHeader       bool
	BackgroundColor string
	AxisColor       string
	FontFamily      string
	AxisFontSize    float64
	TickSize        float64
	// ToggleURL, when set, makes a legend click POST to ToggleURL followed
	// by the escaped series name and apply the opacity from the response.
	// Without it the legend toggles opacity in the browser only.
	ToggleURL string
}

type document struct {
	Canvas
	Width  float64
	Height float64
	Margin chart.Margin
	Frames []*chart.Frame
	chart  *chart.Chart
}

// Opacity is evaluated at export time, so a hidden series stays hidden
// in every frame of the document.
func (d document) Opacity(series string) float64 {
	return d.chart.Opacity(series)
}

func (d document) Toggle(series string) string {
	if d.ToggleURL == "" {
		return ""
	}
	return d.ToggleURL + url.PathEscape(series)
}

// Export writes every frame of ch stacked in one SVG document.
func (c Canvas) Export(w io.Writer, ch *chart.Chart) error {
	frames := ch.Frames()
	if len(frames) == 0 {
		return ErrNoFrames
	}
	cfg := ch.Config()
	doc := document{
		Canvas: c,
		Width:  cfg.OuterWidth(),
		Height: cfg.OuterHeight(),
		Margin: cfg.Margin,
		Frames: frames,
		chart:  ch,
	}
	return svgTmpl.ExecuteTemplate(w, "svg", doc)
}

// num trims coordinates to three decimals.
func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}

// seriesClass maps a series name to a CSS class. Names that are not
// valid identifiers get a hash suffix so two names never share a class.
func seriesClass(name string) string {
	sb := &strings.Builder{}
	sb.WriteString("series-")
	clean := true
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
			clean = false
		}
	}
	if !clean {
		h := fnv.New32a()
		h.Write([]byte(name))
		fmt.Fprintf(sb, "-%08x", h.Sum32())
	}
	return sb.String()
}

func svgPath(l chart.Line) string {
	sb := &strings.Builder{}
	for i, p := range l.Points {
		if i == 0 {
			sb.WriteString(fmt.Sprintf("M%s %s", num(p.X), num(p.Y)))
		} else {
			sb.WriteString(fmt.Sprintf(" L%s %s", num(p.X), num(p.Y)))
		}
	}
	return sb.String()
}

type svgTick struct {
	Transform string
	Line      string
	Text      string
	Label     string
}

type svgAxis struct {
	Color     string
	FontSize  float64
	Transform string
	Domain    string
	Anchor    string
	Ticks     []svgTick
}

// svgAxes lays out an axis the way d3-axis does: a domain path with outer
// ticks and one group per tick holding its line and label.
func svgAxes(a chart.Axis, c Canvas) svgAxis {
	tickSize := c.TickSize
	k := num(tickSize)
	r0, r1 := num(a.Scale.R0), num(a.Scale.R1)
	ret := svgAxis{
		Color:     c.AxisColor,
		FontSize:  c.AxisFontSize,
		Transform: fmt.Sprintf("translate(%s,%s)", num(a.X), num(a.Y)),
	}
	switch a.Orient {
	case chart.OrientLeft:
		ret.Domain = fmt.Sprintf("M-%s %s H0 V%s H-%s", k, r0, r1, k)
		ret.Anchor = "end"
	default:
		ret.Domain = fmt.Sprintf("M%s %s V0 H%s V%s", r0, k, r1, k)
		ret.Anchor = "middle"
	}
	for _, t := range a.Ticks {
		var tick svgTick
		switch a.Orient {
		case chart.OrientLeft:
			tick.Transform = fmt.Sprintf("translate(0,%s)", num(t.Pos))
			tick.Line = fmt.Sprintf(`x2="-%s"`, k)
			tick.Text = fmt.Sprintf(`x="-%s" dy="0.32em"`, num(tickSize+3))
		default:
			tick.Transform = fmt.Sprintf("translate(%s,0)", num(t.Pos))
			tick.Line = fmt.Sprintf(`y2="%s"`, k)
			tick.Text = fmt.Sprintf(`y="%s" dy="0.71em"`, num(tickSize+3))
		}
		tick.Label = t.Label
		ret.Ticks = append(ret.Ticks, tick)
	}
	return ret
}

var svgTmpl = textTemplate.Must(textTemplate.New("svg").
	Funcs(textTemplate.FuncMap{
		"svgPath": svgPath,
		"svgAxes": svgAxes,
		"class":   seriesClass,
		"num":     num,
	}).
	Parse(`{{- if .XMLHeader -}}
<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<!DOCTYPE svg PUBLIC "-//W3C//DTD SVG 1.1//EN" "http://www.w3.org/Graphics/SVG/1.1/DTD/svg11.dtd">
{{ end -}}
<svg width="{{ num .Width }}" height="{{ num .Height }}" xmlns="http://www.w3.org/2000/svg">
  <defs>
    <style type="text/css">
      text {
        font-family: {{ .FontFamily }};
      }
      .legend {
        cursor: pointer;
      }
    </style>
  </defs>
  <script type="text/ecmascript"><![CDATA[
    function toggleSeries(evt) {
      var t = evt.currentTarget;
      var nodes = document.getElementsByClassName(t.getAttribute("data-class"));
      var apply = function(op) {
        for (var i = 0; i < nodes.length; i++) {
          nodes[i].style.opacity = op;
        }
      };
      var url = t.getAttribute("data-toggle");
      if (url) {
        fetch(url, {method: "POST"})
          .then(function(rsp) { return rsp.json(); })
          .then(function(rsp) { apply(rsp.opacity); });
        return;
      }
      apply(nodes.length > 0 && nodes[0].style.opacity === "0" ? 1 : 0);
    }
  ]]></script>
  <rect x="0" y="0" width="{{ num .Width }}" height="{{ num .Height }}" fill="{{ .BackgroundColor }}"/>
  <g transform="translate({{ num .Margin.Left }},{{ num .Margin.Top }})">
  {{- range .Frames }}
    <g class="frame" data-seq="{{ .Seq }}">
    {{- template "axis" (svgAxes .TimeAxis $.Canvas) }}
    {{- template "axis" (svgAxes .ValueAxis $.Canvas) }}
    {{- range .Lines }}
      <path class="line {{ class .Series }}" d="{{ svgPath . }}" fill="none" stroke="{{ .Color }}" stroke-width="{{ num .Width }}" style="opacity:{{ $.Opacity .Series }}"/>
    {{- end }}
    {{- range .Markers }}
      <circle class="marker {{ class .Series }}" cx="{{ num .X }}" cy="{{ num .Y }}" r="{{ num .R }}" fill="{{ .Color }}" stroke="{{ .Stroke }}" style="opacity:{{ $.Opacity .Series }}"/>
    {{- end }}
    {{- range .Labels }}
      <text class="label {{ class .Series }}" x="{{ num .X }}" y="{{ num .Y }}" dx="{{ num .DX }}" font-size="{{ num .FontSize }}" fill="{{ .Color }}" style="opacity:{{ $.Opacity .Series }}">{{ html .Text }}</text>
    {{- end }}
    {{- range .Legend }}
      <text class="legend" x="{{ num .X }}" y="{{ num .Y }}" font-size="{{ num .FontSize }}" fill="{{ .Color }}" data-series="{{ html .Series }}" data-class="{{ class .Series }}"{{ with $.Toggle .Series }} data-toggle="{{ html . }}"{{ end }} onclick="toggleSeries(evt)">{{ html .Text }}</text>
    {{- end }}
    </g>
  {{- end }}
  </g>
</svg>
{{ define "axis" }}
      <g class="axis" transform="{{ .Transform }}" fill="none" font-size="{{ num $.FontSize }}" text-anchor="{{ .Anchor }}">
        <path class="domain" stroke="{{ $.Color }}" d="{{ .Domain }}"/>
      {{- range .Ticks }}
        <g class="tick" transform="{{ .Transform }}">
          <line stroke="{{ $.Color }}" {{ .Line }}/>
          <text fill="{{ $.Color }}" {{ .Text }}>{{ html .Label }}</text>
        </g>
      {{- end }}
      </g>
{{- end }}`))
