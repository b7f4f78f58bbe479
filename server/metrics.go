package server

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	Renders *prometheus.CounterVec
	Series  prometheus.Counter
	Toggles *prometheus.CounterVec
	Errors  *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendline_renders_total",
				Help: "Total number of rendered charts",
			},
			[]string{"format"},
		),
		Series: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "trendline_series_rendered_total",
				Help: "Total number of series drawn into charts",
			},
		),
		Toggles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendline_toggles_total",
				Help: "Total number of legend toggles",
			},
			[]string{"chart"},
		),
		Errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendline_render_errors_total",
				Help: "Total number of failed chart renders",
			},
			[]string{"format"},
		),
	}
	reg.MustRegister(m.Renders, m.Series, m.Toggles, m.Errors)
	return m
}
