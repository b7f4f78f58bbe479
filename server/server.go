// Package server exposes stored datasets as interactive charts over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/OutOfBedlam/metric"
	"github.com/OutOfBedlam/trendline/chart"
	"github.com/OutOfBedlam/trendline/dataset"
	"github.com/OutOfBedlam/trendline/middleware/httpstat"
	"github.com/OutOfBedlam/trendline/store"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	datasets   store.DatasetStore
	visibility store.VisibilityStore
	chartCfg   chart.Config
	options    dataset.Options
	logger     *slog.Logger
	registry   *prometheus.Registry
	metrics    *Metrics
	gatherCh   chan<- *metric.Gather
	basePath   string
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRegistry serves /metrics from reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithCollector measures requests and renders into the metric collector.
func WithCollector(ch chan<- *metric.Gather) Option {
	return func(s *Server) {
		s.gatherCh = ch
	}
}

// WithDatasetOptions sets the time field and the default resolution.
func WithDatasetOptions(opts dataset.Options) Option {
	return func(s *Server) {
		s.options = opts
	}
}

// WithBasePath is the path the handler is mounted on. The toggle URL
// written into SVG documents starts with it.
func WithBasePath(path string) Option {
	return func(s *Server) {
		s.basePath = path
	}
}

func New(datasets store.DatasetStore, visibility store.VisibilityStore, chartCfg chart.Config, opts ...Option) *Server {
	ret := &Server{
		datasets:   datasets,
		visibility: visibility,
		chartCfg:   chartCfg,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(ret)
	}
	if ret.registry == nil {
		ret.registry = prometheus.NewRegistry()
	}
	ret.metrics = NewMetrics(ret.registry)
	return ret
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	if s.gatherCh != nil {
		r.Use(httpstat.Middleware(s.gatherCh))
	}
	r.Get("/datasets", s.listDatasets)
	r.Put("/datasets/{name}", s.putDataset)
	r.Delete("/datasets/{name}", s.deleteDataset)
	r.Get("/charts/{file}", s.getChart)
	r.Post("/charts/{name}/toggle/{series}", s.toggleSeries)
	r.Post("/charts/{name}/reset", s.resetChart)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return r
}

// badRequest marks errors in request parameters.
type badRequest struct {
	err error
}

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func statusOf(err error) int {
	var br badRequest
	var fe *chart.FieldError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, chart.ErrUnknownSeries):
		return http.StatusNotFound
	case errors.As(err, &br), errors.As(err, &fe),
		errors.Is(err, chart.ErrMissingField),
		errors.Is(err, chart.ErrNotNumeric),
		errors.Is(err, chart.ErrInvalidDomain),
		errors.Is(err, chart.ErrDuplicateSeries),
		errors.Is(err, chart.ErrEmptyRecords),
		errors.Is(err, dataset.ErrFormat),
		errors.Is(err, dataset.ErrResolution):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	if code >= 500 {
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Warn("Request rejected", "method", r.Method, "path", r.URL.Path, "status", code, "error", err)
	}
	http.Error(w, fmt.Sprintf("%s: %v", http.StatusText(code), err), code)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "error", err)
	}
}

func (s *Server) gather(format string, series int) {
	if s.gatherCh == nil {
		return
	}
	g := &metric.Gather{}
	g.Add("chart:renders", 1, metric.CounterType(metric.UnitShort))
	g.Add("chart:series", float64(series), metric.GaugeType(metric.UnitShort))
	select {
	case s.gatherCh <- g:
	default:
		s.logger.Debug("Dropped chart measurement", "format", format)
	}
}
