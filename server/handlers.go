package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/OutOfBedlam/trendline/chart"
	"github.com/OutOfBedlam/trendline/dataset"
	"github.com/OutOfBedlam/trendline/export/png"
	"github.com/OutOfBedlam/trendline/export/svg"
	"github.com/OutOfBedlam/trendline/store"
	"github.com/go-chi/chi/v5"
)

const maxUploadBytes = 32 << 20

func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	list, err := s.datasets.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if list == nil {
		list = []store.Dataset{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) putDataset(w http.ResponseWriter, r *http.Request) {
	name, err := urlParam(r, "name")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	format, err := dataset.FormatOf(r.Header.Get("Content-Type"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tbl, err := dataset.Read(http.MaxBytesReader(w, r.Body, maxUploadBytes), format)
	if err != nil {
		s.fail(w, r, badRequest{err})
		return
	}
	if err := s.datasets.Save(r.Context(), name, tbl); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("Stored dataset", "name", name, "format", format, "rows", len(tbl.Rows))
	s.writeJSON(w, http.StatusCreated, store.Dataset{Name: name, Rows: len(tbl.Rows), Columns: tbl.Columns})
}

func (s *Server) deleteDataset(w http.ResponseWriter, r *http.Request) {
	name, err := urlParam(r, "name")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.datasets.Delete(r.Context(), name); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.visibility.Clear(r.Context(), name); err != nil {
		s.logger.Warn("Failed to clear visibility", "chart", name, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getChart(w http.ResponseWriter, r *http.Request) {
	file, err := urlParam(r, "file")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ext := path.Ext(file)
	name := strings.TrimSuffix(file, ext)

	var (
		contentType string
		export      func(io.Writer, *chart.Chart) error
	)
	switch ext {
	case ".svg":
		canvas := svg.NewCanvas()
		canvas.ToggleURL = s.basePath + "/charts/" + url.PathEscape(name) + "/toggle/"
		contentType, export = "image/svg+xml", canvas.Export
	case ".png":
		contentType, export = "image/png", png.NewCanvas().Export
	default:
		http.NotFound(w, r)
		return
	}
	format := ext[1:]

	ch, frame, err := s.build(r, name)
	if err != nil {
		s.metrics.Errors.WithLabelValues(format).Inc()
		s.fail(w, r, err)
		return
	}
	buf := &bytes.Buffer{}
	if err := export(buf, ch); err != nil {
		s.metrics.Errors.WithLabelValues(format).Inc()
		s.fail(w, r, err)
		return
	}
	s.metrics.Renders.WithLabelValues(format).Inc()
	s.metrics.Series.Add(float64(len(frame.Series)))
	s.gather(format, len(frame.Series))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// build renders the dataset called name into a new chart, using the
// query parameters series, resolution, from, to, value and time.
// Domains not given are inferred from the records.
func (s *Server) build(r *http.Request, name string) (*chart.Chart, *chart.Frame, error) {
	ctx := r.Context()
	q := r.URL.Query()
	tbl, err := s.datasets.Load(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	opts := s.options
	if v := q.Get("resolution"); v != "" {
		res, err := dataset.ParseResolution(v)
		if err != nil {
			return nil, nil, err
		}
		opts.Resolution = res
	}
	series := splitList(q.Get("series"))
	if len(series) == 0 {
		series = tbl.Fields(opts.TimeField)
	}

	records, err := dataset.ToRecords(tbl.Rows, opts)
	if err != nil {
		return nil, nil, err
	}
	if records, err = dataset.Aggregate(records, series); err != nil {
		return nil, nil, err
	}
	lo, hi := math.Inf(-1), math.Inf(1)
	if v := q.Get("from"); v != "" {
		if lo, err = dataset.Timestamp(v, opts.Resolution); err != nil {
			return nil, nil, badRequest{fmt.Errorf("from: %w", err)}
		}
	}
	if v := q.Get("to"); v != "" {
		if hi, err = dataset.Timestamp(v, opts.Resolution); err != nil {
			return nil, nil, badRequest{fmt.Errorf("to: %w", err)}
		}
	}
	records = dataset.Between(records, lo, hi)

	valueDomain, hasValue, err := parseDomain(q.Get("value"))
	if err != nil {
		return nil, nil, fmt.Errorf("value: %w", err)
	}
	timeDomain, hasTime, err := parseDomain(q.Get("time"))
	if err != nil {
		return nil, nil, fmt.Errorf("time: %w", err)
	}
	if !hasValue || !hasTime {
		v, t, err := dataset.InferDomains(records, series)
		if errors.Is(err, chart.ErrEmptyRecords) {
			v, t = chart.Domain{Min: 0, Max: 1}, chart.Domain{Min: 0, Max: 1}
		} else if err != nil {
			return nil, nil, err
		}
		if !hasValue {
			valueDomain = v
		}
		if !hasTime {
			timeDomain = t
		}
	}

	ch := chart.New(s.chartCfg, chart.WithLogger(s.logger))
	frame, err := ch.Render(records, series, valueDomain, timeDomain)
	if err != nil {
		return nil, nil, err
	}
	hidden, err := s.visibility.Hidden(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	ch.SetHidden(hidden)
	return ch, frame, nil
}

func (s *Server) toggleSeries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, err := urlParam(r, "name")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	series, err := urlParam(r, "series")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tbl, err := s.datasets.Load(ctx, name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !slices.Contains(tbl.Fields(s.options.TimeField), series) {
		s.fail(w, r, fmt.Errorf("%w: %q", chart.ErrUnknownSeries, series))
		return
	}
	hidden, err := s.visibility.Toggle(ctx, name, series)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	opacity := 1.0
	if hidden {
		opacity = 0
	}
	s.metrics.Toggles.WithLabelValues(name).Inc()
	s.logger.Debug("Toggled series", "chart", name, "series", series, "opacity", opacity)
	s.writeJSON(w, http.StatusOK, map[string]any{"series": series, "opacity": opacity})
}

func (s *Server) resetChart(w http.ResponseWriter, r *http.Request) {
	name, err := urlParam(r, "name")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.visibility.Clear(r.Context(), name); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// urlParam returns the route parameter key unescaped. chi matches on the
// escaped path when it differs from the decoded one, as with "%2F".
func urlParam(r *http.Request, key string) (string, error) {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v, nil
	}
	ret, err := url.PathUnescape(v)
	if err != nil {
		return "", badRequest{fmt.Errorf("%s: %w", key, err)}
	}
	return ret, nil
}

func splitList(s string) []string {
	var ret []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			ret = append(ret, v)
		}
	}
	return ret
}

// parseDomain parses "min,max". An empty string reports ok false.
func parseDomain(s string) (d chart.Domain, ok bool, err error) {
	if strings.TrimSpace(s) == "" {
		return d, false, nil
	}
	lo, hi, found := strings.Cut(s, ",")
	if !found {
		return d, false, badRequest{fmt.Errorf("%w: %q is not min,max", chart.ErrInvalidDomain, s)}
	}
	if d.Min, err = strconv.ParseFloat(strings.TrimSpace(lo), 64); err != nil {
		return d, false, badRequest{fmt.Errorf("%w: %v", chart.ErrInvalidDomain, err)}
	}
	if d.Max, err = strconv.ParseFloat(strings.TrimSpace(hi), 64); err != nil {
		return d, false, badRequest{fmt.Errorf("%w: %v", chart.ErrInvalidDomain, err)}
	}
	return d, true, nil
}
