package httpstat

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/OutOfBedlam/metric"
	"github.com/go-chi/chi/v5"
)

// ServerMeter measures every request served by handler and sends the
// measurements to ch. Requests routed by chi are also counted per route
// group, the first segment of the matched pattern.
type ServerMeter struct {
	name    string
	ch      chan<- *metric.Gather
	handler http.Handler
}

func NewHandler(ch chan<- *metric.Gather, handler http.Handler) *ServerMeter {
	return &ServerMeter{
		name:    "http",
		ch:      ch,
		handler: handler,
	}
}

// Middleware is NewHandler in the shape chi's Use expects.
func Middleware(ch chan<- *metric.Gather) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return NewHandler(ch, next)
	}
}

var counterType = metric.CounterType(metric.UnitShort)
var bytesCounterType = metric.CounterType(metric.UnitBytes)
var histogramType = metric.HistogramType(metric.UnitDuration)

func (sm *ServerMeter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tick := time.Now()
	reqCounter := &ByteCounter{r: r.Body}
	r.Body = reqCounter
	rsp := &ResponseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}
	defer func() {
		if err := recover(); err != nil {
			slog.Error("Panic serving request", "method", r.Method, "path", r.URL.Path, "error", err)
			if !rsp.headerWritten {
				http.Error(rsp, "Internal Server Error", http.StatusInternalServerError)
			} else {
				rsp.statusCode = http.StatusInternalServerError
			}
		}
		measure := &metric.Gather{}
		measure.Add(sm.name+":requests", 1, counterType)
		measure.Add(sm.name+":latency", float64(time.Since(tick).Nanoseconds()), histogramType)
		measure.Add(sm.name+":bytes_sent", float64(rsp.responseBytes), bytesCounterType)
		measure.Add(sm.name+":bytes_recv", float64(reqCounter.total), bytesCounterType)
		measure.Add(fmt.Sprintf("%s:status_%dxx", sm.name, rsp.statusCode/100), 1, counterType)
		if group := RouteGroup(r); group != "" {
			measure.Add(sm.name+":route_"+group, 1, counterType)
		}
		select {
		case sm.ch <- measure:
		default:
			slog.Debug("Dropped http measurement, collector busy")
		}
	}()
	sm.handler.ServeHTTP(rsp, r)
}

func (sm *ServerMeter) String() string {
	return "ServerMeter: HTTP server metrics"
}

// RouteGroup returns the first static segment of the chi route pattern
// that served r, or an empty string when r was not routed by chi.
func RouteGroup(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	pattern := strings.TrimPrefix(rctx.RoutePattern(), "/")
	group, _, _ := strings.Cut(pattern, "/")
	if group == "" || strings.ContainsAny(group, "{*") {
		return ""
	}
	return group
}

type ResponseWriterWrapper struct {
	http.ResponseWriter
	headerWritten bool
	responseBytes int
	statusCode    int
}

var _ http.ResponseWriter = (*ResponseWriterWrapper)(nil)
var _ http.Flusher = (*ResponseWriterWrapper)(nil)

func (w *ResponseWriterWrapper) Write(b []byte) (int, error) {
	w.headerWritten = true
	n, err := w.ResponseWriter.Write(b)
	w.responseBytes += n
	return n, err
}

func (w *ResponseWriterWrapper) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *ResponseWriterWrapper) WriteHeader(statusCode int) {
	if w.headerWritten {
		slog.Warn("Superfluous WriteHeader call", "status", statusCode)
		return
	}
	w.headerWritten = true
	w.ResponseWriter.WriteHeader(statusCode)
	w.statusCode = statusCode
}

type ByteCounter struct {
	r     io.ReadCloser
	total int64
}

func (bc *ByteCounter) Read(p []byte) (int, error) {
	n, err := bc.r.Read(p)
	if n > 0 {
		bc.total += int64(n)
	}
	return n, err
}

func (bc *ByteCounter) Close() error {
	return bc.r.Close()
}
