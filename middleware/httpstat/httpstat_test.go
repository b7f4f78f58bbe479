package httpstat

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/OutOfBedlam/metric"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func TestServerMeter(t *testing.T) {
	ch := make(chan *metric.Gather, 10)
	var group string
	r := chi.NewRouter()
	r.Use(Middleware(ch))
	r.Get("/charts/{file}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<svg/>"))
	})
	r.Put("/datasets/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	r.With(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			group = RouteGroup(r)
		})
	}).Get("/metrics", func(w http.ResponseWriter, r *http.Request) {})

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{method: http.MethodGet, path: "/charts/steps.svg", status: http.StatusOK},
		{method: http.MethodPut, path: "/datasets/steps", body: "timestamp,a\n1,2\n", status: http.StatusCreated},
		{method: http.MethodGet, path: "/panic", status: http.StatusInternalServerError},
		{method: http.MethodGet, path: "/nowhere", status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			require.Equal(t, tt.status, rec.Code)
			require.Len(t, ch, 1)
			require.NotNil(t, <-ch)
		})
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	<-ch
	require.Equal(t, "metrics", group)
}

func TestRouteGroupWithoutChi(t *testing.T) {
	require.Empty(t, RouteGroup(httptest.NewRequest(http.MethodGet, "/charts/x.svg", nil)))
}

func TestServerMeterDropsWhenFull(t *testing.T) {
	ch := make(chan *metric.Gather)
	h := NewHandler(ch, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
