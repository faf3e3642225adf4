package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveLineOp("checkout", 3, "out", nil)

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	empty := NewWithRegisterer(nil)
	empty.ObserveLineOp("checkin", 1, "returned", nil)
}

func TestObserveLineOp(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegisterer(reg)

	m.ObserveLineOp("checkout", 3, "out", nil)
	m.ObserveLineOp("checkout", 2, "out", nil)
	m.ObserveLineOp("checkin", 0, "", errors.New("conflict"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.lineOps.WithLabelValues("checkout", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lineOps.WithLabelValues("checkin", "error")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.units.WithLabelValues("checkout")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.statuses.WithLabelValues("out")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/orders/42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/orders/43", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/orders/{id}", "404")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "izposoja_http_requests_total"))
	assert.True(t, strings.Contains(rec.Body.String(), "go_goroutines"))
}
