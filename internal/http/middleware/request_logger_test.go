package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/aba-directory/pkg/logging"
)

type routeRecorder struct {
	routes   []string
	statuses []int
}

func (r *routeRecorder) ObserveRequest(route string, status int, _ float64) {
	r.routes = append(r.routes, route)
	r.statuses = append(r.statuses, status)
}

func TestRequestLoggerRecordsRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "info")
	obs := &routeRecorder{}

	r := chi.NewRouter()
	r.Use(RequestLogger(logger, obs))
	r.Get("/api/listings/{slug}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/listings/bright-aba", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	require.Len(t, obs.routes, 2)
	assert.Equal(t, "/api/listings/{slug}", obs.routes[0])
	assert.Equal(t, http.StatusNotFound, obs.statuses[0])
	assert.Equal(t, http.StatusOK, obs.statuses[1])
	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
	assert.NotContains(t, buf.String(), "bright-aba")
}

func TestRequestLoggerPropagatesSpanContext(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "info")

	var seen trace.Span
	r := chi.NewRouter()
	r.Use(RequestLogger(logger, nil))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		seen = trace.SpanFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	// The global no-op provider produces invalid span contexts.
	assert.False(t, seen.SpanContext().IsValid())
	assert.NotContains(t, buf.String(), "trace_id")
}
