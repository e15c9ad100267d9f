package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/aba-directory/pkg/logging"
)

var tracer = otel.Tracer("aba.internal.http")

// RequestObserver records request latency by route pattern.
type RequestObserver interface {
	ObserveRequest(route string, status int, seconds float64)
}

// RequestLogger emits structured logs for every HTTP request and echoes the
// request id back in X-Request-ID. Each request runs inside a server span
// whose trace id is logged when a tracer provider is installed. observer may
// be nil.
func RequestLogger(logger *logging.Logger, observer RequestObserver) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", reqID)
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			ctx, span := tracer.Start(r.Context(), "http.request", trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)
			span.SetName(r.Method + " " + route)
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.status_code", status),
				attribute.String("aba.request_id", reqID),
			)

			fields := []any{
				"method", r.Method,
				"route", route,
				"status", status,
				"request_id", reqID,
				"duration_ms", elapsed.Milliseconds(),
			}
			if sc := span.SpanContext(); sc.IsValid() {
				fields = append(fields, "trace_id", sc.TraceID().String())
			}
			logger.Info("request completed", fields...)
			if observer != nil {
				observer.ObserveRequest(route, status, elapsed.Seconds())
			}
		})
	}
}
