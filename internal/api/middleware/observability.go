package middleware

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/medicrew/backend/internal/infrastructure/observability"
)

// ObservabilityMiddleware opens a span per request and records the request
// metric under the resolved route. metrics may be nil.
func ObservabilityMiddleware(metrics *observability.Metrics, resolve RouteResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := resolve.route(r)

			ctx, span := observability.StartSpan(r.Context(), route)
			defer span.End()
			observability.SetSpanAttributes(span,
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
			)

			rw := newStatusRecorder(w)
			start := time.Now()
			next.ServeHTTP(rw, r.WithContext(ctx))

			observability.RecordRequestMetric(ctx, metrics, r.Method, route, rw.statusCode, time.Since(start))
			observability.SetSpanAttributes(span,
				attribute.Int("http.status_code", rw.statusCode),
				attribute.Bool("medicrew.stream", rw.streaming()),
			)
			if rw.statusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rw.statusCode))
			}
		})
	}
}
