package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/medicrew/backend/internal/infrastructure/observability"
)

// quietRoutes are polled by probes and scrapers and only logged at debug
var quietRoutes = map[string]bool{
	"GET /health":  true,
	"GET /metrics": true,
}

// LoggingMiddleware logs one line per request. Server errors log at warn;
// streams are flagged since their duration is the connection lifetime.
func LoggingMiddleware(resolve RouteResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newStatusRecorder(w)
			next.ServeHTTP(rw, r)

			route := resolve.route(r)
			logger := observability.LoggerFromContext(r.Context())

			var event *zerolog.Event
			switch {
			case rw.statusCode >= http.StatusInternalServerError:
				event = logger.Warn()
			case quietRoutes[route]:
				event = logger.Debug()
			default:
				event = logger.Info()
			}
			event.
				Str("method", r.Method).
				Str("route", route).
				Int("status", rw.statusCode).
				Bool("stream", rw.streaming()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}
