package middleware

import "net/http"

// RouteResolver names the registered pattern that will serve a request.
// Outer middleware runs before the mux sets r.Pattern, so it asks the mux.
type RouteResolver func(*http.Request) string

// MuxRoutes resolves through mux. Requests matching nothing are labelled
// "unmatched" so probes for random paths cannot grow metric label sets.
func MuxRoutes(mux *http.ServeMux) RouteResolver {
	return func(r *http.Request) string {
		if _, pattern := mux.Handler(r); pattern != "" {
			return pattern
		}
		return "unmatched"
	}
}

func (resolve RouteResolver) route(r *http.Request) string {
	if resolve == nil {
		return r.URL.Path
	}
	return resolve(r)
}

// statusRecorder captures the response status while keeping http.Flusher
// available to the consultation and portal streams
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (rw *statusRecorder) streaming() bool {
	return rw.Header().Get("Content-Type") == "text/event-stream"
}
