package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medicrew/backend/internal/api/handlers"
	"github.com/medicrew/backend/internal/api/middleware"
	"github.com/medicrew/backend/internal/infrastructure/observability"
)

// Options carries the router's cross-cutting settings
type Options struct {
	Metrics        *observability.Metrics
	Registry       *prometheus.Registry
	MetricsPath    string
	AllowedOrigins []string
}

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	consultHandler *handlers.ConsultHandler
	portalHandler  *handlers.PortalHandler
	patientHandler *handlers.PatientHandler
	sseHandler     *handlers.SSEHandler

	consultLimiter *handlers.RateLimiter
	opts           Options
}

// NewRouter creates a new router. sseHandler may be nil when streams are
// served by a separate process.
func NewRouter(
	consultHandler *handlers.ConsultHandler,
	portalHandler *handlers.PortalHandler,
	patientHandler *handlers.PatientHandler,
	sseHandler *handlers.SSEHandler,
	consultLimiter *handlers.RateLimiter,
	opts Options,
) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		consultHandler: consultHandler,
		portalHandler:  portalHandler,
		patientHandler: patientHandler,
		sseHandler:     sseHandler,
		consultLimiter: consultLimiter,
		opts:           opts,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	if r.opts.Registry != nil {
		path := r.opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.mux.Handle("GET "+path, promhttp.HandlerFor(r.opts.Registry, promhttp.HandlerOpts{}))
	}

	// Consultation endpoints
	r.mux.HandleFunc("POST /api/consult", r.consultLimiter.Limit(r.consultHandler.Consult))
	r.mux.HandleFunc("GET /api/agents", r.consultHandler.ListAgents)

	// Portal endpoints
	r.mux.HandleFunc("POST /api/portal/symptom-check", r.portalHandler.SubmitSymptomCheck)
	r.mux.HandleFunc("GET /api/portal/symptom-checks", r.portalHandler.ListSymptomChecks)
	r.mux.HandleFunc("GET /api/portal/symptom-checks/{id}", r.portalHandler.GetSymptomCheck)
	r.mux.HandleFunc("GET /api/portal/symptom-checks/{id}/notes", r.portalHandler.ListDoctorNotes)
	r.mux.HandleFunc("GET /api/portal/symptom-checks/{id}/report", r.portalHandler.GetCaseReport)
	r.mux.HandleFunc("GET /api/portal/queue", r.portalHandler.GetQueue)
	r.mux.HandleFunc("PATCH /api/portal/queue/{id}", r.portalHandler.UpdateQueueItem)
	r.mux.HandleFunc("DELETE /api/portal/queue/{id}", r.portalHandler.RemoveQueueItem)
	r.mux.HandleFunc("GET /api/portal/statistics", r.portalHandler.GetStatistics)
	r.mux.HandleFunc("POST /api/portal/doctor-note", r.portalHandler.AddDoctorNote)
	r.mux.HandleFunc("POST /api/portal/case-insights", r.portalHandler.GetCaseInsights)
	r.mux.HandleFunc("POST /api/portal/case-consult", r.consultLimiter.Limit(r.consultHandler.CaseConsult))

	// Patient records
	r.mux.HandleFunc("GET /api/patients", r.patientHandler.ListPatients)
	r.mux.HandleFunc("POST /api/patients", r.patientHandler.RegisterPatient)
	r.mux.HandleFunc("GET /api/patients/{id}", r.patientHandler.GetPatient)
	r.mux.HandleFunc("GET /api/doctors", r.patientHandler.ListDoctors)
	r.mux.HandleFunc("POST /api/doctors", r.patientHandler.RegisterDoctor)
	r.mux.HandleFunc("GET /api/consultations", r.patientHandler.ListConsultations)
	r.mux.HandleFunc("POST /api/consultations", r.patientHandler.SaveConsultation)
	r.mux.HandleFunc("GET /api/notifications", r.patientHandler.ListNotifications)
	r.mux.HandleFunc("POST /api/notifications", r.patientHandler.SendNotification)
	r.mux.HandleFunc("PATCH /api/notifications", r.patientHandler.MarkNotificationRead)

	if r.sseHandler != nil {
		RegisterStreamRoutes(r.mux, r.sseHandler)
	}

	return Wrap(r.mux, r.opts)
}

// RegisterStreamRoutes adds the portal event streams to mux
func RegisterStreamRoutes(mux *http.ServeMux, sseHandler *handlers.SSEHandler) {
	mux.HandleFunc("GET /api/stream/queue", sseHandler.StreamQueueUpdates)
	mux.HandleFunc("GET /api/stream/patients/{id}", sseHandler.StreamPatientUpdates)
}

// Wrap applies the shared middleware chain around mux. CORS is outermost so
// even rejected requests carry its headers.
func Wrap(mux *http.ServeMux, opts Options) http.Handler {
	routes := middleware.MuxRoutes(mux)

	var handler http.Handler = mux
	handler = middleware.LoggingMiddleware(routes)(handler)
	handler = middleware.ObservabilityMiddleware(opts.Metrics, routes)(handler)
	handler = middleware.CORSMiddleware(opts.AllowedOrigins)(handler)
	return handler
}
