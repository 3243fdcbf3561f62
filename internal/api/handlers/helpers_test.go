package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/medicrew/backend/internal/adapters/cache"
	"github.com/medicrew/backend/internal/adapters/events"
	"github.com/medicrew/backend/internal/adapters/memory"
	"github.com/medicrew/backend/internal/api/handlers"
	"github.com/medicrew/backend/internal/application/orchestrator"
	"github.com/medicrew/backend/internal/application/services"
	"github.com/medicrew/backend/internal/domain/providers"
)

// stubGenerator answers every prompt with plain prose, so every structured
// stage falls back to its default record. failFrom makes the nth and later
// calls fail.
type stubGenerator struct {
	mu       sync.Mutex
	calls    int
	failFrom int
	err      error
}

func (g *stubGenerator) Generate(ctx context.Context, req providers.GenerationRequest) (string, error) {
	g.mu.Lock()
	g.calls++
	n := g.calls
	g.mu.Unlock()

	if g.failFrom > 0 && n >= g.failFrom {
		return "", g.err
	}
	return "Thanks for sharing. Rest, keep hydrated and monitor how you feel.", nil
}

func (g *stubGenerator) Name() string { return "stub" }

type testApp struct {
	gen      *stubGenerator
	bus      *events.MemoryEventBus
	patients *memory.PatientStore
	checks   *memory.SymptomCheckStore

	consult  *handlers.ConsultHandler
	portal   *handlers.PortalHandler
	registry *handlers.PatientHandler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	lru, err := cache.NewLRUAdapter(64)
	require.NoError(t, err)

	app := &testApp{
		gen:      &stubGenerator{},
		bus:      events.NewMemoryEventBus(),
		patients: memory.NewPatientStore(),
		checks:   memory.NewSymptomCheckStore(),
	}
	t.Cleanup(func() { _ = app.bus.Close() })

	orch := orchestrator.New(app.gen, orchestrator.Options{Temperature: 0.3, MaxTokens: 2000})
	notes := memory.NewDoctorNoteStore()
	records := memory.NewConsultationStore()
	notifications := memory.NewNotificationStore()

	queue := services.NewQueueService(memory.NewQueueStore())
	queue.SetEventBus(app.bus)
	portal := services.NewPortalService(app.checks, notes, queue, orch, lru)
	portal.SetEventBus(app.bus)
	consultations := services.NewConsultationService(orch, records, app.patients, app.checks)
	consultations.SetEventBus(app.bus)
	notifier := services.NewNotificationService(notifications)
	notifier.SetEventBus(app.bus)

	app.consult = handlers.NewConsultHandler(consultations)
	app.portal = handlers.NewPortalHandler(portal, queue, services.NewReportService(app.checks, notes, ""))
	app.registry = handlers.NewPatientHandler(
		services.NewPatientService(app.patients, records, notifications),
		services.NewDoctorService(memory.NewDoctorStore()),
		consultations,
		notifier,
	)
	return app
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.1:1234"
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(dst))
}
