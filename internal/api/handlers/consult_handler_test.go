package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicrew/backend/internal/api/handlers"
	"github.com/medicrew/backend/internal/domain/entities"
	apperrors "github.com/medicrew/backend/pkg/errors"
)

func TestConsultHandler_Consult(t *testing.T) {
	t.Run("returns the final state", func(t *testing.T) {
		app := newTestApp(t)
		w := httptest.NewRecorder()
		app.consult.Consult(w, jsonRequest(t, "POST", "/api/consult", map[string]interface{}{
			"symptoms": "I have a headache and feel tired",
		}))

		require.Equal(t, http.StatusOK, w.Code)
		var state entities.ConsultationState
		decodeBody(t, w, &state)
		assert.Equal(t, entities.StepComplete, state.CurrentStep)
		assert.NotNil(t, state.Recommendation)
		assert.NotEmpty(t, state.Messages)
	})

	t.Run("rejects blank symptoms before calling the model", func(t *testing.T) {
		app := newTestApp(t)
		w := httptest.NewRecorder()
		app.consult.Consult(w, jsonRequest(t, "POST", "/api/consult", map[string]interface{}{
			"symptoms": "   ",
		}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body map[string]string
		decodeBody(t, w, &body)
		assert.Equal(t, "Symptoms are required", body["error"])
		assert.Zero(t, app.gen.calls)
	})

	t.Run("rejects malformed payload", func(t *testing.T) {
		app := newTestApp(t)
		req := httptest.NewRequest("POST", "/api/consult", strings.NewReader("{"))
		w := httptest.NewRecorder()
		app.consult.Consult(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("maps provider rate limiting to 429", func(t *testing.T) {
		app := newTestApp(t)
		app.gen.failFrom = 1
		app.gen.err = apperrors.NewRateLimitedError("stub is rate limiting requests, please try again shortly", 20*time.Second, nil)

		w := httptest.NewRecorder()
		app.consult.Consult(w, jsonRequest(t, "POST", "/api/consult", map[string]interface{}{
			"symptoms": "sore throat",
		}))

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "20", w.Header().Get("Retry-After"))
	})

	t.Run("suggests a retry delay when the provider gave none", func(t *testing.T) {
		app := newTestApp(t)
		app.gen.failFrom = 1
		app.gen.err = apperrors.NewRateLimitedError("stub is rate limiting requests, please try again shortly", 0, nil)

		w := httptest.NewRecorder()
		app.consult.Consult(w, jsonRequest(t, "POST", "/api/consult", map[string]interface{}{
			"symptoms": "sore throat",
		}))

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "30", w.Header().Get("Retry-After"))
	})

	t.Run("maps provider misconfiguration to 503", func(t *testing.T) {
		app := newTestApp(t)
		app.gen.failFrom = 1
		app.gen.err = apperrors.NewMisconfiguredError("AI service is not configured", nil)

		w := httptest.NewRecorder()
		app.consult.Consult(w, jsonRequest(t, "POST", "/api/consult", map[string]interface{}{
			"symptoms": "sore throat",
		}))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var body map[string]string
		decodeBody(t, w, &body)
		assert.Equal(t, "AI service is not configured", body["error"])
	})

	t.Run("saves the consultation for a known patient", func(t *testing.T) {
		app := newTestApp(t)
		require.NoError(t, app.patients.Upsert(context.Background(), &entities.Patient{
			ID: "p-1", Email: "pat@example.com", Name: "Pat",
		}))

		w := httptest.NewRecorder()
		app.consult.Consult(w, jsonRequest(t, "POST", "/api/consult", map[string]interface{}{
			"symptoms":  "itchy rash on my arm",
			"patientId": "p-1",
		}))
		require.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		app.registry.ListConsultations(w, httptest.NewRequest("GET", "/api/consultations?patientId=p-1", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var records []entities.ConsultationRecord
		decodeBody(t, w, &records)
		require.Len(t, records, 1)
		assert.Equal(t, "itchy rash on my arm", records[0].Symptoms)
	})

	t.Run("unknown patient is 404", func(t *testing.T) {
		app := newTestApp(t)
		w := httptest.NewRecorder()
		app.consult.Consult(w, jsonRequest(t, "POST", "/api/consult", map[string]interface{}{
			"symptoms":  "cough",
			"patientId": "nobody",
			"stream":    true,
		}))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	})
}

func TestConsultHandler_ConsultStream(t *testing.T) {
	t.Run("streams each step then DONE", func(t *testing.T) {
		app := newTestApp(t)
		w := httptest.NewRecorder()
		app.consult.Consult(w, jsonRequest(t, "POST", "/api/consult", map[string]interface{}{
			"symptoms": "headache for two days",
			"stream":   true,
		}))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
		body := w.Body.String()
		assert.Contains(t, body, `data: {"step":"triage"`)
		assert.Contains(t, body, `data: {"step":"synthesize"`)
		assert.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"))
		assert.Less(t, strings.Index(body, `"step":"triage"`), strings.Index(body, `"step":"synthesize"`))
	})

	t.Run("reports a mid-stream failure in-band", func(t *testing.T) {
		app := newTestApp(t)
		app.gen.failFrom = 2
		app.gen.err = apperrors.NewExternalError("model request failed", nil)

		w := httptest.NewRecorder()
		app.consult.Consult(w, jsonRequest(t, "POST", "/api/consult", map[string]interface{}{
			"symptoms": "headache for two days",
			"stream":   true,
		}))

		body := w.Body.String()
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, body, `"step":"triage"`)
		assert.Contains(t, body, "event: error\ndata: {\"error\":\"model request failed\"}\n\n")
		assert.NotContains(t, body, "[DONE]")
	})

	t.Run("failure before the first step is a plain error", func(t *testing.T) {
		app := newTestApp(t)
		app.gen.failFrom = 1
		app.gen.err = apperrors.NewExternalError("model request failed", nil)

		w := httptest.NewRecorder()
		app.consult.Consult(w, jsonRequest(t, "POST", "/api/consult", map[string]interface{}{
			"symptoms": "headache",
			"stream":   true,
		}))

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.NotContains(t, w.Body.String(), "data:")
	})
}

func TestConsultHandler_CaseConsult(t *testing.T) {
	app := newTestApp(t)

	t.Run("requires a symptom check id", func(t *testing.T) {
		w := httptest.NewRecorder()
		app.consult.CaseConsult(w, jsonRequest(t, "POST", "/api/portal/case-consult", map[string]string{}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body map[string]string
		decodeBody(t, w, &body)
		assert.Equal(t, "symptomCheckId is required", body["error"])
	})

	t.Run("unknown check is 404", func(t *testing.T) {
		w := httptest.NewRecorder()
		app.consult.CaseConsult(w, jsonRequest(t, "POST", "/api/portal/case-consult", map[string]string{
			"symptomCheckId": "missing",
		}))
		assert.Equal(t, http.StatusNotFound, w.Code)
		var body map[string]string
		decodeBody(t, w, &body)
		assert.Equal(t, "Symptom check not found", body["error"])
	})

	t.Run("streams the clinical team", func(t *testing.T) {
		require.NoError(t, app.checks.Create(context.Background(), &entities.SymptomCheck{
			ID:          "sc-1",
			PatientID:   "p-1",
			PatientName: "Pat",
			Symptoms:    []string{"chest pain", "shortness of breath"},
			Duration:    "1 hour",
			Status:      entities.SymptomCheckPending,
			CreatedAt:   time.Now(),
		}))

		w := httptest.NewRecorder()
		app.consult.CaseConsult(w, jsonRequest(t, "POST", "/api/portal/case-consult", map[string]string{
			"symptomCheckId": "sc-1",
		}))

		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, `"step":"triage"`)
		assert.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"))
	})
}

func TestConsultHandler_RateLimited(t *testing.T) {
	app := newTestApp(t)
	limiter := handlers.NewRateLimiter(nil, "consult:", 1, time.Hour)
	handler := limiter.Limit(app.consult.Consult)

	w := httptest.NewRecorder()
	handler(w, jsonRequest(t, "POST", "/api/consult", map[string]string{"symptoms": "cough"}))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler(w, jsonRequest(t, "POST", "/api/consult", map[string]string{"symptoms": "cough"}))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.True(t, retryAfter >= 1 && retryAfter <= 3600, "retry within the hour window, got %d", retryAfter)
}

func TestConsultHandler_ListAgents(t *testing.T) {
	app := newTestApp(t)
	w := httptest.NewRecorder()
	app.consult.ListAgents(w, httptest.NewRequest("GET", "/api/agents", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var agents []entities.AgentDefinition
	decodeBody(t, w, &agents)
	assert.Len(t, agents, len(entities.AgentRoles))
	assert.Equal(t, entities.RoleTriage, agents[0].Role)
}
