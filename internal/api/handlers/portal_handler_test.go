package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicrew/backend/internal/domain/entities"
)

type symptomCheckResponse struct {
	Assessment   entities.AIAssessment `json:"assessment"`
	SymptomCheck entities.SymptomCheck `json:"symptomCheck"`
}

func submitCheck(t *testing.T, app *testApp, patientID string, symptoms ...string) symptomCheckResponse {
	t.Helper()
	w := httptest.NewRecorder()
	app.portal.SubmitSymptomCheck(w, jsonRequest(t, "POST", "/api/portal/symptom-check", map[string]interface{}{
		"patientId":   patientID,
		"patientName": "Patient " + patientID,
		"symptoms":    symptoms,
		"duration":    "3 days",
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp symptomCheckResponse
	decodeBody(t, w, &resp)
	return resp
}

func withPathValue(req *http.Request, key, value string) *http.Request {
	req.SetPathValue(key, value)
	return req
}

func TestPortalHandler_SubmitSymptomCheck(t *testing.T) {
	t.Run("assesses and queues", func(t *testing.T) {
		app := newTestApp(t)
		resp := submitCheck(t, app, "p-1", "chest pain", "sweating")

		assert.Equal(t, entities.UrgencyCritical, resp.Assessment.UrgencyLevel)
		assert.Equal(t, resp.Assessment, resp.SymptomCheck.AIAssessment)
		assert.Equal(t, entities.SymptomCheckPending, resp.SymptomCheck.Status)
		assert.LessOrEqual(t, len(resp.Assessment.PossibleConditions), 4)

		w := httptest.NewRecorder()
		app.portal.GetQueue(w, httptest.NewRequest("GET", "/api/portal/queue", nil))
		var queue []entities.QueueItem
		decodeBody(t, w, &queue)
		require.Len(t, queue, 1)
		assert.Equal(t, resp.SymptomCheck.ID, queue[0].SymptomCheckID)
		assert.Equal(t, entities.UrgencyCritical.BaseWaitMinutes(), queue[0].EstimatedWaitTime)
	})

	t.Run("requires duration", func(t *testing.T) {
		app := newTestApp(t)
		w := httptest.NewRecorder()
		app.portal.SubmitSymptomCheck(w, jsonRequest(t, "POST", "/api/portal/symptom-check", map[string]interface{}{
			"patientId":   "p-1",
			"patientName": "Pat",
			"symptoms":    []string{"cough"},
		}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, app.gen.calls)
	})
}

func TestPortalHandler_Queue(t *testing.T) {
	app := newTestApp(t)
	mild := submitCheck(t, app, "p-1", "mild cough")
	severe := submitCheck(t, app, "p-2", "chest pain")

	w := httptest.NewRecorder()
	app.portal.GetQueue(w, httptest.NewRequest("GET", "/api/portal/queue", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var queue []entities.QueueItem
	decodeBody(t, w, &queue)
	require.Len(t, queue, 2)
	assert.Equal(t, severe.SymptomCheck.ID, queue[0].SymptomCheckID)
	assert.Equal(t, mild.SymptomCheck.ID, queue[1].SymptomCheckID)

	itemID := queue[1].ID

	t.Run("advances status", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := withPathValue(jsonRequest(t, "PATCH", "/api/portal/queue/"+itemID, map[string]string{"status": "in-progress"}), "id", itemID)
		app.portal.UpdateQueueItem(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		var item entities.QueueItem
		decodeBody(t, w, &item)
		assert.Equal(t, entities.QueueInProgress, item.Status)
	})

	t.Run("refuses to move backwards", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := withPathValue(jsonRequest(t, "PATCH", "/api/portal/queue/"+itemID, map[string]string{"status": "waiting"}), "id", itemID)
		app.portal.UpdateQueueItem(w, req)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := withPathValue(jsonRequest(t, "PATCH", "/api/portal/queue/"+itemID, map[string]string{"status": "lost"}), "id", itemID)
		app.portal.UpdateQueueItem(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("removes items", func(t *testing.T) {
		w := httptest.NewRecorder()
		app.portal.RemoveQueueItem(w, withPathValue(httptest.NewRequest("DELETE", "/api/portal/queue/"+itemID, nil), "id", itemID))
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = httptest.NewRecorder()
		app.portal.RemoveQueueItem(w, withPathValue(httptest.NewRequest("DELETE", "/api/portal/queue/"+itemID, nil), "id", itemID))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPortalHandler_SymptomChecks(t *testing.T) {
	app := newTestApp(t)
	first := submitCheck(t, app, "p-1", "headache")
	submitCheck(t, app, "p-2", "back pain")

	t.Run("filters by patient", func(t *testing.T) {
		w := httptest.NewRecorder()
		app.portal.ListSymptomChecks(w, httptest.NewRequest("GET", "/api/portal/symptom-checks?patientId=p-1", nil))
		var checks []entities.SymptomCheck
		decodeBody(t, w, &checks)
		require.Len(t, checks, 1)
		assert.Equal(t, first.SymptomCheck.ID, checks[0].ID)
	})

	t.Run("lists all", func(t *testing.T) {
		w := httptest.NewRecorder()
		app.portal.ListSymptomChecks(w, httptest.NewRequest("GET", "/api/portal/symptom-checks", nil))
		var checks []entities.SymptomCheck
		decodeBody(t, w, &checks)
		assert.Len(t, checks, 2)
	})

	t.Run("gets one", func(t *testing.T) {
		w := httptest.NewRecorder()
		app.portal.GetSymptomCheck(w, withPathValue(httptest.NewRequest("GET", "/api/portal/symptom-checks/x", nil), "id", first.SymptomCheck.ID))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		app.portal.GetSymptomCheck(w, withPathValue(httptest.NewRequest("GET", "/api/portal/symptom-checks/x", nil), "id", "missing"))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("report for unknown check is 404", func(t *testing.T) {
		w := httptest.NewRecorder()
		app.portal.GetCaseReport(w, withPathValue(httptest.NewRequest("GET", "/api/portal/symptom-checks/missing/report", nil), "id", "missing"))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	})
}

func TestPortalHandler_DoctorWorkflow(t *testing.T) {
	app := newTestApp(t)
	check := submitCheck(t, app, "p-1", "rash on my arm").SymptomCheck

	t.Run("case insights move the check into review", func(t *testing.T) {
		w := httptest.NewRecorder()
		app.portal.GetCaseInsights(w, jsonRequest(t, "POST", "/api/portal/case-insights", map[string]string{
			"symptomCheckId": check.ID,
			"doctorId":       "d-1",
		}))
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Insights      entities.DoctorInsights          `json:"insights"`
			TreatmentPlan entities.TreatmentPlanSuggestion `json:"treatmentPlan"`
		}
		decodeBody(t, w, &body)
		assert.NotEmpty(t, body.Insights.RecommendedTests)
		assert.NotEmpty(t, body.TreatmentPlan.FollowUp)

		w = httptest.NewRecorder()
		app.portal.GetSymptomCheck(w, withPathValue(httptest.NewRequest("GET", "/", nil), "id", check.ID))
		var updated entities.SymptomCheck
		decodeBody(t, w, &updated)
		assert.Equal(t, entities.SymptomCheckInReview, updated.Status)
		assert.Equal(t, "d-1", updated.AssignedDoctor)
	})

	t.Run("case insights require an id", func(t *testing.T) {
		w := httptest.NewRecorder()
		app.portal.GetCaseInsights(w, jsonRequest(t, "POST", "/api/portal/case-insights", map[string]string{}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("doctor note completes the case", func(t *testing.T) {
		w := httptest.NewRecorder()
		app.portal.AddDoctorNote(w, jsonRequest(t, "POST", "/api/portal/doctor-note", map[string]string{
			"symptomCheckId": check.ID,
			"doctorId":       "d-1",
			"doctorName":     "Dr. Ade",
			"diagnosis":      "Contact dermatitis",
			"treatment":      "Hydrocortisone cream",
		}))
		require.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		app.portal.ListDoctorNotes(w, withPathValue(httptest.NewRequest("GET", "/", nil), "id", check.ID))
		var notes []entities.DoctorNote
		decodeBody(t, w, &notes)
		require.Len(t, notes, 1)
		assert.Equal(t, "Contact dermatitis", notes[0].Diagnosis)

		w = httptest.NewRecorder()
		app.portal.GetQueue(w, httptest.NewRequest("GET", "/api/portal/queue", nil))
		var queue []entities.QueueItem
		decodeBody(t, w, &queue)
		require.Len(t, queue, 1)
		assert.Equal(t, entities.QueueCompleted, queue[0].Status)
	})

	t.Run("doctor note validates fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		app.portal.AddDoctorNote(w, jsonRequest(t, "POST", "/api/portal/doctor-note", map[string]string{
			"symptomCheckId": check.ID,
		}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("statistics", func(t *testing.T) {
		w := httptest.NewRecorder()
		app.portal.GetStatistics(w, httptest.NewRequest("GET", "/api/portal/statistics", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var stats entities.PortalStatistics
		decodeBody(t, w, &stats)
		assert.Equal(t, 1, stats.TotalChecksToday)
		assert.Equal(t, 1, stats.CompletedToday)
		assert.Zero(t, stats.PendingReviews)
	})
}
