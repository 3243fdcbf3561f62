package handlers

import (
	"bytes"
	"net/http"

	"github.com/medicrew/backend/internal/application/services"
	"github.com/medicrew/backend/internal/domain/entities"
)

// PortalHandler serves the doctor/patient portal
type PortalHandler struct {
	portal  *services.PortalService
	queue   *services.QueueService
	reports *services.ReportService
}

// NewPortalHandler creates a new portal handler
func NewPortalHandler(portal *services.PortalService, queue *services.QueueService, reports *services.ReportService) *PortalHandler {
	return &PortalHandler{
		portal:  portal,
		queue:   queue,
		reports: reports,
	}
}

type symptomCheckResponse struct {
	Assessment   entities.AIAssessment  `json:"assessment"`
	SymptomCheck *entities.SymptomCheck `json:"symptomCheck"`
}

// SubmitSymptomCheck handles POST /api/portal/symptom-check
func (h *PortalHandler) SubmitSymptomCheck(w http.ResponseWriter, r *http.Request) {
	var req services.SymptomCheckRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	check, err := h.portal.SubmitSymptomCheck(r.Context(), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, symptomCheckResponse{
		Assessment:   check.AIAssessment,
		SymptomCheck: check,
	})
}

// ListSymptomChecks handles GET /api/portal/symptom-checks
func (h *PortalHandler) ListSymptomChecks(w http.ResponseWriter, r *http.Request) {
	checks, err := h.portal.ListSymptomChecks(r.Context(), r.URL.Query().Get("patientId"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, checks)
}

// GetSymptomCheck handles GET /api/portal/symptom-checks/{id}
func (h *PortalHandler) GetSymptomCheck(w http.ResponseWriter, r *http.Request) {
	check, err := h.portal.GetSymptomCheck(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, check)
}

// ListDoctorNotes handles GET /api/portal/symptom-checks/{id}/notes
func (h *PortalHandler) ListDoctorNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.portal.ListDoctorNotes(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, notes)
}

// GetCaseReport handles GET /api/portal/symptom-checks/{id}/report
func (h *PortalHandler) GetCaseReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	// render fully before writing so failures still get a JSON error
	var buf bytes.Buffer
	if err := h.reports.WriteCaseReport(r.Context(), id, &buf); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="case-`+id+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// GetQueue handles GET /api/portal/queue
func (h *PortalHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	items, err := h.queue.ListOrderedByUrgency(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, items)
}

type queueStatusRequest struct {
	Status entities.QueueStatus `json:"status"`
}

// UpdateQueueItem handles PATCH /api/portal/queue/{id}
func (h *PortalHandler) UpdateQueueItem(w http.ResponseWriter, r *http.Request) {
	var req queueStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	item, err := h.queue.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, item)
}

// RemoveQueueItem handles DELETE /api/portal/queue/{id}
func (h *PortalHandler) RemoveQueueItem(w http.ResponseWriter, r *http.Request) {
	if err := h.queue.Remove(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStatistics handles GET /api/portal/statistics
func (h *PortalHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.portal.Statistics(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// AddDoctorNote handles POST /api/portal/doctor-note
func (h *PortalHandler) AddDoctorNote(w http.ResponseWriter, r *http.Request) {
	var req services.DoctorNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	note, err := h.portal.AddDoctorNote(r.Context(), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, note)
}

type caseInsightsRequest struct {
	SymptomCheckID string `json:"symptomCheckId"`
	DoctorID       string `json:"doctorId"`
}

// GetCaseInsights handles POST /api/portal/case-insights
func (h *PortalHandler) GetCaseInsights(w http.ResponseWriter, r *http.Request) {
	var req caseInsightsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if req.SymptomCheckID == "" {
		respondWithError(w, http.StatusBadRequest, "symptomCheckId is required")
		return
	}

	insights, err := h.portal.CaseInsights(r.Context(), req.SymptomCheckID, req.DoctorID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, insights)
}
