package handlers

import (
	"net/http"

	"github.com/medicrew/backend/internal/application/services"
	"github.com/medicrew/backend/internal/domain/entities"
)

// PatientHandler serves patient and doctor records, consultation history and notifications
type PatientHandler struct {
	patients      *services.PatientService
	doctors       *services.DoctorService
	consultations *services.ConsultationService
	notifications *services.NotificationService
}

// NewPatientHandler creates a new patient handler
func NewPatientHandler(
	patients *services.PatientService,
	doctors *services.DoctorService,
	consultations *services.ConsultationService,
	notifications *services.NotificationService,
) *PatientHandler {
	return &PatientHandler{
		patients:      patients,
		doctors:       doctors,
		consultations: consultations,
		notifications: notifications,
	}
}

// ListPatients handles GET /api/patients
func (h *PatientHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.patients.List(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, patients)
}

// RegisterPatient handles POST /api/patients
func (h *PatientHandler) RegisterPatient(w http.ResponseWriter, r *http.Request) {
	var patient entities.Patient
	if err := decodeJSON(r, &patient); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	patient.ID = ""

	saved, err := h.patients.Register(r.Context(), &patient)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, saved)
}

// GetPatient handles GET /api/patients/{id}
func (h *PatientHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	detail, err := h.patients.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, detail)
}

// ListDoctors handles GET /api/doctors
func (h *PatientHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.doctors.List(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, doctors)
}

// RegisterDoctor handles POST /api/doctors
func (h *PatientHandler) RegisterDoctor(w http.ResponseWriter, r *http.Request) {
	var doctor entities.Doctor
	if err := decodeJSON(r, &doctor); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	doctor.ID = ""

	saved, err := h.doctors.Register(r.Context(), &doctor)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, saved)
}

// ListConsultations handles GET /api/consultations?patientId=
func (h *PatientHandler) ListConsultations(w http.ResponseWriter, r *http.Request) {
	records, err := h.consultations.ListByPatient(r.Context(), r.URL.Query().Get("patientId"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, records)
}

// SaveConsultation handles POST /api/consultations
func (h *PatientHandler) SaveConsultation(w http.ResponseWriter, r *http.Request) {
	var record entities.ConsultationRecord
	if err := decodeJSON(r, &record); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	record.ID = ""

	saved, err := h.consultations.Save(r.Context(), &record)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, saved)
}

// ListNotifications handles GET /api/notifications?patientId=
func (h *PatientHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.notifications.ListByPatient(r.Context(), r.URL.Query().Get("patientId"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, notifications)
}

// SendNotification handles POST /api/notifications
func (h *PatientHandler) SendNotification(w http.ResponseWriter, r *http.Request) {
	var req services.NotificationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	notification, err := h.notifications.Send(r.Context(), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, notification)
}

type markReadRequest struct {
	NotificationID string `json:"notificationId"`
}

// MarkNotificationRead handles PATCH /api/notifications
func (h *PatientHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	notification, err := h.notifications.MarkRead(r.Context(), req.NotificationID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, notification)
}
