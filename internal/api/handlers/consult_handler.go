package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/medicrew/backend/internal/application/services"
	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/infrastructure/observability"
)

// ConsultHandler serves the patient consultation and clinical case consultation
type ConsultHandler struct {
	service *services.ConsultationService
}

// NewConsultHandler creates a new consultation handler
func NewConsultHandler(service *services.ConsultationService) *ConsultHandler {
	return &ConsultHandler{service: service}
}

type consultRequest struct {
	Symptoms  string `json:"symptoms"`
	Stream    bool   `json:"stream"`
	PatientID string `json:"patientId"`
}

// Consult handles POST /api/consult
func (h *ConsultHandler) Consult(w http.ResponseWriter, r *http.Request) {
	var req consultRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Symptoms) == "" {
		respondWithError(w, http.StatusBadRequest, "Symptoms are required")
		return
	}

	if !req.Stream {
		state, err := h.service.Consult(r.Context(), req.Symptoms, req.PatientID, nil)
		if err != nil {
			respondWithAppError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, state)
		return
	}

	h.stream(w, r, func(ctx context.Context, stream *consultStream) error {
		_, err := h.service.Consult(ctx, req.Symptoms, req.PatientID, stream.emit)
		return err
	})
}

type caseConsultRequest struct {
	SymptomCheckID string `json:"symptomCheckId"`
}

// CaseConsult handles POST /api/portal/case-consult
func (h *ConsultHandler) CaseConsult(w http.ResponseWriter, r *http.Request) {
	var req caseConsultRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	check, err := h.service.LoadCase(r.Context(), req.SymptomCheckID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	h.stream(w, r, func(ctx context.Context, stream *consultStream) error {
		_, err := h.service.CaseConsult(ctx, check, stream.emit)
		return err
	})
}

func (h *ConsultHandler) stream(w http.ResponseWriter, r *http.Request, run func(context.Context, *consultStream) error) {
	stream, ok := newConsultStream(w)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	err := run(r.Context(), stream)
	switch {
	case err == nil:
		stream.done()
	case !stream.started:
		respondWithAppError(w, r, err)
	case errors.Is(err, context.Canceled):
		observability.LoggerFromContext(r.Context()).Debug().Msg("client left consultation stream")
	default:
		observability.LoggerFromContext(r.Context()).Error().Err(err).Msg("consultation stream failed")
		stream.fail(err)
	}
}

// ListAgents handles GET /api/agents
func (h *ConsultHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, entities.AgentDefinitions())
}
