package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medicrew/backend/internal/application/orchestrator"
	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/domain/providers"
	"github.com/medicrew/backend/internal/domain/repositories"
	"github.com/medicrew/backend/internal/infrastructure/observability"
	apperrors "github.com/medicrew/backend/pkg/errors"
)

// Consulter runs multi-agent consultations
type Consulter interface {
	StreamConsultation(ctx context.Context, symptoms string, additionalInfo []string, emit orchestrator.EmitFunc) (*entities.ConsultationState, error)
	RunCaseConsultation(ctx context.Context, check *entities.SymptomCheck, emit orchestrator.EmitFunc) (*entities.ConsultationState, error)
}

// ConsultationService runs consultations and keeps the records saved for patients
type ConsultationService struct {
	eventPublisher
	consulter Consulter
	records   repositories.ConsultationRepository
	patients  repositories.PatientRepository
	checks    repositories.SymptomCheckRepository
}

// NewConsultationService creates a new consultation service
func NewConsultationService(
	consulter Consulter,
	records repositories.ConsultationRepository,
	patients repositories.PatientRepository,
	checks repositories.SymptomCheckRepository,
) *ConsultationService {
	return &ConsultationService{
		consulter: consulter,
		records:   records,
		patients:  patients,
		checks:    checks,
	}
}

// Consult runs the patient-facing team over symptoms. With a patientID the
// completed consultation is saved to that patient's history. emit may be nil.
func (s *ConsultationService) Consult(ctx context.Context, symptoms, patientID string, emit orchestrator.EmitFunc) (*entities.ConsultationState, error) {
	if strings.TrimSpace(symptoms) == "" {
		return nil, apperrors.NewValidationError("Symptoms are required")
	}
	if patientID != "" {
		if _, err := s.patients.GetByID(ctx, patientID); err != nil {
			if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
				return nil, apperrors.NewNotFoundError("Patient not found")
			}
			return nil, err
		}
	}

	state, err := s.consulter.StreamConsultation(ctx, symptoms, nil, emit)
	if err != nil {
		return nil, err
	}

	if patientID != "" {
		record := entities.NewConsultationRecord(patientID, state)
		if _, err := s.Save(ctx, record); err != nil {
			observability.LoggerFromContext(ctx).Error().
				Err(err).
				Str("patient_id", patientID).
				Str("session_id", state.SessionID).
				Msg("failed to save consultation")
			return nil, err
		}
	}
	return state, nil
}

// CaseConsult runs the clinical team over a submitted symptom check
func (s *ConsultationService) CaseConsult(ctx context.Context, check *entities.SymptomCheck, emit orchestrator.EmitFunc) (*entities.ConsultationState, error) {
	return s.consulter.RunCaseConsultation(ctx, check, emit)
}

// LoadCase validates and fetches the symptom check for a case consultation
func (s *ConsultationService) LoadCase(ctx context.Context, symptomCheckID string) (*entities.SymptomCheck, error) {
	if symptomCheckID == "" {
		return nil, apperrors.NewValidationError("symptomCheckId is required")
	}
	check, err := s.checks.GetByID(ctx, symptomCheckID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewNotFoundError("Symptom check not found")
		}
		return nil, err
	}
	return check, nil
}

// Save stores a consultation record
func (s *ConsultationService) Save(ctx context.Context, record *entities.ConsultationRecord) (*entities.ConsultationRecord, error) {
	if record.PatientID == "" || strings.TrimSpace(record.Symptoms) == "" {
		return nil, apperrors.NewValidationError("Patient ID and symptoms are required")
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.RedFlags == nil {
		record.RedFlags = []string{}
	}
	record.CreatedAt = time.Now().UTC()

	if err := s.records.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save consultation: %w", err)
	}
	s.publish(ctx, providers.GetPatientChannel(record.PatientID),
		entities.NewPortalEvent(entities.PortalEventConsultationCompleted, record.PatientID, record))
	return record, nil
}

// ListByPatient returns a patient's consultations newest first
func (s *ConsultationService) ListByPatient(ctx context.Context, patientID string) ([]*entities.ConsultationRecord, error) {
	if patientID == "" {
		return nil, apperrors.NewValidationError("Patient ID is required")
	}
	return s.records.ListByPatient(ctx, patientID)
}
