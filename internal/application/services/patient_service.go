package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/domain/repositories"
	apperrors "github.com/medicrew/backend/pkg/errors"
)

// PatientService manages portal patients and their history
type PatientService struct {
	patients      repositories.PatientRepository
	consultations repositories.ConsultationRepository
	notifications repositories.NotificationRepository
}

// NewPatientService creates a new patient service
func NewPatientService(
	patients repositories.PatientRepository,
	consultations repositories.ConsultationRepository,
	notifications repositories.NotificationRepository,
) *PatientService {
	return &PatientService{
		patients:      patients,
		consultations: consultations,
		notifications: notifications,
	}
}

// Register creates the patient or updates the one registered with the same email
func (s *PatientService) Register(ctx context.Context, patient *entities.Patient) (*entities.Patient, error) {
	patient.Email = strings.TrimSpace(patient.Email)
	patient.Name = strings.TrimSpace(patient.Name)
	if patient.Email == "" || patient.Name == "" {
		return nil, apperrors.NewValidationError("Email and name are required")
	}

	now := time.Now().UTC()
	if patient.ID == "" {
		patient.ID = uuid.New().String()
	}
	patient.CreatedAt = now
	patient.UpdatedAt = now

	if err := s.patients.Upsert(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to save patient: %w", err)
	}
	return patient, nil
}

// List returns patients most recently updated first
func (s *PatientService) List(ctx context.Context) ([]*entities.Patient, error) {
	return s.patients.List(ctx)
}

// Get returns a patient with their consultations and notifications
func (s *PatientService) Get(ctx context.Context, id string) (*entities.PatientDetail, error) {
	patient, err := s.patients.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewNotFoundError("Patient not found")
		}
		return nil, err
	}

	consultations, err := s.consultations.ListByPatient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list consultations: %w", err)
	}
	notifications, err := s.notifications.ListByPatient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return &entities.PatientDetail{
		Patient:       patient,
		Consultations: consultations,
		Notifications: notifications,
	}, nil
}

// DoctorService manages dashboard clinicians
type DoctorService struct {
	doctors repositories.DoctorRepository
}

// NewDoctorService creates a new doctor service
func NewDoctorService(doctors repositories.DoctorRepository) *DoctorService {
	return &DoctorService{doctors: doctors}
}

// Register creates the doctor or updates the one registered with the same email
func (s *DoctorService) Register(ctx context.Context, doctor *entities.Doctor) (*entities.Doctor, error) {
	doctor.Email = strings.TrimSpace(doctor.Email)
	doctor.Name = strings.TrimSpace(doctor.Name)
	doctor.Specialty = strings.TrimSpace(doctor.Specialty)
	if doctor.Name == "" || doctor.Email == "" || doctor.Specialty == "" {
		return nil, apperrors.NewValidationError("Name, email, and specialty are required")
	}

	now := time.Now().UTC()
	if doctor.ID == "" {
		doctor.ID = uuid.New().String()
	}
	doctor.CreatedAt = now
	doctor.UpdatedAt = now

	if err := s.doctors.Upsert(ctx, doctor); err != nil {
		return nil, fmt.Errorf("failed to save doctor: %w", err)
	}
	return doctor, nil
}

// List returns doctors ordered by name
func (s *DoctorService) List(ctx context.Context) ([]*entities.Doctor, error) {
	return s.doctors.List(ctx)
}
