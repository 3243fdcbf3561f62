package repositories

import (
	"context"

	"github.com/medicrew/backend/internal/domain/entities"
)

// PatientRepository defines the interface for patient data operations
type PatientRepository interface {
	// Upsert creates the patient or updates the one with the same email.
	// The stored record, including its ID, is written back into patient.
	Upsert(ctx context.Context, patient *entities.Patient) error

	// GetByID retrieves a patient by ID
	GetByID(ctx context.Context, id string) (*entities.Patient, error)

	// List returns patients most recently updated first
	List(ctx context.Context) ([]*entities.Patient, error)
}

// DoctorRepository defines the interface for doctor data operations
type DoctorRepository interface {
	// Upsert creates the doctor or updates the one with the same email
	Upsert(ctx context.Context, doctor *entities.Doctor) error

	// GetByID retrieves a doctor by ID
	GetByID(ctx context.Context, id string) (*entities.Doctor, error)

	// List returns doctors ordered by name
	List(ctx context.Context) ([]*entities.Doctor, error)
}

// ConsultationRepository defines the interface for saved consultations
type ConsultationRepository interface {
	Create(ctx context.Context, record *entities.ConsultationRecord) error

	// ListByPatient returns a patient's consultations newest first
	ListByPatient(ctx context.Context, patientID string) ([]*entities.ConsultationRecord, error)
}

// NotificationRepository defines the interface for patient notifications
type NotificationRepository interface {
	Create(ctx context.Context, notification *entities.Notification) error

	// ListByPatient returns a patient's notifications newest first
	ListByPatient(ctx context.Context, patientID string) ([]*entities.Notification, error)

	// MarkRead flags a notification as read
	MarkRead(ctx context.Context, id string) (*entities.Notification, error)
}
