package repositories

import (
	"context"

	"github.com/medicrew/backend/internal/domain/entities"
)

// SymptomCheckFilter narrows a symptom check listing
type SymptomCheckFilter struct {
	PatientID string
}

// SymptomCheckRepository defines the interface for symptom check persistence
type SymptomCheckRepository interface {
	// Create stores a new symptom check
	Create(ctx context.Context, check *entities.SymptomCheck) error

	// GetByID retrieves a symptom check by ID
	GetByID(ctx context.Context, id string) (*entities.SymptomCheck, error)

	// List returns symptom checks newest first
	List(ctx context.Context, filter SymptomCheckFilter) ([]*entities.SymptomCheck, error)

	// UpdateStatus advances a check's status. Moving backwards is a conflict.
	// assignedDoctor is left unchanged when empty.
	UpdateStatus(ctx context.Context, id string, status entities.SymptomCheckStatus, assignedDoctor string) (*entities.SymptomCheck, error)

	// Delete removes a check that never reached the queue
	Delete(ctx context.Context, id string) error
}

// DoctorNoteRepository defines the interface for doctor note persistence
type DoctorNoteRepository interface {
	Create(ctx context.Context, note *entities.DoctorNote) error

	// ListBySymptomCheck returns notes for a check newest first
	ListBySymptomCheck(ctx context.Context, symptomCheckID string) ([]*entities.DoctorNote, error)
}
