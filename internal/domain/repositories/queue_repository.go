package repositories

import (
	"context"

	"github.com/medicrew/backend/internal/domain/entities"
)

// WaitEstimator computes an item's wait time from the number of items already waiting
type WaitEstimator func(waiting int) int

// QueueRepository defines the interface for doctor queue persistence
type QueueRepository interface {
	// Enqueue counts waiting items, sets item.EstimatedWaitTime from estimate and
	// stores the item as one atomic step.
	Enqueue(ctx context.Context, item *entities.QueueItem, estimate WaitEstimator) error

	// GetByID retrieves a queue item by ID
	GetByID(ctx context.Context, id string) (*entities.QueueItem, error)

	// GetBySymptomCheckID retrieves the item created for a symptom check
	GetBySymptomCheckID(ctx context.Context, symptomCheckID string) (*entities.QueueItem, error)

	// List returns every item in insertion order
	List(ctx context.Context) ([]*entities.QueueItem, error)

	// UpdateStatus advances an item's status. Moving backwards is a conflict.
	UpdateStatus(ctx context.Context, id string, status entities.QueueStatus) (*entities.QueueItem, error)

	// Remove deletes an item
	Remove(ctx context.Context, id string) error
}
