package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/domain/repositories"
	"github.com/medicrew/backend/internal/infrastructure/observability"
	apperrors "github.com/medicrew/backend/pkg/errors"
)

// QueueService manages the doctor's patient queue
type QueueService struct {
	eventPublisher
	repo    repositories.QueueRepository
	metrics *observability.DomainMetrics
}

// NewQueueService creates a new queue service
func NewQueueService(repo repositories.QueueRepository) *QueueService {
	return &QueueService{repo: repo}
}

// SetMetrics enables the queue depth gauge
func (s *QueueService) SetMetrics(metrics *observability.DomainMetrics) {
	s.metrics = metrics
}

// Enqueue adds a patient to the queue. The wait estimate is derived from the
// number of patients already waiting at the moment of insertion.
func (s *QueueService) Enqueue(ctx context.Context, patientID, patientName string, urgency entities.UrgencyLevel, symptomCheckID string) (*entities.QueueItem, error) {
	if !urgency.Valid() {
		return nil, apperrors.NewValidationError("invalid urgency level")
	}

	item := &entities.QueueItem{
		ID:             uuid.New().String(),
		PatientID:      patientID,
		PatientName:    patientName,
		UrgencyLevel:   urgency,
		Status:         entities.QueueWaiting,
		SymptomCheckID: symptomCheckID,
		CheckInTime:    time.Now().UTC(),
	}
	estimate := func(waiting int) int {
		return entities.EstimateWaitTime(urgency, waiting)
	}
	if err := s.repo.Enqueue(ctx, item, estimate); err != nil {
		return nil, fmt.Errorf("failed to enqueue patient: %w", err)
	}

	s.changed(ctx, item)
	return item, nil
}

// ListOrderedByUrgency returns the queue most severe first, ties in check-in order
func (s *QueueService) ListOrderedByUrgency(ctx context.Context) ([]*entities.QueueItem, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}
	entities.SortQueueByUrgency(items)
	return items, nil
}

// UpdateStatus moves an item forward through waiting, in-progress and completed
func (s *QueueService) UpdateStatus(ctx context.Context, id string, status entities.QueueStatus) (*entities.QueueItem, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid queue status")
	}
	item, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, item)
	return item, nil
}

// AdvanceForCheck moves the item created for a symptom check to status if it
// is behind it. A check without a queue item is not an error.
func (s *QueueService) AdvanceForCheck(ctx context.Context, symptomCheckID string, status entities.QueueStatus) error {
	item, err := s.repo.GetBySymptomCheckID(ctx, symptomCheckID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil
		}
		return err
	}
	if item.Status == status || !item.Status.CanAdvanceTo(status) {
		return nil
	}
	_, err = s.UpdateStatus(ctx, item.ID, status)
	return err
}

// Remove deletes an item from the queue
func (s *QueueService) Remove(ctx context.Context, id string) error {
	if err := s.repo.Remove(ctx, id); err != nil {
		return err
	}
	s.publishPortal(ctx, entities.NewPortalEvent(entities.PortalEventQueueUpdated, "", map[string]string{"removed": id}))
	s.refreshDepth(ctx)
	return nil
}

func (s *QueueService) changed(ctx context.Context, item *entities.QueueItem) {
	s.publishPortal(ctx, entities.NewPortalEvent(entities.PortalEventQueueUpdated, item.PatientID, item))
	s.refreshDepth(ctx)
}

func (s *QueueService) refreshDepth(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	items, err := s.repo.List(ctx)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to refresh queue depth")
		return
	}
	counts := make(map[string]int, len(entities.UrgencyLevels))
	for _, level := range entities.UrgencyLevels {
		counts[string(level)] = 0
	}
	for _, item := range items {
		if item.Status == entities.QueueWaiting {
			counts[string(item.UrgencyLevel)]++
		}
	}
	s.metrics.SetQueueDepth(counts)
}
