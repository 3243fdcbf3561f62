// Package memory holds process-local repositories used when no database is
// configured and in tests. State is lost on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/domain/repositories"
	apperrors "github.com/medicrew/backend/pkg/errors"
)

// SymptomCheckStore implements SymptomCheckRepository in memory
type SymptomCheckStore struct {
	mu     sync.RWMutex
	checks map[string]*entities.SymptomCheck
	order  []string
}

// NewSymptomCheckStore creates an empty store
func NewSymptomCheckStore() *SymptomCheckStore {
	return &SymptomCheckStore{checks: make(map[string]*entities.SymptomCheck)}
}

var _ repositories.SymptomCheckRepository = (*SymptomCheckStore)(nil)

// Create stores a new symptom check
func (s *SymptomCheckStore) Create(ctx context.Context, check *entities.SymptomCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.checks[check.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("symptom check %s already exists", check.ID))
	}
	s.checks[check.ID] = cloneCheck(check)
	s.order = append(s.order, check.ID)
	return nil
}

// GetByID retrieves a symptom check by ID
func (s *SymptomCheckStore) GetByID(ctx context.Context, id string) (*entities.SymptomCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	check, ok := s.checks[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("symptom check with id %s not found", id))
	}
	return cloneCheck(check), nil
}

// List returns symptom checks newest first
func (s *SymptomCheckStore) List(ctx context.Context, filter repositories.SymptomCheckFilter) ([]*entities.SymptomCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.SymptomCheck, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		check := s.checks[s.order[i]]
		if filter.PatientID != "" && check.PatientID != filter.PatientID {
			continue
		}
		out = append(out, cloneCheck(check))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateStatus advances a check's status. Moving backwards is a conflict.
func (s *SymptomCheckStore) UpdateStatus(ctx context.Context, id string, status entities.SymptomCheckStatus, assignedDoctor string) (*entities.SymptomCheck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	check, ok := s.checks[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("symptom check with id %s not found", id))
	}
	if !check.Status.CanAdvanceTo(status) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("cannot move symptom check from %s to %s", check.Status, status))
	}
	check.Status = status
	if assignedDoctor != "" {
		check.AssignedDoctor = assignedDoctor
	}
	return cloneCheck(check), nil
}

// Delete removes a symptom check
func (s *SymptomCheckStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.checks[id]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("symptom check with id %s not found", id))
	}
	delete(s.checks, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func cloneCheck(check *entities.SymptomCheck) *entities.SymptomCheck {
	c := *check
	c.Symptoms = append([]string(nil), check.Symptoms...)
	c.AIAssessment.PossibleConditions = append([]string(nil), check.AIAssessment.PossibleConditions...)
	c.AIAssessment.QuestionsToAsk = append([]string(nil), check.AIAssessment.QuestionsToAsk...)
	return &c
}

// QueueStore implements QueueRepository in memory
type QueueStore struct {
	mu    sync.RWMutex
	items map[string]*entities.QueueItem
	order []string
}

// NewQueueStore creates an empty queue
func NewQueueStore() *QueueStore {
	return &QueueStore{items: make(map[string]*entities.QueueItem)}
}

var _ repositories.QueueRepository = (*QueueStore)(nil)

// Enqueue counts waiting items and inserts under one lock
func (s *QueueStore) Enqueue(ctx context.Context, item *entities.QueueItem, estimate repositories.WaitEstimator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("queue item %s already exists", item.ID))
	}

	waiting := 0
	for _, existing := range s.items {
		if existing.Status == entities.QueueWaiting {
			waiting++
		}
	}
	item.EstimatedWaitTime = estimate(waiting)

	stored := *item
	s.items[item.ID] = &stored
	s.order = append(s.order, item.ID)
	return nil
}

// GetByID retrieves a queue item by ID
func (s *QueueStore) GetByID(ctx context.Context, id string) (*entities.QueueItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("queue item with id %s not found", id))
	}
	c := *item
	return &c, nil
}

// GetBySymptomCheckID retrieves the first item created for a symptom check
func (s *QueueStore) GetBySymptomCheckID(ctx context.Context, symptomCheckID string) (*entities.QueueItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.order {
		if item := s.items[id]; item.SymptomCheckID == symptomCheckID {
			c := *item
			return &c, nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("queue item for symptom check %s not found", symptomCheckID))
}

// List returns every item in insertion order
func (s *QueueStore) List(ctx context.Context) ([]*entities.QueueItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.QueueItem, 0, len(s.order))
	for _, id := range s.order {
		c := *s.items[id]
		out = append(out, &c)
	}
	return out, nil
}

// UpdateStatus advances an item's status. Moving backwards is a conflict.
func (s *QueueStore) UpdateStatus(ctx context.Context, id string, status entities.QueueStatus) (*entities.QueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("queue item with id %s not found", id))
	}
	if !item.Status.CanAdvanceTo(status) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("cannot move queue item from %s to %s", item.Status, status))
	}
	item.Status = status
	c := *item
	return &c, nil
}

// Remove deletes an item
func (s *QueueStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("queue item with id %s not found", id))
	}
	delete(s.items, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// DoctorNoteStore implements DoctorNoteRepository in memory
type DoctorNoteStore struct {
	mu    sync.RWMutex
	notes []*entities.DoctorNote
}

// NewDoctorNoteStore creates an empty store
func NewDoctorNoteStore() *DoctorNoteStore {
	return &DoctorNoteStore{}
}

var _ repositories.DoctorNoteRepository = (*DoctorNoteStore)(nil)

// Create stores a doctor note
func (s *DoctorNoteStore) Create(ctx context.Context, note *entities.DoctorNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *note
	s.notes = append(s.notes, &c)
	return nil
}

// ListBySymptomCheck returns notes for a check newest first
func (s *DoctorNoteStore) ListBySymptomCheck(ctx context.Context, symptomCheckID string) ([]*entities.DoctorNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.DoctorNote, 0)
	for i := len(s.notes) - 1; i >= 0; i-- {
		if s.notes[i].SymptomCheckID == symptomCheckID {
			c := *s.notes[i]
			out = append(out, &c)
		}
	}
	return out, nil
}
