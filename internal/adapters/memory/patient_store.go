package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/domain/repositories"
	apperrors "github.com/medicrew/backend/pkg/errors"
)

// PatientStore implements PatientRepository in memory
type PatientStore struct {
	mu       sync.RWMutex
	patients map[string]*entities.Patient
	byEmail  map[string]string
}

// NewPatientStore creates an empty store
func NewPatientStore() *PatientStore {
	return &PatientStore{
		patients: make(map[string]*entities.Patient),
		byEmail:  make(map[string]string),
	}
}

var _ repositories.PatientRepository = (*PatientStore)(nil)

// Upsert creates the patient or updates the one with the same email
func (s *PatientStore) Upsert(ctx context.Context, patient *entities.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(patient.Email)
	if id, ok := s.byEmail[key]; ok {
		existing := s.patients[id]
		patient.ID = existing.ID
		patient.CreatedAt = existing.CreatedAt
	} else {
		s.byEmail[key] = patient.ID
	}
	c := *patient
	s.patients[patient.ID] = &c
	return nil
}

// GetByID retrieves a patient by ID
func (s *PatientStore) GetByID(ctx context.Context, id string) (*entities.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	patient, ok := s.patients[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("patient with id %s not found", id))
	}
	c := *patient
	return &c, nil
}

// List returns patients most recently updated first
func (s *PatientStore) List(ctx context.Context) ([]*entities.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.Patient, 0, len(s.patients))
	for _, patient := range s.patients {
		c := *patient
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// DoctorStore implements DoctorRepository in memory
type DoctorStore struct {
	mu      sync.RWMutex
	doctors map[string]*entities.Doctor
	byEmail map[string]string
}

// NewDoctorStore creates an empty store
func NewDoctorStore() *DoctorStore {
	return &DoctorStore{
		doctors: make(map[string]*entities.Doctor),
		byEmail: make(map[string]string),
	}
}

var _ repositories.DoctorRepository = (*DoctorStore)(nil)

// Upsert creates the doctor or updates the one with the same email
func (s *DoctorStore) Upsert(ctx context.Context, doctor *entities.Doctor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(doctor.Email)
	if id, ok := s.byEmail[key]; ok {
		existing := s.doctors[id]
		doctor.ID = existing.ID
		doctor.CreatedAt = existing.CreatedAt
	} else {
		s.byEmail[key] = doctor.ID
	}
	c := *doctor
	s.doctors[doctor.ID] = &c
	return nil
}

// GetByID retrieves a doctor by ID
func (s *DoctorStore) GetByID(ctx context.Context, id string) (*entities.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doctor, ok := s.doctors[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("doctor with id %s not found", id))
	}
	c := *doctor
	return &c, nil
}

// List returns doctors ordered by name
func (s *DoctorStore) List(ctx context.Context) ([]*entities.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.Doctor, 0, len(s.doctors))
	for _, doctor := range s.doctors {
		c := *doctor
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// ConsultationStore implements ConsultationRepository in memory
type ConsultationStore struct {
	mu      sync.RWMutex
	records []*entities.ConsultationRecord
}

// NewConsultationStore creates an empty store
func NewConsultationStore() *ConsultationStore {
	return &ConsultationStore{}
}

var _ repositories.ConsultationRepository = (*ConsultationStore)(nil)

// Create stores a consultation
func (s *ConsultationStore) Create(ctx context.Context, record *entities.ConsultationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *record
	s.records = append(s.records, &c)
	return nil
}

// ListByPatient returns a patient's consultations newest first
func (s *ConsultationStore) ListByPatient(ctx context.Context, patientID string) ([]*entities.ConsultationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.ConsultationRecord, 0)
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].PatientID == patientID {
			c := *s.records[i]
			out = append(out, &c)
		}
	}
	return out, nil
}

// NotificationStore implements NotificationRepository in memory
type NotificationStore struct {
	mu            sync.RWMutex
	notifications []*entities.Notification
}

// NewNotificationStore creates an empty store
func NewNotificationStore() *NotificationStore {
	return &NotificationStore{}
}

var _ repositories.NotificationRepository = (*NotificationStore)(nil)

// Create stores a notification
func (s *NotificationStore) Create(ctx context.Context, notification *entities.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *notification
	s.notifications = append(s.notifications, &c)
	return nil
}

// ListByPatient returns a patient's notifications newest first
func (s *NotificationStore) ListByPatient(ctx context.Context, patientID string) ([]*entities.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.Notification, 0)
	for i := len(s.notifications) - 1; i >= 0; i-- {
		if s.notifications[i].PatientID == patientID {
			c := *s.notifications[i]
			out = append(out, &c)
		}
	}
	return out, nil
}

// MarkRead flags a notification as read
func (s *NotificationStore) MarkRead(ctx context.Context, id string) (*entities.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, notification := range s.notifications {
		if notification.ID == id {
			notification.Read = true
			c := *notification
			return &c, nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("notification with id %s not found", id))
}
