package entities

import (
	"time"

	"github.com/google/uuid"
)

// PortalEventType represents the type of portal event
type PortalEventType string

const (
	PortalEventSymptomCheckCreated   PortalEventType = "symptom_check_created"
	PortalEventSymptomCheckUpdated   PortalEventType = "symptom_check_updated"
	PortalEventQueueUpdated          PortalEventType = "queue_updated"
	PortalEventDoctorNoteCreated     PortalEventType = "doctor_note_created"
	PortalEventNotificationCreated   PortalEventType = "notification_created"
	PortalEventConsultationCompleted PortalEventType = "consultation_completed"
)

// PortalEvent is a real-time update pushed to dashboards and patient sessions
type PortalEvent struct {
	ID        string          `json:"id"`
	Type      PortalEventType `json:"type"`
	PatientID string          `json:"patientId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      interface{}     `json:"data,omitempty"`
}

// NewPortalEvent creates a new portal event
func NewPortalEvent(eventType PortalEventType, patientID string, data interface{}) *PortalEvent {
	return &PortalEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		PatientID: patientID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}
