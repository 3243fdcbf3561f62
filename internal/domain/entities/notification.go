package entities

import "time"

// NotificationType represents the notification purpose
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationUrgent  NotificationType = "urgent"
	NotificationResult  NotificationType = "result"
)

// Notification is a message from a doctor (or the system) to a patient
type Notification struct {
	ID        string           `json:"id" db:"id"`
	PatientID string           `json:"patientId" db:"patient_id"`
	DoctorID  string           `json:"doctorId,omitempty" db:"doctor_id"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Type      NotificationType `json:"type" db:"type"`
	Read      bool             `json:"read" db:"read"`
	CreatedAt time.Time        `json:"createdAt" db:"created_at"`
}

// Valid reports whether t is a known notification type
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationInfo, NotificationWarning, NotificationUrgent, NotificationResult:
		return true
	default:
		return false
	}
}
