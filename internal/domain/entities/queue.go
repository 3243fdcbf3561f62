package entities

import (
	"sort"
	"time"
)

// QueueStatus tracks a queued patient through the doctor's day.
type QueueStatus string

const (
	QueueWaiting    QueueStatus = "waiting"
	QueueInProgress QueueStatus = "in-progress"
	QueueCompleted  QueueStatus = "completed"
)

func (s QueueStatus) order() int {
	switch s {
	case QueueWaiting:
		return 0
	case QueueInProgress:
		return 1
	case QueueCompleted:
		return 2
	default:
		return -1
	}
}

// Valid reports whether s is a known status.
func (s QueueStatus) Valid() bool { return s.order() >= 0 }

// CanAdvanceTo reports whether next is the same status or a later one.
func (s QueueStatus) CanAdvanceTo(next QueueStatus) bool {
	return next.Valid() && next.order() >= s.order()
}

// QueueItem is a patient waiting to be seen. UrgencyLevel is a snapshot of
// the symptom check's assessment when the item was created.
type QueueItem struct {
	ID                string       `json:"id" db:"id"`
	PatientID         string       `json:"patientId" db:"patient_id"`
	PatientName       string       `json:"patientName" db:"patient_name"`
	UrgencyLevel      UrgencyLevel `json:"urgencyLevel" db:"urgency_level"`
	EstimatedWaitTime int          `json:"estimatedWaitTime" db:"estimated_wait_time"`
	Status            QueueStatus  `json:"status" db:"status"`
	SymptomCheckID    string       `json:"symptomCheckId" db:"symptom_check_id"`
	CheckInTime       time.Time    `json:"checkInTime" db:"check_in_time"`
}

// WaitMinutesPerPatient is added to the estimate for every patient already waiting.
const WaitMinutesPerPatient = 10

// EstimateWaitTime returns the estimate for a new item given the waiting count.
func EstimateWaitTime(level UrgencyLevel, waiting int) int {
	return level.BaseWaitMinutes() + WaitMinutesPerPatient*waiting
}

// SortQueueByUrgency orders items most severe first. Items must already be in
// insertion order; ties keep that order.
func SortQueueByUrgency(items []*QueueItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].UrgencyLevel.Rank() < items[j].UrgencyLevel.Rank()
	})
}
