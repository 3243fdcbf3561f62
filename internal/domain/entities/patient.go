package entities

import (
	"time"
)

// Patient represents a registered portal patient
type Patient struct {
	ID              string    `json:"id" db:"id"`
	Email           string    `json:"email" db:"email"`
	Name            string    `json:"name" db:"name"`
	Age             *int      `json:"age,omitempty" db:"age"`
	Gender          string    `json:"gender,omitempty" db:"gender"`
	KnownConditions string    `json:"knownConditions,omitempty" db:"known_conditions"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

// PatientDetail is a patient with their history attached
type PatientDetail struct {
	*Patient
	Consultations []*ConsultationRecord `json:"consultations"`
	Notifications []*Notification       `json:"notifications"`
}

// Doctor represents a clinician using the dashboard
type Doctor struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Specialty string    `json:"specialty" db:"specialty"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
