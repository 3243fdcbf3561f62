package entities

import "time"

// SymptomCheckStatus tracks a case through doctor review.
type SymptomCheckStatus string

const (
	SymptomCheckPending   SymptomCheckStatus = "pending"
	SymptomCheckInReview  SymptomCheckStatus = "in-review"
	SymptomCheckCompleted SymptomCheckStatus = "completed"
)

func (s SymptomCheckStatus) order() int {
	switch s {
	case SymptomCheckPending:
		return 0
	case SymptomCheckInReview:
		return 1
	case SymptomCheckCompleted:
		return 2
	default:
		return -1
	}
}

// Valid reports whether s is a known status.
func (s SymptomCheckStatus) Valid() bool { return s.order() >= 0 }

// CanAdvanceTo reports whether moving from s to next keeps the status monotonic.
func (s SymptomCheckStatus) CanAdvanceTo(next SymptomCheckStatus) bool {
	return next.Valid() && next.order() >= s.order()
}

// AIAssessment is the model's triage of a portal symptom check.
type AIAssessment struct {
	UrgencyLevel       UrgencyLevel `json:"urgencyLevel"`
	PossibleConditions []string     `json:"possibleConditions"`
	RecommendedAction  string       `json:"recommendedAction"`
	QuestionsToAsk     []string     `json:"questionsToAsk"`
	Confidence         int          `json:"confidence"`
	Reasoning          string       `json:"reasoning"`
}

// MaxAssessmentItems caps the condition and question lists.
const MaxAssessmentItems = 4

// DefaultConfidence is used when the model omits a confidence score.
const DefaultConfidence = 75

// SymptomCheck is a patient's portal submission awaiting doctor review.
type SymptomCheck struct {
	ID             string             `json:"id" db:"id"`
	PatientID      string             `json:"patientId" db:"patient_id"`
	PatientName    string             `json:"patientName" db:"patient_name"`
	Symptoms       []string           `json:"symptoms" db:"symptoms"`
	Duration       string             `json:"duration" db:"duration"`
	AdditionalInfo string             `json:"additionalInfo" db:"additional_info"`
	AIAssessment   AIAssessment       `json:"aiAssessment" db:"ai_assessment"`
	Status         SymptomCheckStatus `json:"status" db:"status"`
	AssignedDoctor string             `json:"assignedDoctor,omitempty" db:"assigned_doctor"`
	CreatedAt      time.Time          `json:"createdAt" db:"created_at"`
}

// DoctorNote is a clinician's written response to a symptom check.
type DoctorNote struct {
	ID             string    `json:"id" db:"id"`
	SymptomCheckID string    `json:"symptomCheckId" db:"symptom_check_id"`
	DoctorID       string    `json:"doctorId" db:"doctor_id"`
	DoctorName     string    `json:"doctorName" db:"doctor_name"`
	Diagnosis      string    `json:"diagnosis" db:"diagnosis"`
	Treatment      string    `json:"treatment" db:"treatment"`
	Notes          string    `json:"notes" db:"notes"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// DoctorInsights is AI decision support for a clinician reviewing a case.
type DoctorInsights struct {
	DifferentialDiagnosis []string `json:"differentialDiagnosis"`
	RecommendedTests      []string `json:"recommendedTests"`
	RedFlags              []string `json:"redFlags"`
	AIConfidence          int      `json:"aiConfidence"`
}

// TreatmentPlanSuggestion is an AI-drafted plan for the clinician to edit.
type TreatmentPlanSuggestion struct {
	Medications []string `json:"medications"`
	Lifestyle   []string `json:"lifestyle"`
	FollowUp    string   `json:"followUp"`
}

// DefaultFollowUp is used whenever a plan is missing follow-up instructions.
const DefaultFollowUp = "Schedule follow-up in 1-2 weeks or sooner if symptoms worsen."

// PortalStatistics summarises the doctor dashboard.
type PortalStatistics struct {
	TotalChecksToday int `json:"totalChecksToday"`
	PendingReviews   int `json:"pendingReviews"`
	InReview         int `json:"inReview"`
	CompletedToday   int `json:"completedToday"`
	AverageWaitTime  int `json:"averageWaitTime"`
	CriticalCases    int `json:"criticalCases"`
}
