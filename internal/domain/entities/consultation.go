package entities

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConsultationStep is the stage a consultation has reached.
type ConsultationStep string

const (
	StepTriage     ConsultationStep = "triage"
	StepGP         ConsultationStep = "gp"
	StepSpecialist ConsultationStep = "specialist"
	StepSynthesize ConsultationStep = "synthesize"
	StepComplete   ConsultationStep = "complete"
)

func (s ConsultationStep) order() int {
	switch s {
	case StepTriage:
		return 0
	case StepGP:
		return 1
	case StepSpecialist:
		return 2
	case StepSynthesize:
		return 3
	case StepComplete:
		return 4
	default:
		return -1
	}
}

// ErrStepRegression is returned when an update would move a consultation backwards.
var ErrStepRegression = errors.New("consultation step cannot move backwards")

// ErrAlreadySynthesized is returned when a second final result is written.
var ErrAlreadySynthesized = errors.New("consultation already has a final result")

// AgentMessage is one contribution to the consultation transcript.
type AgentMessage struct {
	Role      AgentRole `json:"role"`
	AgentName string    `json:"agentName"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewAgentMessage stamps a message from the role's registered agent.
func NewAgentMessage(role AgentRole, content string) AgentMessage {
	return AgentMessage{
		Role:      role,
		AgentName: role.Definition().Name,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// CareRecommendation is the patient-facing result of a consultation.
type CareRecommendation struct {
	Urgency            PatientUrgency `json:"urgency"`
	Summary            string         `json:"summary"`
	NextSteps          []string       `json:"nextSteps"`
	QuestionsForDoctor []string       `json:"questionsForDoctor"`
	SpecialistType     string         `json:"specialistType,omitempty"`
	Timeframe          string         `json:"timeframe"`
	Disclaimer         string         `json:"disclaimer"`
}

// CareDisclaimer is attached to every care recommendation.
const CareDisclaimer = "This guidance is for health navigation purposes only and does not constitute medical advice. Please consult a qualified healthcare provider for proper diagnosis and treatment."

// DoctorSummary is the clinician-facing result of a case consultation.
type DoctorSummary struct {
	Insights      DoctorInsights          `json:"insights"`
	TreatmentPlan TreatmentPlanSuggestion `json:"treatmentPlan"`
}

// ConsultationState accumulates the work of every stage in one session.
type ConsultationState struct {
	SessionID           string              `json:"sessionId"`
	Symptoms            string              `json:"symptoms"`
	AdditionalInfo      []string            `json:"additionalInfo"`
	Messages            []AgentMessage      `json:"messages"`
	UrgencyLevel        UrgencyLevel        `json:"urgencyLevel,omitempty"`
	RedFlags            []string            `json:"redFlags"`
	RelevantSpecialties []AgentRole         `json:"relevantSpecialties"`
	Recommendation      *CareRecommendation `json:"recommendation,omitempty"`
	DoctorSummary       *DoctorSummary      `json:"doctorSummary,omitempty"`
	StartedAt           time.Time           `json:"startedAt"`
	CurrentStep         ConsultationStep    `json:"currentStep"`
}

// NewConsultationState starts a session at the triage step.
func NewConsultationState(symptoms string, additionalInfo ...string) *ConsultationState {
	return &ConsultationState{
		SessionID:           uuid.New().String(),
		Symptoms:            symptoms,
		AdditionalInfo:      append([]string{}, additionalInfo...),
		Messages:            []AgentMessage{},
		RedFlags:            []string{},
		RelevantSpecialties: []AgentRole{},
		StartedAt:           time.Now().UTC(),
		CurrentStep:         StepTriage,
	}
}

// IsComplete reports whether the terminal stage has run.
func (s *ConsultationState) IsComplete() bool {
	return s.CurrentStep == StepComplete
}

// StateUpdate is the partial result of one stage.
type StateUpdate struct {
	Messages            []AgentMessage      `json:"messages,omitempty"`
	UrgencyLevel        UrgencyLevel        `json:"urgencyLevel,omitempty"`
	RedFlags            []string            `json:"redFlags,omitempty"`
	RelevantSpecialties []AgentRole         `json:"relevantSpecialties,omitempty"`
	Recommendation      *CareRecommendation `json:"recommendation,omitempty"`
	DoctorSummary       *DoctorSummary      `json:"doctorSummary,omitempty"`
	CurrentStep         ConsultationStep    `json:"currentStep,omitempty"`
}

// Apply merges a stage update into the state. Messages append, flag and
// specialty sets grow without duplicates, the final result is written once
// and the step only moves forward.
func (s *ConsultationState) Apply(u StateUpdate) error {
	if u.CurrentStep != "" && u.CurrentStep.order() < s.CurrentStep.order() {
		return fmt.Errorf("%w: %s -> %s", ErrStepRegression, s.CurrentStep, u.CurrentStep)
	}
	if (u.Recommendation != nil && s.Recommendation != nil) || (u.DoctorSummary != nil && s.DoctorSummary != nil) {
		return ErrAlreadySynthesized
	}

	s.Messages = append(s.Messages, u.Messages...)
	if u.UrgencyLevel != "" {
		s.UrgencyLevel = u.UrgencyLevel
	}
	s.RedFlags = MergeStrings(s.RedFlags, u.RedFlags...)
	s.RelevantSpecialties = MergeRoles(s.RelevantSpecialties, u.RelevantSpecialties...)
	if u.Recommendation != nil {
		s.Recommendation = u.Recommendation
	}
	if u.DoctorSummary != nil {
		s.DoctorSummary = u.DoctorSummary
	}
	if u.CurrentStep != "" {
		s.CurrentStep = u.CurrentStep
	}
	return nil
}

// LastMessageFrom returns the content of the latest message from role, or "".
func (s *ConsultationState) LastMessageFrom(role AgentRole) string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == role {
			return s.Messages[i].Content
		}
	}
	return ""
}

// ConsultationRecord is a completed consultation saved against a patient.
type ConsultationRecord struct {
	ID                 string              `json:"id" db:"id"`
	PatientID          string              `json:"patientId" db:"patient_id"`
	Symptoms           string              `json:"symptoms" db:"symptoms"`
	UrgencyLevel       UrgencyLevel        `json:"urgencyLevel,omitempty" db:"urgency_level"`
	RedFlags           []string            `json:"redFlags" db:"red_flags"`
	TriageResponse     string              `json:"triageResponse,omitempty" db:"triage_response"`
	GPResponse         string              `json:"gpResponse,omitempty" db:"gp_response"`
	SpecialistResponse string              `json:"specialistResponse,omitempty" db:"specialist_response"`
	Recommendation     *CareRecommendation `json:"recommendation,omitempty" db:"recommendation"`
	CreatedAt          time.Time           `json:"createdAt" db:"created_at"`
}

// NewConsultationRecord captures a finished consultation for a patient.
func NewConsultationRecord(patientID string, state *ConsultationState) *ConsultationRecord {
	var specialist string
	for _, msg := range state.Messages {
		if msg.Role.IsSpecialist() {
			if specialist != "" {
				specialist += "\n\n"
			}
			specialist += msg.AgentName + ": " + msg.Content
		}
	}

	return &ConsultationRecord{
		PatientID:          patientID,
		Symptoms:           state.Symptoms,
		UrgencyLevel:       state.UrgencyLevel,
		RedFlags:           append([]string{}, state.RedFlags...),
		TriageResponse:     state.LastMessageFrom(RoleTriage),
		GPResponse:         state.LastMessageFrom(RoleGP),
		SpecialistResponse: specialist,
		Recommendation:     state.Recommendation,
	}
}
