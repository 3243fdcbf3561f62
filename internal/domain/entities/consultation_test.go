package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConsultationState(t *testing.T) {
	state := NewConsultationState("headache", "started yesterday")

	assert.NotEmpty(t, state.SessionID)
	assert.Equal(t, StepTriage, state.CurrentStep)
	assert.Equal(t, []string{"started yesterday"}, state.AdditionalInfo)
	assert.Empty(t, state.Messages)
	assert.False(t, state.IsComplete())
}

func TestConsultationState_ApplyMergesSets(t *testing.T) {
	state := NewConsultationState("chest pain")

	require.NoError(t, state.Apply(StateUpdate{
		Messages:            []AgentMessage{NewAgentMessage(RoleTriage, "assessment")},
		UrgencyLevel:        UrgencyHigh,
		RedFlags:            []string{"chest pain", "sweating"},
		RelevantSpecialties: []AgentRole{RoleCardiology, RoleGP},
		CurrentStep:         StepGP,
	}))
	require.NoError(t, state.Apply(StateUpdate{
		Messages:            []AgentMessage{NewAgentMessage(RoleGP, "gp view")},
		RedFlags:            []string{"sweating", "nausea"},
		RelevantSpecialties: []AgentRole{RoleGP, RoleGastro},
		CurrentStep:         StepSpecialist,
	}))

	assert.Equal(t, []string{"chest pain", "sweating", "nausea"}, state.RedFlags)
	assert.Equal(t, []AgentRole{RoleCardiology, RoleGP, RoleGastro}, state.RelevantSpecialties)
	assert.Len(t, state.Messages, 2)
	assert.Equal(t, "Dr. Alex (GP)", state.Messages[1].AgentName)
	assert.Equal(t, UrgencyHigh, state.UrgencyLevel)
}

func TestConsultationState_ApplyRejectsRegression(t *testing.T) {
	state := NewConsultationState("rash")
	require.NoError(t, state.Apply(StateUpdate{CurrentStep: StepSynthesize}))

	err := state.Apply(StateUpdate{CurrentStep: StepGP})
	assert.ErrorIs(t, err, ErrStepRegression)
	assert.Equal(t, StepSynthesize, state.CurrentStep)
}

func TestConsultationState_FinalResultWrittenOnce(t *testing.T) {
	state := NewConsultationState("rash")
	rec := &CareRecommendation{Urgency: PatientUrgencyRoutine, Summary: "see a GP"}

	require.NoError(t, state.Apply(StateUpdate{Recommendation: rec, CurrentStep: StepComplete}))
	assert.True(t, state.IsComplete())

	err := state.Apply(StateUpdate{Recommendation: &CareRecommendation{Summary: "again"}})
	assert.ErrorIs(t, err, ErrAlreadySynthesized)
	assert.Equal(t, "see a GP", state.Recommendation.Summary)
}

func TestNewConsultationRecord(t *testing.T) {
	state := NewConsultationState("palpitations")
	require.NoError(t, state.Apply(StateUpdate{
		Messages: []AgentMessage{
			NewAgentMessage(RoleTriage, "triage text"),
			NewAgentMessage(RoleGP, "gp text"),
			NewAgentMessage(RoleCardiology, "cardio text"),
		},
		UrgencyLevel: UrgencyHigh,
		RedFlags:     []string{"fainting"},
	}))

	record := NewConsultationRecord("patient-1", state)

	assert.Equal(t, "patient-1", record.PatientID)
	assert.Equal(t, "triage text", record.TriageResponse)
	assert.Equal(t, "gp text", record.GPResponse)
	assert.Equal(t, "Dr. Sarah (Cardiology): cardio text", record.SpecialistResponse)
	assert.Equal(t, []string{"fainting"}, record.RedFlags)
}
