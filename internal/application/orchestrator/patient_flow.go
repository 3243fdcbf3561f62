package orchestrator

import (
	"context"
	"errors"
	"strings"

	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/pkg/llmjson"
)

// Default record values for the patient flow.
const (
	defaultTimeframe = "At your earliest convenience"
	defaultNextStep  = "Consult with your GP for proper assessment"
)

var errIncompleteReply = errors.New("model reply is missing required fields")

// RunConsultation takes symptom text through the whole team and returns the
// completed state.
func (o *Orchestrator) RunConsultation(ctx context.Context, symptoms string, additionalInfo ...string) (*entities.ConsultationState, error) {
	return o.StreamConsultation(ctx, symptoms, additionalInfo, nil)
}

// StreamConsultation is RunConsultation with emit called after every stage.
func (o *Orchestrator) StreamConsultation(ctx context.Context, symptoms string, additionalInfo []string, emit EmitFunc) (*entities.ConsultationState, error) {
	state := entities.NewConsultationState(symptoms, additionalInfo...)
	if err := o.run(ctx, o.patientFlow(), state, emit); err != nil {
		return nil, err
	}
	return state, nil
}

func (o *Orchestrator) patientFlow() flow {
	return flow{
		name:       FlowPatient,
		triage:     o.patientTriage,
		gp:         o.patientGP,
		specialist: o.patientSpecialists,
		synthesize: o.patientSynthesis,
	}
}

type triageReply struct {
	UrgencyLevel        string   `json:"urgencyLevel"`
	Reasoning           string   `json:"reasoning"`
	RedFlags            []string `json:"redFlags"`
	RelevantSpecialties []string `json:"relevantSpecialties"`
}

func (o *Orchestrator) patientTriage(ctx context.Context, state *entities.ConsultationState) (entities.StateUpdate, error) {
	reply, err := o.generate(ctx, entities.RoleTriage.Definition().SystemPrompt, patientTriagePrompt(state))
	if err != nil {
		return entities.StateUpdate{}, err
	}

	text := state.Symptoms + " " + strings.Join(state.AdditionalInfo, " ")
	keywordRoles := entities.SelectSpecialties(text)

	parsed, err := parseTriage(reply)
	if err != nil {
		o.fallback(ctx, FlowPatient, string(entities.StepTriage), err)
		return entities.StateUpdate{
			Messages:            []entities.AgentMessage{entities.NewAgentMessage(entities.RoleTriage, reply)},
			UrgencyLevel:        entities.KeywordUrgency(text),
			RedFlags:            []string{},
			RelevantSpecialties: keywordRoles,
		}, nil
	}

	urgency, _ := entities.ParseUrgency(parsed.UrgencyLevel)
	roles := keywordRoles
	for _, name := range parsed.RelevantSpecialties {
		if role, ok := entities.ParseAgentRole(name); ok {
			roles = entities.MergeRoles(roles, role)
		}
	}

	return entities.StateUpdate{
		Messages:            []entities.AgentMessage{entities.NewAgentMessage(entities.RoleTriage, parsed.Reasoning)},
		UrgencyLevel:        urgency,
		RedFlags:            entities.MergeStrings(nil, parsed.RedFlags...),
		RelevantSpecialties: roles,
	}, nil
}

// parseTriage accepts a reply only when it names a known urgency and gives reasoning.
func parseTriage(reply string) (*triageReply, error) {
	var parsed triageReply
	if err := llmjson.Decode(reply, &parsed); err != nil {
		return nil, err
	}
	if _, ok := entities.ParseUrgency(parsed.UrgencyLevel); !ok || strings.TrimSpace(parsed.Reasoning) == "" {
		return nil, errIncompleteReply
	}
	return &parsed, nil
}

func (o *Orchestrator) patientGP(ctx context.Context, state *entities.ConsultationState) (entities.StateUpdate, error) {
	reply, err := o.generate(ctx, entities.RoleGP.Definition().SystemPrompt, patientGPPrompt(state))
	if err != nil {
		return entities.StateUpdate{}, err
	}
	return entities.StateUpdate{
		Messages: []entities.AgentMessage{entities.NewAgentMessage(entities.RoleGP, reply)},
	}, nil
}

func (o *Orchestrator) patientSpecialists(ctx context.Context, state *entities.ConsultationState) (entities.StateUpdate, error) {
	messages, err := o.consultSpecialists(ctx, state,
		func(agent entities.AgentDefinition) string { return agent.SystemPrompt },
		func(transcript []entities.AgentMessage, agent entities.AgentDefinition) string {
			return patientSpecialistPrompt(state, transcript, agent)
		},
	)
	if err != nil {
		return entities.StateUpdate{}, err
	}
	return entities.StateUpdate{Messages: messages}, nil
}

type recommendationReply struct {
	Urgency            string   `json:"urgency"`
	Summary            string   `json:"summary"`
	NextSteps          []string `json:"nextSteps"`
	QuestionsForDoctor []string `json:"questionsForDoctor"`
	SpecialistType     string   `json:"specialistType"`
	Timeframe          string   `json:"timeframe"`
}

func (o *Orchestrator) patientSynthesis(ctx context.Context, state *entities.ConsultationState) (entities.StateUpdate, error) {
	reply, err := o.generate(ctx, coordinatorSystemPrompt, patientSynthesisPrompt(state))
	if err != nil {
		return entities.StateUpdate{}, err
	}

	recommendation, err := parseRecommendation(reply, state.UrgencyLevel)
	if err != nil {
		o.fallback(ctx, FlowPatient, string(entities.StepSynthesize), err)
		recommendation = defaultRecommendation(reply, state.UrgencyLevel)
	}

	return entities.StateUpdate{
		Messages:       []entities.AgentMessage{entities.NewAgentMessage(entities.RoleOrchestrator, recommendation.Summary)},
		Recommendation: recommendation,
	}, nil
}

func parseRecommendation(reply string, urgency entities.UrgencyLevel) (*entities.CareRecommendation, error) {
	var parsed recommendationReply
	if err := llmjson.Decode(reply, &parsed); err != nil {
		return nil, err
	}
	if strings.TrimSpace(parsed.Summary) == "" {
		return nil, errIncompleteReply
	}

	if level, ok := entities.ParseUrgency(parsed.Urgency); ok {
		urgency = level
	}
	rec := &entities.CareRecommendation{
		Urgency:            urgency.PatientFacing(),
		Summary:            parsed.Summary,
		NextSteps:          nonNil(parsed.NextSteps),
		QuestionsForDoctor: nonNil(parsed.QuestionsForDoctor),
		SpecialistType:     parsed.SpecialistType,
		Timeframe:          parsed.Timeframe,
		Disclaimer:         entities.CareDisclaimer,
	}
	if rec.Timeframe == "" {
		rec.Timeframe = defaultTimeframe
	}
	return rec, nil
}

func defaultRecommendation(reply string, urgency entities.UrgencyLevel) *entities.CareRecommendation {
	return &entities.CareRecommendation{
		Urgency:            urgency.PatientFacing(),
		Summary:            reply,
		NextSteps:          []string{defaultNextStep},
		QuestionsForDoctor: []string{},
		Timeframe:          defaultTimeframe,
		Disclaimer:         entities.CareDisclaimer,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
