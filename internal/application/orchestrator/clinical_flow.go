package orchestrator

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/pkg/llmjson"
)

var (
	redFlagLine     = regexp.MustCompile(`(?i)red flags?:?\s*([^\n]+)`)
	redFlagSplitter = regexp.MustCompile(`[,;]`)
)

var (
	defaultClinicalTests     = []string{"Physical examination", "Vital signs"}
	fallbackClinicalTests    = []string{"Physical examination", "Vital signs", "Basic metabolic panel"}
	defaultClinicalMeds      = []string{"Symptomatic treatment as needed"}
	defaultClinicalLifestyle = []string{"Rest", "Adequate hydration", "Monitor symptoms"}
)

// RunCaseConsultation runs the team over a submitted symptom check and
// produces decision support for the reviewing doctor. emit may be nil.
func (o *Orchestrator) RunCaseConsultation(ctx context.Context, check *entities.SymptomCheck, emit EmitFunc) (*entities.ConsultationState, error) {
	var info []string
	if check.AdditionalInfo != "" {
		info = append(info, check.AdditionalInfo)
	}
	state := entities.NewConsultationState(strings.Join(check.Symptoms, ", "), info...)

	if err := o.run(ctx, o.clinicalFlow(check), state, emit); err != nil {
		return nil, err
	}
	return state, nil
}

func (o *Orchestrator) clinicalFlow(check *entities.SymptomCheck) flow {
	return flow{
		name: FlowClinical,
		triage: func(ctx context.Context, state *entities.ConsultationState) (entities.StateUpdate, error) {
			return o.clinicalTriage(ctx, check, state)
		},
		gp: func(ctx context.Context, state *entities.ConsultationState) (entities.StateUpdate, error) {
			reply, err := o.generate(ctx, clinicalSystemPrompt(entities.RoleGP, entities.StepGP), clinicalGPPrompt(check, state.Messages))
			if err != nil {
				return entities.StateUpdate{}, err
			}
			return entities.StateUpdate{Messages: []entities.AgentMessage{entities.NewAgentMessage(entities.RoleGP, reply)}}, nil
		},
		specialist: func(ctx context.Context, state *entities.ConsultationState) (entities.StateUpdate, error) {
			messages, err := o.consultSpecialists(ctx, state,
				func(agent entities.AgentDefinition) string {
					return clinicalSystemPrompt(agent.Role, entities.StepSpecialist)
				},
				func(transcript []entities.AgentMessage, agent entities.AgentDefinition) string {
					return clinicalSpecialistPrompt(check, transcript, agent)
				},
			)
			if err != nil {
				return entities.StateUpdate{}, err
			}
			return entities.StateUpdate{Messages: messages}, nil
		},
		synthesize: func(ctx context.Context, state *entities.ConsultationState) (entities.StateUpdate, error) {
			return o.clinicalSummary(ctx, check, state)
		},
	}
}

func (o *Orchestrator) clinicalTriage(ctx context.Context, check *entities.SymptomCheck, state *entities.ConsultationState) (entities.StateUpdate, error) {
	reply, err := o.generate(ctx, clinicalSystemPrompt(entities.RoleTriage, entities.StepTriage), clinicalTriagePrompt(check))
	if err != nil {
		return entities.StateUpdate{}, err
	}

	urgency := check.AIAssessment.UrgencyLevel
	if !urgency.Valid() {
		urgency = entities.KeywordUrgency(strings.Join(check.Symptoms, " ") + " " + check.AdditionalInfo)
	}

	return entities.StateUpdate{
		Messages:            []entities.AgentMessage{entities.NewAgentMessage(entities.RoleTriage, reply)},
		UrgencyLevel:        urgency,
		RedFlags:            extractRedFlags(reply),
		RelevantSpecialties: entities.SelectSpecialties(strings.Join(check.Symptoms, " ")),
	}, nil
}

// extractRedFlags reads the first "Red flags: a, b; c" line of free text.
func extractRedFlags(text string) []string {
	match := redFlagLine.FindStringSubmatch(text)
	if match == nil {
		return []string{}
	}
	return entities.MergeStrings(nil, redFlagSplitter.Split(match[1], -1)...)
}

type clinicalSummaryReply struct {
	Insights *struct {
		DifferentialDiagnosis []string `json:"differentialDiagnosis"`
		RecommendedTests      []string `json:"recommendedTests"`
		RedFlags              []string `json:"redFlags"`
		AIConfidence          float64  `json:"aiConfidence"`
	} `json:"insights"`
	TreatmentPlan *struct {
		Medications []string `json:"medications"`
		Lifestyle   []string `json:"lifestyle"`
		FollowUp    string   `json:"followUp"`
	} `json:"treatmentPlan"`
}

func (o *Orchestrator) clinicalSummary(ctx context.Context, check *entities.SymptomCheck, state *entities.ConsultationState) (entities.StateUpdate, error) {
	reply, err := o.generate(ctx, clinicalCoordinatorSystemPrompt, clinicalSummaryPrompt(check, state))
	if err != nil {
		return entities.StateUpdate{}, err
	}

	summary := defaultDoctorSummary(check, state, defaultClinicalTests)
	var parsed clinicalSummaryReply
	if err := llmjson.Decode(reply, &parsed); err != nil {
		o.fallback(ctx, FlowClinical, string(entities.StepSynthesize), err)
		summary.Insights.RecommendedTests = clone(fallbackClinicalTests)
	} else {
		if in := parsed.Insights; in != nil {
			summary.Insights.DifferentialDiagnosis = orDefault(in.DifferentialDiagnosis, summary.Insights.DifferentialDiagnosis)
			summary.Insights.RecommendedTests = orDefault(in.RecommendedTests, summary.Insights.RecommendedTests)
			summary.Insights.RedFlags = orDefault(in.RedFlags, summary.Insights.RedFlags)
			if c := int(math.Round(in.AIConfidence)); c != 0 {
				summary.Insights.AIConfidence = c
			}
		}
		if plan := parsed.TreatmentPlan; plan != nil {
			summary.TreatmentPlan.Medications = orDefault(plan.Medications, summary.TreatmentPlan.Medications)
			summary.TreatmentPlan.Lifestyle = orDefault(plan.Lifestyle, summary.TreatmentPlan.Lifestyle)
			if plan.FollowUp != "" {
				summary.TreatmentPlan.FollowUp = plan.FollowUp
			}
		}
	}

	content := fmt.Sprintf("**Summary:** Based on the team discussion, the most likely differentials are: %s. Recommended tests: %s.",
		strings.Join(summary.Insights.DifferentialDiagnosis, ", "),
		strings.Join(summary.Insights.RecommendedTests, ", "))

	return entities.StateUpdate{
		Messages:      []entities.AgentMessage{entities.NewAgentMessage(entities.RoleOrchestrator, content)},
		DoctorSummary: summary,
	}, nil
}

func defaultDoctorSummary(check *entities.SymptomCheck, state *entities.ConsultationState, tests []string) *entities.DoctorSummary {
	return &entities.DoctorSummary{
		Insights: entities.DoctorInsights{
			DifferentialDiagnosis: nonNil(check.AIAssessment.PossibleConditions),
			RecommendedTests:      clone(tests),
			RedFlags:              nonNil(state.RedFlags),
			AIConfidence:          check.AIAssessment.Confidence,
		},
		TreatmentPlan: entities.TreatmentPlanSuggestion{
			Medications: clone(defaultClinicalMeds),
			Lifestyle:   clone(defaultClinicalLifestyle),
			FollowUp:    entities.DefaultFollowUp,
		},
	}
}

// orDefault keeps def when the model omitted the list entirely.
func orDefault(values, def []string) []string {
	if values == nil {
		return def
	}
	return values
}

func clone(values []string) []string {
	return append([]string{}, values...)
}
