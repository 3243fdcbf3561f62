package orchestrator

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/infrastructure/observability"
	"github.com/medicrew/backend/pkg/llmjson"
)

// Flow name for the single-call portal assessments.
const FlowPortal = "portal"

const (
	emergencyAction = "Seek emergency medical attention immediately. Call 000 or go to the nearest emergency department."
	routineAction   = "Book a routine appointment with your GP within the next few days. Rest and monitor symptoms."
)

var (
	fallbackConditions = []string{"Further evaluation needed", "Viral illness", "Stress-related symptoms"}
	fallbackQuestions  = []string{
		"How long have you had these symptoms?",
		"Have you tried any treatments?",
		"Do you have any allergies?",
		"Is this the first time?",
	}
	fallbackInsightTests = []string{"CBC", "Basic metabolic panel", "Physical examination"}
	fallbackMedications  = []string{"Symptomatic treatment as needed", "Follow prescribing guidelines"}
	fallbackLifestyle    = []string{"Rest and adequate hydration", "Avoid strenuous activities", "Balanced diet"}
)

type assessmentReply struct {
	UrgencyLevel       string   `json:"urgencyLevel"`
	PossibleConditions []string `json:"possibleConditions"`
	RecommendedAction  string   `json:"recommendedAction"`
	QuestionsToAsk     []string `json:"questionsToAsk"`
	Confidence         float64  `json:"confidence"`
	Reasoning          string   `json:"reasoning"`
}

// AnalyzeSymptoms produces the initial assessment stored with a symptom check.
// Unusable replies fall back to a keyword assessment; only provider failures
// are returned as errors.
func (o *Orchestrator) AnalyzeSymptoms(ctx context.Context, symptoms []string, duration, additionalInfo string) (entities.AIAssessment, error) {
	ctx, span := observability.StartSpan(ctx, "portal.analyze_symptoms")
	defer span.End()

	reply, err := o.generate(ctx, triageSystemPrompt, analyzeSymptomsPrompt(symptoms, duration, additionalInfo))
	if err != nil {
		return entities.AIAssessment{}, err
	}

	var parsed assessmentReply
	if err := llmjson.Decode(reply, &parsed); err != nil {
		o.fallback(ctx, FlowPortal, "analyze_symptoms", err)
		return fallbackAssessment(symptoms, duration, additionalInfo), nil
	}

	urgency, ok := entities.ParseUrgency(parsed.UrgencyLevel)
	if !ok {
		urgency = entities.UrgencyMedium
	}
	assessment := entities.AIAssessment{
		UrgencyLevel:       urgency,
		PossibleConditions: limit(orDefault(parsed.PossibleConditions, []string{"Further evaluation needed"})),
		RecommendedAction:  parsed.RecommendedAction,
		QuestionsToAsk:     limit(orDefault(parsed.QuestionsToAsk, []string{"Please describe symptoms in detail"})),
		Confidence:         int(math.Round(parsed.Confidence)),
		Reasoning:          parsed.Reasoning,
	}
	if assessment.RecommendedAction == "" {
		assessment.RecommendedAction = "Consult a healthcare provider"
	}
	if assessment.Confidence == 0 {
		assessment.Confidence = entities.DefaultConfidence
	}
	if assessment.Reasoning == "" {
		assessment.Reasoning = "Based on symptom analysis"
	}
	return assessment, nil
}

func fallbackAssessment(symptoms []string, duration, additionalInfo string) entities.AIAssessment {
	urgency := entities.KeywordUrgency(strings.Join(symptoms, " ") + " " + additionalInfo)
	action := routineAction
	if urgency == entities.UrgencyCritical {
		action = emergencyAction
	}
	return entities.AIAssessment{
		UrgencyLevel:       urgency,
		PossibleConditions: clone(fallbackConditions),
		RecommendedAction:  action,
		QuestionsToAsk:     clone(fallbackQuestions),
		Confidence:         entities.DefaultConfidence,
		Reasoning:          fmt.Sprintf("Based on %s over %s.", strings.Join(symptoms, ", "), duration),
	}
}

type insightsReply struct {
	DifferentialDiagnosis []string `json:"differentialDiagnosis"`
	RecommendedTests      []string `json:"recommendedTests"`
	RedFlags              []string `json:"redFlags"`
	AIConfidence          float64  `json:"aiConfidence"`
}

// GenerateInsights drafts diagnostic decision support for a doctor reviewing check.
func (o *Orchestrator) GenerateInsights(ctx context.Context, check *entities.SymptomCheck) (entities.DoctorInsights, error) {
	ctx, span := observability.StartSpan(ctx, "portal.insights")
	defer span.End()

	reply, err := o.generate(ctx, insightsSystemPrompt, insightsPrompt(check))
	if err != nil {
		return entities.DoctorInsights{}, err
	}

	conditions := nonNil(check.AIAssessment.PossibleConditions)
	var parsed insightsReply
	if err := llmjson.Decode(reply, &parsed); err != nil {
		o.fallback(ctx, FlowPortal, "insights", err)
		redFlags := []string{}
		if check.AIAssessment.UrgencyLevel == entities.UrgencyCritical {
			redFlags = []string{"Requires immediate evaluation"}
		}
		return entities.DoctorInsights{
			DifferentialDiagnosis: conditions,
			RecommendedTests:      clone(fallbackInsightTests),
			RedFlags:              redFlags,
			AIConfidence:          check.AIAssessment.Confidence,
		}, nil
	}

	insights := entities.DoctorInsights{
		DifferentialDiagnosis: orDefault(parsed.DifferentialDiagnosis, conditions),
		RecommendedTests:      orDefault(parsed.RecommendedTests, clone(defaultClinicalTests)),
		RedFlags:              orDefault(parsed.RedFlags, []string{}),
		AIConfidence:          int(math.Round(parsed.AIConfidence)),
	}
	if insights.AIConfidence == 0 {
		insights.AIConfidence = check.AIAssessment.Confidence
	}
	return insights, nil
}

type treatmentReply struct {
	Medications []string `json:"medications"`
	Lifestyle   []string `json:"lifestyle"`
	FollowUp    string   `json:"followUp"`
}

// GenerateTreatmentPlan drafts a plan for diagnosis. An empty diagnosis is
// treated as "Further evaluation".
func (o *Orchestrator) GenerateTreatmentPlan(ctx context.Context, diagnosis string, symptoms []string) (entities.TreatmentPlanSuggestion, error) {
	ctx, span := observability.StartSpan(ctx, "portal.treatment_plan")
	defer span.End()

	if diagnosis == "" {
		diagnosis = "Further evaluation"
	}
	reply, err := o.generate(ctx, treatmentSystemPrompt, treatmentPlanPrompt(diagnosis, symptoms))
	if err != nil {
		return entities.TreatmentPlanSuggestion{}, err
	}

	var parsed treatmentReply
	if err := llmjson.Decode(reply, &parsed); err != nil {
		o.fallback(ctx, FlowPortal, "treatment_plan", err)
		return entities.TreatmentPlanSuggestion{
			Medications: clone(fallbackMedications),
			Lifestyle:   clone(fallbackLifestyle),
			FollowUp:    entities.DefaultFollowUp,
		}, nil
	}

	plan := entities.TreatmentPlanSuggestion{
		Medications: nonNil(parsed.Medications),
		Lifestyle:   nonNil(parsed.Lifestyle),
		FollowUp:    parsed.FollowUp,
	}
	if plan.FollowUp == "" {
		plan.FollowUp = entities.DefaultFollowUp
	}
	return plan, nil
}

func limit(values []string) []string {
	if len(values) > entities.MaxAssessmentItems {
		return values[:entities.MaxAssessmentItems]
	}
	return values
}
