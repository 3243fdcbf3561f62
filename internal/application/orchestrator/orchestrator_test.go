package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/domain/providers"
	apperrors "github.com/medicrew/backend/pkg/errors"
)

// scriptedGenerator answers each request through reply and records it.
type scriptedGenerator struct {
	mu       sync.Mutex
	requests []providers.GenerationRequest
	reply    func(n int, req providers.GenerationRequest) (string, error)
}

func (g *scriptedGenerator) Generate(_ context.Context, req providers.GenerationRequest) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	n := len(g.requests)
	g.mu.Unlock()
	return g.reply(n, req)
}

func (g *scriptedGenerator) Name() string { return "scripted" }

func (g *scriptedGenerator) calls() []providers.GenerationRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]providers.GenerationRequest{}, g.requests...)
}

func isTriage(req providers.GenerationRequest) bool {
	return strings.HasPrefix(req.SystemPrompt, entities.RoleTriage.Definition().SystemPrompt)
}

func roles(messages []entities.AgentMessage) []entities.AgentRole {
	out := make([]entities.AgentRole, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Role)
	}
	return out
}

func TestRunConsultation_CriticalSkipsToSynthesis(t *testing.T) {
	gen := &scriptedGenerator{reply: func(_ int, req providers.GenerationRequest) (string, error) {
		if isTriage(req) {
			return "```json\n" + `{"urgencyLevel":"emergency","reasoning":"Possible cardiac event","redFlags":["chest pain","chest pain"],"relevantSpecialties":["Cardiology","podiatry"]}` + "\n```", nil
		}
		return `{"urgency":"emergency","summary":"Call 000 now.","nextSteps":["Call 000"]}`, nil
	}}
	o := New(gen, Options{Temperature: 0.3, MaxTokens: 500})

	state, err := o.RunConsultation(context.Background(), "severe chest pain and shortness of breath")
	require.NoError(t, err)

	assert.Len(t, gen.calls(), 2)
	assert.Equal(t, entities.StepComplete, state.CurrentStep)
	assert.Equal(t, entities.UrgencyCritical, state.UrgencyLevel)
	assert.Equal(t, []string{"chest pain"}, state.RedFlags)
	assert.Equal(t, []entities.AgentRole{entities.RoleCardiology, entities.RoleGP}, state.RelevantSpecialties)
	assert.Equal(t, []entities.AgentRole{entities.RoleTriage, entities.RoleOrchestrator}, roles(state.Messages))
	assert.Equal(t, "Possible cardiac event", state.Messages[0].Content)

	rec := state.Recommendation
	require.NotNil(t, rec)
	assert.Equal(t, entities.PatientUrgencyEmergency, rec.Urgency)
	assert.Equal(t, "Call 000 now.", rec.Summary)
	assert.Equal(t, []string{"Call 000"}, rec.NextSteps)
	assert.Equal(t, []string{}, rec.QuestionsForDoctor)
	assert.Equal(t, "At your earliest convenience", rec.Timeframe)
	assert.Equal(t, entities.CareDisclaimer, rec.Disclaimer)
	assert.Equal(t, "Call 000 now.", state.Messages[1].Content)

	for _, req := range gen.calls() {
		assert.Equal(t, 0.3, req.Temperature)
		assert.Equal(t, 500, req.MaxTokens)
	}
}

func TestRunConsultation_FallbacksAndSpecialistCap(t *testing.T) {
	gen := &scriptedGenerator{reply: func(n int, req providers.GenerationRequest) (string, error) {
		switch n {
		case 1:
			return "I think this is probably fine.", nil
		case 2:
			return "GP view", nil
		case 3:
			return "Dermatology view", nil
		case 4:
			return "Orthopedic view", nil
		default:
			return "Please see your GP this week.", nil
		}
	}}
	o := New(gen, Options{})

	state, err := o.RunConsultation(context.Background(), "itchy rash on my knee", "started after gardening")
	require.NoError(t, err)

	calls := gen.calls()
	require.Len(t, calls, 5)
	assert.Equal(t, entities.UrgencyMedium, state.UrgencyLevel)
	assert.Equal(t, []string{}, state.RedFlags)
	assert.Equal(t, []entities.AgentRole{
		entities.RoleTriage, entities.RoleGP, entities.RoleDermatology, entities.RoleOrthopedic, entities.RoleOrchestrator,
	}, roles(state.Messages))
	assert.Equal(t, "I think this is probably fine.", state.Messages[0].Content)

	// the second specialist sees the first one's reply
	assert.Contains(t, calls[3].UserPrompt, "Dermatology view")
	assert.Contains(t, calls[3].UserPrompt, "Dr. Chris (Orthopedics)")
	assert.Contains(t, calls[0].UserPrompt, "Additional information: started after gardening")

	rec := state.Recommendation
	require.NotNil(t, rec)
	assert.Equal(t, entities.PatientUrgencyRoutine, rec.Urgency)
	assert.Equal(t, "Please see your GP this week.", rec.Summary)
	assert.Equal(t, []string{"Consult with your GP for proper assessment"}, rec.NextSteps)
	assert.Equal(t, "At your earliest convenience", rec.Timeframe)
}

func TestRunConsultation_InvalidTriageUrgencyFallsBackToKeywords(t *testing.T) {
	gen := &scriptedGenerator{reply: func(_ int, req providers.GenerationRequest) (string, error) {
		if isTriage(req) {
			return `{"urgencyLevel":"whenever","reasoning":"unsure"}`, nil
		}
		return `{"summary":"Go to emergency."}`, nil
	}}
	o := New(gen, Options{})

	state, err := o.RunConsultation(context.Background(), "severe bleeding from a cut")
	require.NoError(t, err)

	assert.Equal(t, entities.UrgencyCritical, state.UrgencyLevel)
	assert.Len(t, gen.calls(), 2)
	assert.Equal(t, entities.PatientUrgencyEmergency, state.Recommendation.Urgency)
}

func TestStreamConsultation_EmitsEachStage(t *testing.T) {
	gen := &scriptedGenerator{reply: func(_ int, req providers.GenerationRequest) (string, error) {
		if isTriage(req) {
			return `{"urgencyLevel":"routine","reasoning":"Mild","redFlags":[],"relevantSpecialties":[]}`, nil
		}
		if req.SystemPrompt == coordinatorSystemPrompt {
			return `{"summary":"Rest","timeframe":"this week"}`, nil
		}
		return "noted", nil
	}}
	o := New(gen, Options{})

	var events []StepEvent
	state, err := o.StreamConsultation(context.Background(), "anxiety before exams", nil, func(e StepEvent) error {
		events = append(events, e)
		return nil
	})
	require.NoError(t, err)

	steps := make([]string, 0, len(events))
	for _, e := range events {
		steps = append(steps, e.Step)
	}
	assert.Equal(t, []string{"triage", "gp", "specialist", "synthesize"}, steps)
	assert.Equal(t, entities.StepGP, events[0].Data.CurrentStep)
	assert.Equal(t, entities.UrgencyMedium, events[0].Data.UrgencyLevel)
	assert.Equal(t, entities.StepComplete, events[3].Data.CurrentStep)
	require.NotNil(t, events[3].Data.Recommendation)
	assert.Equal(t, "this week", events[3].Data.Recommendation.Timeframe)
	assert.Equal(t, []entities.AgentRole{entities.RoleMentalHealth}, roles(events[2].Data.Messages))
	assert.True(t, state.IsComplete())
}

func TestStreamConsultation_EmitErrorStopsRun(t *testing.T) {
	gen := &scriptedGenerator{reply: func(int, providers.GenerationRequest) (string, error) { return "ok", nil }}
	o := New(gen, Options{})
	stop := errors.New("client went away")

	state, err := o.StreamConsultation(context.Background(), "a headache", nil, func(StepEvent) error { return stop })
	assert.ErrorIs(t, err, stop)
	assert.Nil(t, state)
	assert.Len(t, gen.calls(), 1)
}

func TestRunConsultation_ProviderErrorPropagates(t *testing.T) {
	gen := &scriptedGenerator{reply: func(n int, _ providers.GenerationRequest) (string, error) {
		if n == 2 {
			return "", apperrors.NewRateLimitedError("slow down", 0, nil)
		}
		return `{"urgencyLevel":"urgent","reasoning":"needs review"}`, nil
	}}
	o := New(gen, Options{})

	state, err := o.RunConsultation(context.Background(), "a headache")
	require.Error(t, err)
	assert.Nil(t, state)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRateLimited))
	assert.Len(t, gen.calls(), 2)
}

func TestRunConsultation_CancelledBetweenStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gen := &scriptedGenerator{reply: func(int, providers.GenerationRequest) (string, error) {
		cancel()
		return `{"urgencyLevel":"routine","reasoning":"fine"}`, nil
	}}
	o := New(gen, Options{})

	_, err := o.RunConsultation(ctx, "a headache")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, gen.calls(), 1)
}

func clinicalCheck() *entities.SymptomCheck {
	return &entities.SymptomCheck{
		ID:          "sc-1",
		PatientName: "Sam Lee",
		Symptoms:    []string{"chest pain", "sweating"},
		Duration:    "2 hours",
		AIAssessment: entities.AIAssessment{
			UrgencyLevel:       entities.UrgencyHigh,
			PossibleConditions: []string{"Angina", "GERD"},
			Confidence:         80,
		},
	}
}

func TestRunCaseConsultation_PartialSummaryUsesDefaults(t *testing.T) {
	gen := &scriptedGenerator{reply: func(n int, req providers.GenerationRequest) (string, error) {
		switch n {
		case 1:
			return "Concerning presentation.\nRed flags: radiating pain; diaphoresis, radiating pain\nConsult cardiology.", nil
		case 2:
			return "Rule out ACS.", nil
		case 3:
			return "Get an ECG.", nil
		default:
			return `{"insights":{"differentialDiagnosis":["ACS","Angina"],"aiConfidence":72.6}}`, nil
		}
	}}
	o := New(gen, Options{})

	state, err := o.RunCaseConsultation(context.Background(), clinicalCheck(), nil)
	require.NoError(t, err)

	calls := gen.calls()
	require.Len(t, calls, 4)
	assert.Contains(t, calls[0].SystemPrompt, "advising a colleague")
	assert.Contains(t, calls[1].UserPrompt, "**Triage Specialist:** Concerning presentation.")
	assert.Contains(t, calls[3].UserPrompt, "Red flags identified: radiating pain, diaphoresis")
	assert.Equal(t, clinicalCoordinatorSystemPrompt, calls[3].SystemPrompt)

	assert.Equal(t, entities.UrgencyHigh, state.UrgencyLevel)
	assert.Equal(t, []string{"radiating pain", "diaphoresis"}, state.RedFlags)

	summary := state.DoctorSummary
	require.NotNil(t, summary)
	assert.Equal(t, []string{"ACS", "Angina"}, summary.Insights.DifferentialDiagnosis)
	assert.Equal(t, []string{"Physical examination", "Vital signs"}, summary.Insights.RecommendedTests)
	assert.Equal(t, []string{"radiating pain", "diaphoresis"}, summary.Insights.RedFlags)
	assert.Equal(t, 73, summary.Insights.AIConfidence)
	assert.Equal(t, []string{"Symptomatic treatment as needed"}, summary.TreatmentPlan.Medications)
	assert.Equal(t, []string{"Rest", "Adequate hydration", "Monitor symptoms"}, summary.TreatmentPlan.Lifestyle)
	assert.Equal(t, entities.DefaultFollowUp, summary.TreatmentPlan.FollowUp)

	last := state.Messages[len(state.Messages)-1]
	assert.Equal(t, entities.RoleOrchestrator, last.Role)
	assert.Equal(t, "**Summary:** Based on the team discussion, the most likely differentials are: ACS, Angina. Recommended tests: Physical examination, Vital signs.", last.Content)
}

func TestRunCaseConsultation_UnparseableSummaryAndKeywordUrgency(t *testing.T) {
	check := clinicalCheck()
	check.Symptoms = []string{"severe headache"}
	check.AIAssessment.UrgencyLevel = ""

	gen := &scriptedGenerator{reply: func(int, providers.GenerationRequest) (string, error) {
		return "no structure here", nil
	}}
	o := New(gen, Options{})

	state, err := o.RunCaseConsultation(context.Background(), check, nil)
	require.NoError(t, err)

	assert.Len(t, gen.calls(), 2)
	assert.Equal(t, entities.UrgencyCritical, state.UrgencyLevel)
	summary := state.DoctorSummary
	require.NotNil(t, summary)
	assert.Equal(t, []string{"Angina", "GERD"}, summary.Insights.DifferentialDiagnosis)
	assert.Equal(t, []string{"Physical examination", "Vital signs", "Basic metabolic panel"}, summary.Insights.RecommendedTests)
	assert.Equal(t, []string{}, summary.Insights.RedFlags)
	assert.Equal(t, 80, summary.Insights.AIConfidence)
}

func TestExtractRedFlags(t *testing.T) {
	assert.Equal(t, []string{"fever", "stiff neck"}, extractRedFlags("Assessment\nRED FLAG: fever; stiff neck\nmore"))
	assert.Equal(t, []string{}, extractRedFlags("nothing alarming"))
}

func TestAnalyzeSymptoms(t *testing.T) {
	t.Run("parsed reply is normalised", func(t *testing.T) {
		gen := &scriptedGenerator{reply: func(int, providers.GenerationRequest) (string, error) {
			return `{"urgencyLevel":"bogus","possibleConditions":["a","b","c","d","e","f"],"confidence":0}`, nil
		}}
		o := New(gen, Options{})

		a, err := o.AnalyzeSymptoms(context.Background(), []string{"cough"}, "3 days", "")
		require.NoError(t, err)
		assert.Equal(t, entities.UrgencyMedium, a.UrgencyLevel)
		assert.Equal(t, []string{"a", "b", "c", "d"}, a.PossibleConditions)
		assert.Equal(t, []string{"Please describe symptoms in detail"}, a.QuestionsToAsk)
		assert.Equal(t, "Consult a healthcare provider", a.RecommendedAction)
		assert.Equal(t, 75, a.Confidence)
		assert.Equal(t, "Based on symptom analysis", a.Reasoning)

		req := gen.calls()[0]
		assert.Equal(t, triageSystemPrompt, req.SystemPrompt)
		assert.Contains(t, req.UserPrompt, "Additional Information: None provided")
	})

	t.Run("unparseable reply falls back to keywords", func(t *testing.T) {
		gen := &scriptedGenerator{reply: func(int, providers.GenerationRequest) (string, error) {
			return "sorry", nil
		}}
		o := New(gen, Options{})

		a, err := o.AnalyzeSymptoms(context.Background(), []string{"chest pain", "dizziness"}, "2 hours", "")
		require.NoError(t, err)
		assert.Equal(t, entities.UrgencyCritical, a.UrgencyLevel)
		assert.Equal(t, emergencyAction, a.RecommendedAction)
		assert.Equal(t, "Based on chest pain, dizziness over 2 hours.", a.Reasoning)
		assert.Len(t, a.QuestionsToAsk, 4)
		assert.Equal(t, 75, a.Confidence)
	})

	t.Run("provider failure is returned", func(t *testing.T) {
		gen := &scriptedGenerator{reply: func(int, providers.GenerationRequest) (string, error) {
			return "", apperrors.NewExternalError("down", nil)
		}}
		_, err := New(gen, Options{}).AnalyzeSymptoms(context.Background(), []string{"cough"}, "1 day", "")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	})
}

func TestGenerateInsights(t *testing.T) {
	check := clinicalCheck()
	check.AIAssessment.UrgencyLevel = entities.UrgencyCritical

	gen := &scriptedGenerator{reply: func(int, providers.GenerationRequest) (string, error) {
		return "not json", nil
	}}
	insights, err := New(gen, Options{}).GenerateInsights(context.Background(), check)
	require.NoError(t, err)
	assert.Equal(t, []string{"Angina", "GERD"}, insights.DifferentialDiagnosis)
	assert.Equal(t, []string{"CBC", "Basic metabolic panel", "Physical examination"}, insights.RecommendedTests)
	assert.Equal(t, []string{"Requires immediate evaluation"}, insights.RedFlags)
	assert.Equal(t, 80, insights.AIConfidence)

	gen.reply = func(int, providers.GenerationRequest) (string, error) {
		return `{"recommendedTests":["ECG","Troponin"]}`, nil
	}
	insights, err = New(gen, Options{}).GenerateInsights(context.Background(), check)
	require.NoError(t, err)
	assert.Equal(t, []string{"Angina", "GERD"}, insights.DifferentialDiagnosis)
	assert.Equal(t, []string{"ECG", "Troponin"}, insights.RecommendedTests)
	assert.Equal(t, []string{}, insights.RedFlags)
	assert.Equal(t, 80, insights.AIConfidence)
}

func TestGenerateTreatmentPlan(t *testing.T) {
	gen := &scriptedGenerator{reply: func(int, providers.GenerationRequest) (string, error) {
		return "", nil
	}}
	plan, err := New(gen, Options{}).GenerateTreatmentPlan(context.Background(), "", []string{"cough"})
	require.NoError(t, err)
	assert.Contains(t, gen.calls()[0].UserPrompt, "Diagnosis: Further evaluation")
	assert.Equal(t, []string{"Symptomatic treatment as needed", "Follow prescribing guidelines"}, plan.Medications)
	assert.Len(t, plan.Lifestyle, 3)
	assert.Equal(t, entities.DefaultFollowUp, plan.FollowUp)

	gen.reply = func(int, providers.GenerationRequest) (string, error) {
		return `{"medications":["Paracetamol"]}`, nil
	}
	plan, err = New(gen, Options{}).GenerateTreatmentPlan(context.Background(), "Viral URTI", []string{"cough"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Paracetamol"}, plan.Medications)
	assert.Equal(t, []string{}, plan.Lifestyle)
	assert.Equal(t, entities.DefaultFollowUp, plan.FollowUp)
}
