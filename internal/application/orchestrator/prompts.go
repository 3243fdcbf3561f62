package orchestrator

import (
	"fmt"
	"strings"

	"github.com/medicrew/backend/internal/domain/entities"
)

const coordinatorSystemPrompt = `You are the MediCrew coordinator. Your job is to synthesize all the specialist inputs and provide a clear, actionable recommendation for the patient.

IMPORTANT: Always include the medical disclaimer that this is health navigation guidance, not a medical diagnosis, and the patient should see a real healthcare provider.`

const clinicalCoordinatorSystemPrompt = `You are the MediCrew coordinator synthesizing the team discussion for a colleague (doctor).

Output a JSON object with two parts:
1. "insights": { "differentialDiagnosis": [...], "recommendedTests": [...], "redFlags": [...], "aiConfidence": number }
2. "treatmentPlan": { "medications": [...], "lifestyle": [...], "followUp": "..." }

Be clinical and actionable. The doctor will use this to inform their diagnosis.`

const (
	triageSystemPrompt    = "You are a medical triage AI. Always respond with valid JSON only."
	insightsSystemPrompt  = "You are a medical AI assisting doctors. Respond with valid JSON only."
	treatmentSystemPrompt = "You are a medical AI. Respond with valid JSON only."
)

// colleagueFocus is appended to an agent's system prompt in the clinical flow.
var colleagueFocus = map[entities.ConsultationStep]string{
	entities.StepTriage: `You are advising a colleague (another doctor). Focus on:
- Clinical urgency and reasoning
- Red flags to watch for
- Which specialists should weigh in`,
	entities.StepGP: `You are advising a colleague. Focus on:
- Differential diagnosis considerations
- Key history points to clarify
- Initial workup recommendations`,
	entities.StepSpecialist: `You are advising a colleague. Focus on:
- Specialty-specific differentials
- Recommended tests within your domain
- Red flags specific to your specialty`,
}

func clinicalSystemPrompt(role entities.AgentRole, step entities.ConsultationStep) string {
	return role.Definition().SystemPrompt + "\n\n" + colleagueFocus[step]
}

func additionalInfoLine(info []string) string {
	if len(info) == 0 {
		return ""
	}
	return "Additional information: " + strings.Join(info, ", ")
}

// transcript renders the messages so far, one "Name: content" block per message.
func transcript(messages []entities.AgentMessage, format string) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, fmt.Sprintf(format, m.AgentName, m.Content))
	}
	return strings.Join(parts, "\n\n")
}

func patientTriagePrompt(state *entities.ConsultationState) string {
	return fmt.Sprintf(`Patient symptoms: %s
%s

Please provide a structured triage assessment in the following JSON format:
{
  "urgencyLevel": "emergency" | "urgent" | "routine" | "self_care",
  "reasoning": "your reasoning here",
  "redFlags": ["list of red flags identified"],
  "relevantSpecialties": ["list of relevant medical specialties"]
}`, state.Symptoms, additionalInfoLine(state.AdditionalInfo))
}

func patientGPPrompt(state *entities.ConsultationState) string {
	flags := "No red flags identified"
	if len(state.RedFlags) > 0 {
		flags = "Red flags identified: " + strings.Join(state.RedFlags, ", ")
	}
	return fmt.Sprintf(`Patient symptoms: %s
%s

Triage assessment: %s urgency
%s

Previous assessments:
%s

Please provide your GP assessment, focusing on the overall picture and any additional considerations.`,
		state.Symptoms, additionalInfoLine(state.AdditionalInfo),
		state.UrgencyLevel.PatientFacing(), flags,
		transcript(state.Messages, "%s: %s"))
}

func patientSpecialistPrompt(state *entities.ConsultationState, messages []entities.AgentMessage, agent entities.AgentDefinition) string {
	flags := ""
	if len(state.RedFlags) > 0 {
		flags = "Red flags identified: " + strings.Join(state.RedFlags, ", ")
	}
	return fmt.Sprintf(`Patient symptoms: %s
%s

Triage assessment: %s urgency
%s

Previous assessments from the care team:
%s

As the %s, please provide your specialist perspective on these symptoms.
Focus on aspects relevant to your specialty and any specific recommendations.`,
		state.Symptoms, additionalInfoLine(state.AdditionalInfo),
		state.UrgencyLevel.PatientFacing(), flags,
		transcript(messages, "%s: %s"), agent.Name)
}

func patientSynthesisPrompt(state *entities.ConsultationState) string {
	flags := ""
	if len(state.RedFlags) > 0 {
		flags = "Red flags: " + strings.Join(state.RedFlags, ", ")
	}
	urgency := state.UrgencyLevel.PatientFacing()
	return fmt.Sprintf(`Patient symptoms: %s
Urgency level: %s
%s

## Team Assessments:
%s

Please provide a final recommendation in JSON format:
{
  "urgency": "%s",
  "summary": "A clear, empathetic summary of the situation",
  "nextSteps": ["Step 1", "Step 2", "Step 3"],
  "questionsForDoctor": ["Question 1 to ask your doctor", "Question 2"],
  "specialistType": "Type of specialist to see if applicable",
  "timeframe": "When to seek care (e.g., 'within 24 hours', 'this week')"
}`, state.Symptoms, urgency, flags, transcript(state.Messages, "### %s\n%s"), urgency)
}

// formatSymptomCheck is the case header shared by every clinical prompt.
func formatSymptomCheck(check *entities.SymptomCheck) string {
	additional := check.AdditionalInfo
	if additional == "" {
		additional = "None"
	}
	return fmt.Sprintf(`Patient: %s
Symptoms: %s
Duration: %s
Additional Info: %s
Current AI Triage: %s urgency
Possible Conditions (from initial triage): %s`,
		check.PatientName,
		strings.Join(check.Symptoms, ", "),
		check.Duration,
		additional,
		check.AIAssessment.UrgencyLevel,
		strings.Join(check.AIAssessment.PossibleConditions, ", "))
}

func clinicalTriagePrompt(check *entities.SymptomCheck) string {
	return formatSymptomCheck(check) + `

Please provide your triage assessment for this case. Be concise and clinical.
Include: urgency level, key red flags, and which specialties should be consulted.`
}

func clinicalGPPrompt(check *entities.SymptomCheck, messages []entities.AgentMessage) string {
	return fmt.Sprintf(`%s

**Team discussion so far:**
%s

As the GP, provide your clinical perspective. What's your differential? What would you want to rule out?`,
		formatSymptomCheck(check), transcript(messages, "**%s:** %s"))
}

func clinicalSpecialistPrompt(check *entities.SymptomCheck, messages []entities.AgentMessage, agent entities.AgentDefinition) string {
	return fmt.Sprintf(`%s

**Team discussion so far:**
%s

As the %s, what's your specialist take? Any specific concerns or recommended investigations?`,
		formatSymptomCheck(check), transcript(messages, "**%s:** %s"), agent.Name)
}

func clinicalSummaryPrompt(check *entities.SymptomCheck, state *entities.ConsultationState) string {
	flags := strings.Join(state.RedFlags, ", ")
	if flags == "" {
		flags = "None"
	}
	return fmt.Sprintf(`%s

## Team Discussion:
%s

Red flags identified: %s

Synthesize this into structured insights and a treatment plan suggestion.
Respond with JSON only.`, formatSymptomCheck(check), transcript(state.Messages, "### %s\n%s"), flags)
}

func analyzeSymptomsPrompt(symptoms []string, duration, additionalInfo string) string {
	if additionalInfo == "" {
		additionalInfo = "None provided"
	}
	return fmt.Sprintf(`You are a medical triage AI assistant. Analyze the following patient symptoms and provide a structured assessment.

Symptoms: %s
Duration: %s
Additional Information: %s

Respond ONLY with a JSON object in this exact format:
{
  "urgencyLevel": "low" | "medium" | "high" | "critical",
  "possibleConditions": ["condition1", "condition2", "condition3", "condition4"],
  "recommendedAction": "specific action for patient",
  "questionsToAsk": ["question1", "question2", "question3", "question4"],
  "confidence": 85,
  "reasoning": "brief explanation of the assessment"
}

Guidelines:
- CRITICAL: Life-threatening symptoms (chest pain, severe breathing difficulty, unconsciousness, severe bleeding)
- HIGH: Requires urgent attention within 24 hours
- MEDIUM: Should see doctor within a few days
- LOW: Self-care appropriate, monitor symptoms`, strings.Join(symptoms, ", "), duration, additionalInfo)
}

func insightsPrompt(check *entities.SymptomCheck) string {
	additional := check.AdditionalInfo
	if additional == "" {
		additional = "None"
	}
	return fmt.Sprintf(`As a medical AI assisting doctors, analyze this patient case and provide diagnostic insights.

Patient Symptoms: %s
Duration: %s
Additional Info: %s
AI Triage Level: %s
Possible Conditions: %s

Respond with JSON only:
{
  "differentialDiagnosis": ["diagnosis1", "diagnosis2", "diagnosis3"],
  "recommendedTests": ["test1", "test2", "test3"],
  "redFlags": ["flag1", "flag2"],
  "aiConfidence": 85
}`, strings.Join(check.Symptoms, ", "), check.Duration, additional,
		check.AIAssessment.UrgencyLevel, strings.Join(check.AIAssessment.PossibleConditions, ", "))
}

func treatmentPlanPrompt(diagnosis string, symptoms []string) string {
	return fmt.Sprintf(`As a medical AI, suggest a treatment plan.

Diagnosis: %s
Symptoms: %s

Respond with JSON only:
{
  "medications": ["medication1", "medication2", "medication3"],
  "lifestyle": ["recommendation1", "recommendation2", "recommendation3"],
  "followUp": "follow-up instructions"
}`, diagnosis, strings.Join(symptoms, ", "))
}
