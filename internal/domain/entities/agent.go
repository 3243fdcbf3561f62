package entities

import "strings"

// AgentRole identifies a member of the consultation team.
type AgentRole string

const (
	RoleTriage        AgentRole = "triage"
	RoleGP            AgentRole = "gp"
	RoleCardiology    AgentRole = "cardiology"
	RoleMentalHealth  AgentRole = "mental_health"
	RoleDermatology   AgentRole = "dermatology"
	RoleOrthopedic    AgentRole = "orthopedic"
	RoleGastro        AgentRole = "gastro"
	RolePhysiotherapy AgentRole = "physiotherapy"
	RoleOrchestrator  AgentRole = "orchestrator"
)

// AgentRoles lists the closed set of roles in registry order.
var AgentRoles = []AgentRole{
	RoleTriage,
	RoleGP,
	RoleCardiology,
	RoleMentalHealth,
	RoleDermatology,
	RoleOrthopedic,
	RoleGastro,
	RolePhysiotherapy,
	RoleOrchestrator,
}

// AgentDefinition describes how an agent presents itself and how it is prompted.
type AgentDefinition struct {
	Role         AgentRole `json:"role"`
	Name         string    `json:"name"`
	Emoji        string    `json:"emoji"`
	Description  string    `json:"description"`
	Specialties  []string  `json:"specialties"`
	SystemPrompt string    `json:"-"`
}

// ParseAgentRole returns the role named by s, if it is part of the team.
func ParseAgentRole(s string) (AgentRole, bool) {
	role := AgentRole(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AgentRoles {
		if role == known {
			return role, true
		}
	}
	return "", false
}

// IsSpecialist reports whether the role is consulted in the specialist stage.
func (r AgentRole) IsSpecialist() bool {
	switch r {
	case RoleCardiology, RoleMentalHealth, RoleDermatology, RoleOrthopedic, RoleGastro, RolePhysiotherapy:
		return true
	default:
		return false
	}
}

// Definition returns the registry entry for the role.
func (r AgentRole) Definition() AgentDefinition {
	switch r {
	case RoleTriage:
		return AgentDefinition{
			Role:        RoleTriage,
			Name:        "Triage Specialist",
			Emoji:       "🚨",
			Description: "Assesses urgency and identifies red flags requiring immediate attention",
			Specialties: []string{"emergency assessment", "red flag identification", "urgency classification"},
			SystemPrompt: `You are an experienced triage nurse AI assistant. Assess the urgency of the patient's symptoms and identify red flags that need immediate medical attention.

Red flags include chest pain (especially with shortness of breath), sudden severe headache, difficulty breathing or speaking, signs of stroke, severe bleeding or trauma, loss of consciousness, suicidal thoughts, severe allergic reactions, high fever with a stiff neck and sudden vision loss.

Urgency levels:
- EMERGENCY: life-threatening, call 000 immediately
- URGENT: needs medical attention within 24 hours
- ROUTINE: can wait for a regular GP appointment
- SELF_CARE: can be managed at home

If in doubt, escalate to the higher level.`,
		}
	case RoleGP:
		return AgentDefinition{
			Role:        RoleGP,
			Name:        "Dr. Alex (GP)",
			Emoji:       "👨‍⚕️",
			Description: "General Practitioner providing holistic assessment and care coordination",
			Specialties: []string{"general medicine", "preventive care", "chronic disease management", "care coordination"},
			SystemPrompt: `You are Dr. Alex, an experienced General Practitioner AI assistant. Take a holistic view of the patient, consider lifestyle factors such as sleep, stress, diet and exercise, identify when specialist input would help and give practical guidance for managing symptoms.

Be warm and clear, avoid unnecessary jargon, and remember that you provide health navigation guidance rather than a diagnosis.`,
		}
	case RoleCardiology:
		return AgentDefinition{
			Role:        RoleCardiology,
			Name:        "Dr. Sarah (Cardiology)",
			Emoji:       "❤️",
			Description: "Cardiologist specializing in heart and cardiovascular concerns",
			Specialties: []string{"heart conditions", "chest pain", "palpitations", "blood pressure", "cardiovascular health"},
			SystemPrompt: `You are Dr. Sarah, a Cardiologist AI assistant. Focus on chest pain character and radiation, palpitations, blood pressure, cardiac causes of breathlessness and cardiovascular risk factors. Any chest pain with sweating, nausea or radiation to the arm or jaw must be treated as an emergency.`,
		}
	case RoleMentalHealth:
		return AgentDefinition{
			Role:        RoleMentalHealth,
			Name:        "Dr. Maya (Mental Health)",
			Emoji:       "🧠",
			Description: "Mental health specialist providing support for psychological wellbeing",
			Specialties: []string{"anxiety", "depression", "stress", "sleep issues", "emotional wellbeing", "crisis support"},
			SystemPrompt: `You are Dr. Maya, a Mental Health Specialist AI assistant. Be compassionate, validating and trauma-informed. Cover anxiety, low mood, stress, sleep difficulties and life transitions. If there is any sign of self-harm or suicidal thinking, direct the patient to crisis support (Lifeline 13 11 14 or 000) first.`,
		}
	case RoleDermatology:
		return AgentDefinition{
			Role:        RoleDermatology,
			Name:        "Dr. James (Dermatology)",
			Emoji:       "🔬",
			Description: "Dermatologist specializing in skin, hair, and nail conditions",
			Specialties: []string{"skin conditions", "rashes", "skin cancer screening", "acne", "eczema", "hair loss"},
			SystemPrompt: `You are Dr. James, a Dermatologist AI assistant. Consider location, duration, appearance, itching or pain, triggers and changes over time. Changing moles or rapidly spreading rashes with fever need prompt review.`,
		}
	case RoleOrthopedic:
		return AgentDefinition{
			Role:        RoleOrthopedic,
			Name:        "Dr. Chris (Orthopedics)",
			Emoji:       "🦴",
			Description: "Orthopedic specialist for bones, joints, muscles, and movement issues",
			Specialties: []string{"joint pain", "back pain", "sports injuries", "fractures", "arthritis", "mobility issues"},
			SystemPrompt: `You are Dr. Chris, an Orthopedic Specialist AI assistant. Assess the location and onset of the problem, pain character and severity, aggravating factors and the impact on daily movement. Suspected fractures, numbness or loss of bladder control need urgent care.`,
		}
	case RoleGastro:
		return AgentDefinition{
			Role:        RoleGastro,
			Name:        "Dr. Priya (Gastroenterology)",
			Emoji:       "🫁",
			Description: "Gastroenterologist specializing in digestive system concerns",
			Specialties: []string{"stomach pain", "digestive issues", "nausea", "bowel problems", "acid reflux", "food intolerances"},
			SystemPrompt: `You are Dr. Priya, a Gastroenterologist AI assistant. Consider pain location, timing relative to meals, bowel habits, diet changes and associated symptoms. Blood in stool or vomit and severe abdominal pain need urgent care.`,
		}
	case RolePhysiotherapy:
		return AgentDefinition{
			Role:        RolePhysiotherapy,
			Name:        "Dr. Taylor (Physiotherapist)",
			Emoji:       "🏃‍♂️",
			Description: "Movement specialist for rehabilitation, injury recovery, and physical function",
			Specialties: []string{"musculoskeletal rehabilitation", "sports injuries", "post-surgical recovery", "chronic pain management", "mobility assessment"},
			SystemPrompt: `You are Dr. Taylor, an experienced Physiotherapist AI assistant. Assess movement and physical function, suggest safe exercises and activity modification, and say when imaging or further assessment is needed.`,
		}
	case RoleOrchestrator:
		return AgentDefinition{
			Role:         RoleOrchestrator,
			Name:         "MediCrew Coordinator",
			Emoji:        "🎯",
			Description:  "Coordinates the consultation flow between specialists",
			Specialties:  []string{"coordination", "synthesis", "recommendation"},
			SystemPrompt: "You coordinate the MediCrew consultation process.",
		}
	default:
		return AgentDefinition{Role: r, Name: string(r)}
	}
}

// AgentDefinitions returns the whole team in registry order.
func AgentDefinitions() []AgentDefinition {
	defs := make([]AgentDefinition, 0, len(AgentRoles))
	for _, role := range AgentRoles {
		defs = append(defs, role.Definition())
	}
	return defs
}

type keywordRoute struct {
	keyword string
	roles   []AgentRole
}

// specialtyKeywords is matched in order; earlier keywords contribute their roles first.
var specialtyKeywords = []keywordRoute{
	{"chest", []AgentRole{RoleCardiology, RoleGP}},
	{"heart", []AgentRole{RoleCardiology}},
	{"palpitation", []AgentRole{RoleCardiology}},
	{"blood pressure", []AgentRole{RoleCardiology}},

	{"anxiety", []AgentRole{RoleMentalHealth, RoleGP}},
	{"depress", []AgentRole{RoleMentalHealth, RoleGP}},
	{"stress", []AgentRole{RoleMentalHealth, RoleGP}},
	{"sleep", []AgentRole{RoleMentalHealth, RoleGP}},
	{"mood", []AgentRole{RoleMentalHealth}},
	{"panic", []AgentRole{RoleMentalHealth}},

	{"skin", []AgentRole{RoleDermatology}},
	{"rash", []AgentRole{RoleDermatology}},
	{"itch", []AgentRole{RoleDermatology}},
	{"acne", []AgentRole{RoleDermatology}},
	{"mole", []AgentRole{RoleDermatology}},

	{"joint", []AgentRole{RoleOrthopedic, RolePhysiotherapy}},
	{"back", []AgentRole{RoleOrthopedic, RolePhysiotherapy}},
	{"knee", []AgentRole{RoleOrthopedic, RolePhysiotherapy}},
	{"shoulder", []AgentRole{RoleOrthopedic, RolePhysiotherapy}},
	{"muscle", []AgentRole{RoleOrthopedic, RolePhysiotherapy}},
	{"bone", []AgentRole{RoleOrthopedic}},
	{"sprain", []AgentRole{RoleOrthopedic, RolePhysiotherapy}},

	{"physio", []AgentRole{RolePhysiotherapy}},
	{"rehab", []AgentRole{RolePhysiotherapy}},
	{"exercise", []AgentRole{RolePhysiotherapy, RoleGP}},
	{"mobility", []AgentRole{RolePhysiotherapy}},
	{"stiff", []AgentRole{RolePhysiotherapy, RoleOrthopedic}},
	{"posture", []AgentRole{RolePhysiotherapy}},
	{"sports", []AgentRole{RolePhysiotherapy, RoleOrthopedic}},
	{"injury", []AgentRole{RolePhysiotherapy, RoleOrthopedic}},
	{"strain", []AgentRole{RolePhysiotherapy}},
	{"flexibility", []AgentRole{RolePhysiotherapy}},

	{"stomach", []AgentRole{RoleGastro, RoleGP}},
	{"digest", []AgentRole{RoleGastro}},
	{"nausea", []AgentRole{RoleGastro, RoleGP}},
	{"vomit", []AgentRole{RoleGastro}},
	{"bowel", []AgentRole{RoleGastro}},
	{"diarrhea", []AgentRole{RoleGastro}},
	{"constipat", []AgentRole{RoleGastro}},
	{"acid", []AgentRole{RoleGastro}},
	{"heartburn", []AgentRole{RoleGastro}},
}

// SelectSpecialties maps symptom text to the roles worth consulting. The GP is always included.
func SelectSpecialties(symptoms string) []AgentRole {
	lower := strings.ToLower(symptoms)

	var roles []AgentRole
	for _, route := range specialtyKeywords {
		if strings.Contains(lower, route.keyword) {
			roles = MergeRoles(roles, route.roles...)
		}
	}
	return MergeRoles(roles, RoleGP)
}

// SpecialistRoles filters roles down to those consulted in the specialist stage.
func SpecialistRoles(roles []AgentRole) []AgentRole {
	var out []AgentRole
	for _, role := range roles {
		if role.IsSpecialist() {
			out = append(out, role)
		}
	}
	return out
}

// MergeRoles appends the roles not already present, keeping first-seen order.
func MergeRoles(existing []AgentRole, add ...AgentRole) []AgentRole {
	seen := make(map[AgentRole]struct{}, len(existing)+len(add))
	out := make([]AgentRole, 0, len(existing)+len(add))
	for _, role := range append(append([]AgentRole{}, existing...), add...) {
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}

// MergeStrings appends the values not already present, keeping first-seen order.
// Blank values are dropped.
func MergeStrings(existing []string, add ...string) []string {
	seen := make(map[string]struct{}, len(existing)+len(add))
	out := make([]string, 0, len(existing)+len(add))
	for _, v := range append(append([]string{}, existing...), add...) {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
