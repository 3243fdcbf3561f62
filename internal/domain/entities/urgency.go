package entities

import "strings"

// UrgencyLevel is the canonical severity scale shared by consultations,
// symptom checks and the doctor queue.
type UrgencyLevel string

const (
	UrgencyCritical UrgencyLevel = "critical"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyLow      UrgencyLevel = "low"
)

// PatientUrgency is the patient-facing vocabulary for the same scale.
type PatientUrgency string

const (
	PatientUrgencyEmergency PatientUrgency = "emergency"
	PatientUrgencyUrgent    PatientUrgency = "urgent"
	PatientUrgencyRoutine   PatientUrgency = "routine"
	PatientUrgencySelfCare  PatientUrgency = "self_care"
)

// UrgencyLevels lists every level from most to least severe.
var UrgencyLevels = []UrgencyLevel{UrgencyCritical, UrgencyHigh, UrgencyMedium, UrgencyLow}

// Rank returns the severity rank, 0 being the most severe. Unknown levels sort last.
func (u UrgencyLevel) Rank() int {
	switch u {
	case UrgencyCritical:
		return 0
	case UrgencyHigh:
		return 1
	case UrgencyMedium:
		return 2
	case UrgencyLow:
		return 3
	default:
		return len(UrgencyLevels)
	}
}

// Valid reports whether u is one of the canonical levels.
func (u UrgencyLevel) Valid() bool {
	return u.Rank() < len(UrgencyLevels)
}

// MoreSevereThan reports whether u outranks other.
func (u UrgencyLevel) MoreSevereThan(other UrgencyLevel) bool {
	return u.Rank() < other.Rank()
}

// PatientFacing maps u to the patient vocabulary.
func (u UrgencyLevel) PatientFacing() PatientUrgency {
	switch u {
	case UrgencyCritical:
		return PatientUrgencyEmergency
	case UrgencyHigh:
		return PatientUrgencyUrgent
	case UrgencyLow:
		return PatientUrgencySelfCare
	default:
		return PatientUrgencyRoutine
	}
}

// BaseWaitMinutes is the queue wait for a case of this level with nobody ahead of it.
func (u UrgencyLevel) BaseWaitMinutes() int {
	switch u {
	case UrgencyCritical:
		return 0
	case UrgencyHigh:
		return 15
	case UrgencyLow:
		return 60
	default:
		return 30
	}
}

// ParseUrgency accepts either vocabulary, case-insensitively.
func ParseUrgency(s string) (UrgencyLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "emergency":
		return UrgencyCritical, true
	case "high", "urgent":
		return UrgencyHigh, true
	case "medium", "routine":
		return UrgencyMedium, true
	case "low", "self_care", "self-care":
		return UrgencyLow, true
	default:
		return "", false
	}
}

// criticalKeywords force the most severe level when a model reply cannot be parsed.
var criticalKeywords = []string{
	"severe",
	"chest pain",
	"can't breathe",
	"unconscious",
	"bleeding",
	"emergency",
}

// KeywordUrgency returns critical when text mentions a critical keyword and medium otherwise.
func KeywordUrgency(text string) UrgencyLevel {
	lower := strings.ToLower(text)
	for _, keyword := range criticalKeywords {
		if strings.Contains(lower, keyword) {
			return UrgencyCritical
		}
	}
	return UrgencyMedium
}
