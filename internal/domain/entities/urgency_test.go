package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseUrgency_BothVocabularies(t *testing.T) {
	tests := []struct {
		input string
		want  UrgencyLevel
	}{
		{"critical", UrgencyCritical},
		{"EMERGENCY", UrgencyCritical},
		{"urgent", UrgencyHigh},
		{"High", UrgencyHigh},
		{"routine", UrgencyMedium},
		{" medium ", UrgencyMedium},
		{"self_care", UrgencyLow},
		{"low", UrgencyLow},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseUrgency(tt.input)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := ParseUrgency("whenever")
	assert.False(t, ok)
}

func TestUrgencyLevel_RoundTripsThroughPatientVocabulary(t *testing.T) {
	for _, level := range UrgencyLevels {
		parsed, ok := ParseUrgency(string(level.PatientFacing()))
		assert.True(t, ok)
		assert.Equal(t, level, parsed)
	}
}

func TestUrgencyLevel_Ordering(t *testing.T) {
	assert.True(t, UrgencyCritical.MoreSevereThan(UrgencyHigh))
	assert.True(t, UrgencyMedium.MoreSevereThan(UrgencyLow))
	assert.False(t, UrgencyLow.MoreSevereThan(UrgencyLow))
	assert.False(t, UrgencyLevel("bogus").Valid())
	assert.True(t, UrgencyLow.MoreSevereThan(UrgencyLevel("bogus")))
}

func TestKeywordUrgency(t *testing.T) {
	assert.Equal(t, UrgencyCritical, KeywordUrgency("Crushing CHEST PAIN since this morning"))
	assert.Equal(t, UrgencyCritical, KeywordUrgency("I can't breathe properly"))
	assert.Equal(t, UrgencyMedium, KeywordUrgency("mild headache"))
}
