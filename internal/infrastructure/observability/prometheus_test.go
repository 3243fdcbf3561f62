package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestDomainMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDomainMetrics(reg)

	m.SetQueueDepth(map[string]int{"critical": 2, "low": 1})
	m.ObserveConsultation("patient", "completed")
	m.ObserveConsultation("patient", "completed")
	m.ObserveFallback("clinical", "synthesize")
	m.ObserveProviderError("openai", "RATE_LIMITED")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueueDepth.WithLabelValues("critical")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Consultations.WithLabelValues("patient", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageFallbacks.WithLabelValues("clinical", "synthesize")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderErrors.WithLabelValues("openai", "RATE_LIMITED")))
}

func TestDomainMetrics_NilIsNoop(t *testing.T) {
	var m *DomainMetrics
	assert.NotPanics(t, func() {
		m.SetQueueDepth(map[string]int{"high": 1})
		m.ObserveConsultation("patient", "failed")
		m.ObserveFallback("patient", "triage")
		m.ObserveProviderError("gemini", "EXTERNAL")
	})
}
