package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// DomainMetrics holds Prometheus metrics for the consultation and queue workflow.
type DomainMetrics struct {
	QueueDepth     *prometheus.GaugeVec   // waiting items by urgency
	Consultations  *prometheus.CounterVec // finished runs by flow and outcome
	StageFallbacks *prometheus.CounterVec // unparseable model replies by flow and stage
	ProviderErrors *prometheus.CounterVec // generator failures by provider and error type
}

// NewDomainMetrics creates and registers the domain metrics with reg.
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	queueDepth := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "medicrew_queue_waiting",
		Help: "Number of queue items currently waiting, by urgency",
	}, []string{"urgency"})

	consultations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medicrew_consultations_total",
		Help: "Number of consultation runs, by flow and outcome",
	}, []string{"flow", "outcome"})

	stageFallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medicrew_stage_fallbacks_total",
		Help: "Number of stages that used their default record because the model reply could not be parsed",
	}, []string{"flow", "stage"})

	providerErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medicrew_llm_errors_total",
		Help: "Number of text generation failures, by provider and error type",
	}, []string{"provider", "type"})

	reg.MustRegister(queueDepth, consultations, stageFallbacks, providerErrors)

	return &DomainMetrics{
		QueueDepth:     queueDepth,
		Consultations:  consultations,
		StageFallbacks: stageFallbacks,
		ProviderErrors: providerErrors,
	}
}

// NewRegistry returns a registry carrying the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// SetQueueDepth publishes the number of waiting items per urgency level.
func (m *DomainMetrics) SetQueueDepth(counts map[string]int) {
	if m == nil {
		return
	}
	for urgency, n := range counts {
		m.QueueDepth.WithLabelValues(urgency).Set(float64(n))
	}
}

// ObserveConsultation counts a finished consultation run.
func (m *DomainMetrics) ObserveConsultation(flow, outcome string) {
	if m == nil {
		return
	}
	m.Consultations.WithLabelValues(flow, outcome).Inc()
}

// ObserveFallback counts a stage that fell back to its default record.
func (m *DomainMetrics) ObserveFallback(flow, stage string) {
	if m == nil {
		return
	}
	m.StageFallbacks.WithLabelValues(flow, stage).Inc()
}

// ObserveProviderError counts a failed generation call.
func (m *DomainMetrics) ObserveProviderError(provider, errType string) {
	if m == nil {
		return
	}
	m.ProviderErrors.WithLabelValues(provider, errType).Inc()
}
