package llmcommon

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type aiMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	rateLimitWait   metric.Float64Histogram
}

var (
	aiMetricsOnce sync.Once
	aiMetricsInst *aiMetrics
)

func ensureMetrics() *aiMetrics {
	aiMetricsOnce.Do(func() {
		meter := otel.Meter("github.com/medicrew/backend/llm")

		requestCount, err := meter.Int64Counter(
			"ai.request.count",
			metric.WithDescription("Number of language model requests"),
		)
		if err != nil {
			return
		}
		requestDuration, err := meter.Float64Histogram(
			"ai.request.duration",
			metric.WithDescription("Language model request duration in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}
		requestErrors, err := meter.Int64Counter(
			"ai.request.errors",
			metric.WithDescription("Number of language model request errors"),
		)
		if err != nil {
			return
		}
		rateLimitWait, err := meter.Float64Histogram(
			"ai.rate_limit.wait",
			metric.WithDescription("Time spent waiting for the client-side rate limiter in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}

		aiMetricsInst = &aiMetrics{
			requestCount:    requestCount,
			requestDuration: requestDuration,
			requestErrors:   requestErrors,
			rateLimitWait:   rateLimitWait,
		}
	})
	return aiMetricsInst
}

// RecordRequest records one completed upstream call.
func RecordRequest(ctx context.Context, provider, model string, statusCode int, duration time.Duration, err error) {
	m := ensureMetrics()
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", provider),
		attribute.String("ai.model", model),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	m.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		m.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordRateLimitWait records time spent in the client-side limiter.
func RecordRateLimitWait(ctx context.Context, provider, model string, wait time.Duration) {
	m := ensureMetrics()
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", provider),
		attribute.String("ai.model", model),
	}
	m.rateLimitWait.Record(ctx, float64(wait.Milliseconds()), metric.WithAttributes(attrs...))
}
