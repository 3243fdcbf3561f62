package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/medicrew/backend/internal/domain/providers"
	"github.com/medicrew/backend/internal/infrastructure/observability"
	apperrors "github.com/medicrew/backend/pkg/errors"
)

// BreakerSettings configures when the breaker opens and for how long.
type BreakerSettings struct {
	// MaxFailures is the number of consecutive upstream failures that open the breaker.
	MaxFailures int
	// Cooldown is how long the breaker stays open before letting a probe through.
	Cooldown time.Duration
}

// BreakerGenerator stops calling a failing provider for a cooldown period.
type BreakerGenerator struct {
	next    providers.TextGenerator
	cb      *gobreaker.CircuitBreaker
	metrics *observability.DomainMetrics
}

var _ providers.TextGenerator = (*BreakerGenerator)(nil)

// NewBreakerGenerator wraps next with a circuit breaker. metrics may be nil.
func NewBreakerGenerator(next providers.TextGenerator, settings BreakerSettings, metrics *observability.DomainMetrics) *BreakerGenerator {
	maxFailures := settings.MaxFailures
	if maxFailures <= 0 {
		maxFailures = 5
	}
	cooldown := settings.Cooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(maxFailures)
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			observability.GetLogger().Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("LLM circuit breaker state changed")
		},
	})

	return &BreakerGenerator{next: next, cb: cb, metrics: metrics}
}

// countsAsSuccess keeps caller cancellations, credential problems, rejected
// requests and upstream rate limiting from tripping the breaker. A rate limit
// carries its own retry hint, which an open breaker would replace.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	return apperrors.IsType(err, apperrors.ErrorTypeMisconfigured) ||
		apperrors.IsType(err, apperrors.ErrorTypeRateLimited) ||
		apperrors.IsType(err, apperrors.ErrorTypeValidation)
}

// Name identifies the wrapped provider.
func (b *BreakerGenerator) Name() string {
	return b.next.Name()
}

// Generate forwards to the wrapped provider unless the breaker is open.
func (b *BreakerGenerator) Generate(ctx context.Context, req providers.GenerationRequest) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Generate(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = apperrors.NewExternalError("AI service is temporarily unavailable", err)
		}
		b.observeError(err)
		return "", err
	}
	return out.(string), nil
}

// State reports the breaker state: closed, open or half-open.
func (b *BreakerGenerator) State() string {
	return b.cb.State().String()
}

func (b *BreakerGenerator) observeError(err error) {
	errType := "UNKNOWN"
	if appErr, ok := apperrors.As(err); ok {
		errType = string(appErr.Type)
	} else if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		errType = "CANCELLED"
	}
	b.metrics.ObserveProviderError(b.next.Name(), errType)
}
