package llm

import (
	"context"
	"strings"

	"github.com/medicrew/backend/internal/domain/providers"
	"github.com/medicrew/backend/internal/infrastructure/clients/anthropic"
	"github.com/medicrew/backend/internal/infrastructure/clients/gemini"
	"github.com/medicrew/backend/internal/infrastructure/clients/openai"
	"github.com/medicrew/backend/internal/infrastructure/observability"
	"github.com/medicrew/backend/pkg/config"
)

// NewTextGenerator builds the configured provider wrapped in a circuit breaker.
// A provider without credentials yields a generator that fails every call with
// a MISCONFIGURED error, so the API still starts and reports the problem per request.
func NewTextGenerator(ctx context.Context, cfg *config.Config, metrics *observability.DomainMetrics) providers.TextGenerator {
	logger := observability.GetLogger()
	provider := strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))

	var (
		primary providers.TextGenerator
		err     error
	)
	switch provider {
	case "anthropic":
		primary, err = anthropic.NewClient(&cfg.Anthropic, &cfg.LLM)
	case "gemini", "google":
		provider = "gemini"
		primary, err = gemini.NewClient(ctx, &cfg.Gemini, &cfg.LLM, "")
	default:
		provider = "openai"
		primary, err = openai.NewClient(&cfg.OpenAI, &cfg.LLM)
	}
	if err != nil {
		logger.Warn().Err(err).Str("provider", provider).Msg("LLM provider not configured, AI endpoints will return 503")
		return NewUnconfiguredGenerator(provider)
	}

	logger.Info().Str("provider", provider).Msg("LLM provider configured")
	return NewBreakerGenerator(primary, BreakerSettings{
		MaxFailures: cfg.LLM.BreakerFailures,
		Cooldown:    cfg.LLM.BreakerCooldown,
	}, metrics)
}
