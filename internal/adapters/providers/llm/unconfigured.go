package llm

import (
	"context"
	"fmt"

	"github.com/medicrew/backend/internal/domain/providers"
	"github.com/medicrew/backend/internal/infrastructure/clients/llmcommon"
	apperrors "github.com/medicrew/backend/pkg/errors"
)

// UnconfiguredGenerator stands in for a provider that has no credentials.
type UnconfiguredGenerator struct {
	provider string
}

// NewUnconfiguredGenerator creates a generator that always reports MISCONFIGURED.
func NewUnconfiguredGenerator(provider string) *UnconfiguredGenerator {
	return &UnconfiguredGenerator{provider: provider}
}

var _ providers.TextGenerator = (*UnconfiguredGenerator)(nil)

// Generate always fails.
func (g *UnconfiguredGenerator) Generate(ctx context.Context, req providers.GenerationRequest) (string, error) {
	return "", apperrors.NewMisconfiguredError(llmcommon.NotConfiguredMessage,
		fmt.Errorf("no API key configured for %s", g.provider))
}

// Name identifies the provider.
func (g *UnconfiguredGenerator) Name() string {
	return g.provider
}
