package providers

import "context"

// GenerationRequest is one prompt sent to a language model.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

// TextGenerator produces a completion for a prompt.
//
// Implementations report throttling as a RATE_LIMITED AppError, rejected
// credentials as MISCONFIGURED and any other upstream failure as EXTERNAL.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)

	// Name identifies the provider in logs and metrics.
	Name() string
}
