package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/medicrew/backend/internal/domain/providers"
	"github.com/medicrew/backend/internal/infrastructure/clients/llmcommon"
	"github.com/medicrew/backend/pkg/config"
)

const (
	providerName     = "anthropic"
	defaultMaxTokens = 2000
)

// Client implements providers.TextGenerator against the Anthropic Messages API.
type Client struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
	limiter *llmcommon.TokenBucket
}

// NewClient creates a new Anthropic client. Extra request options are passed
// to the SDK, which lets tests point it at a local server.
func NewClient(cfg *config.AnthropicConfig, llm *config.LLMConfig, opts ...option.RequestOption) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("anthropic api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}

	reqOpts := append([]option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}, opts...)

	c := &Client{
		client: anthropic.NewClient(reqOpts...),
		model:  model,
	}
	if llm != nil {
		c.timeout = llm.Timeout
		c.limiter = llmcommon.NewTokenBucket(llm.RateLimitRPM, llm.RateLimitBurst)
	}
	return c, nil
}

// Name identifies the provider.
func (c *Client) Name() string {
	return providerName
}

// Generate sends one user turn with the system prompt and joins the text blocks of the reply.
func (c *Client) Generate(ctx context.Context, req providers.GenerationRequest) (string, error) {
	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			llmcommon.RecordRequest(ctx, providerName, c.model, 0, 0, err)
			return "", err
		}
		llmcommon.RecordRateLimitWait(ctx, providerName, c.model, time.Since(waitStart))
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	start := time.Now()
	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		status, retryAfter := errorDetails(err)
		llmcommon.RecordRequest(ctx, providerName, c.model, status, time.Since(start), err)
		return "", llmcommon.ClassifyStatus(providerName, status, retryAfter, err)
	}

	var parts []string
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}

	llmcommon.RecordRequest(ctx, providerName, c.model, http.StatusOK, time.Since(start), nil)
	return strings.Join(parts, ""), nil
}

func errorDetails(err error) (int, time.Duration) {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, llmcommon.RetryAfterFromResponse(apiErr.Response)
	}
	return 0, 0
}
