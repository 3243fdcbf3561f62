package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/medicrew/backend/internal/domain/providers"
	"github.com/medicrew/backend/internal/infrastructure/clients/llmcommon"
	"github.com/medicrew/backend/pkg/config"
)

const providerName = "openai"

// Client implements providers.TextGenerator against the OpenAI chat completions API.
type Client struct {
	client  *goopenai.Client
	model   string
	timeout time.Duration
	limiter *llmcommon.TokenBucket
}

// NewClient creates a new OpenAI client.
func NewClient(cfg *config.OpenAIConfig, llm *config.LLMConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Transport: &retryAfterTransport{base: http.DefaultTransport}}

	c := &Client{
		client: goopenai.NewClientWithConfig(clientCfg),
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

// Generate sends the system and user prompt as a single chat turn and returns the reply text.
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

	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: req.UserPrompt,
	})

	hint := &retryHint{}
	ctx = context.WithValue(ctx, retryHintKey{}, hint)

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		status := statusCode(err)
		llmcommon.RecordRequest(ctx, providerName, c.model, status, time.Since(start), err)
		return "", llmcommon.ClassifyStatus(providerName, status, hint.retryAfter, err)
	}

	if len(resp.Choices) == 0 {
		err := errors.New("openai response has no choices")
		llmcommon.RecordRequest(ctx, providerName, c.model, http.StatusOK, time.Since(start), err)
		return "", llmcommon.ClassifyStatus(providerName, http.StatusOK, 0, err)
	}

	llmcommon.RecordRequest(ctx, providerName, c.model, http.StatusOK, time.Since(start), nil)
	return resp.Choices[0].Message.Content, nil
}

func statusCode(err error) int {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

type retryHintKey struct{}

// retryHint receives the Retry-After of a rate-limited response, which the
// go-openai error types do not carry
type retryHint struct {
	retryAfter time.Duration
}

type retryAfterTransport struct {
	base http.RoundTripper
}

func (t *retryAfterTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusTooManyRequests {
		return resp, err
	}
	if hint, ok := req.Context().Value(retryHintKey{}).(*retryHint); ok {
		hint.retryAfter = llmcommon.RetryAfterFromResponse(resp)
	}
	return resp, nil
}
