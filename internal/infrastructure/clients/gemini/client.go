package gemini

import (
	"context"
	"errors"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/medicrew/backend/internal/domain/providers"
	"github.com/medicrew/backend/internal/infrastructure/clients/llmcommon"
	"github.com/medicrew/backend/pkg/config"
)

const providerName = "gemini"

// Client implements providers.TextGenerator against the Gemini API.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	limiter *llmcommon.TokenBucket
}

// NewClient creates a new Gemini client. baseURL overrides the API endpoint when non-empty.
func NewClient(ctx context.Context, cfg *config.GeminiConfig, llm *config.LLMConfig, baseURL string) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, err
	}

	c := &Client{
		client: client,
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

// Generate calls GenerateContent with the system prompt as the system instruction.
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

	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.SystemPrompt != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.UserPrompt), genCfg)
	if err != nil {
		status := statusCode(err)
		llmcommon.RecordRequest(ctx, providerName, c.model, status, time.Since(start), err)
		return "", llmcommon.ClassifyStatus(providerName, status, 0, err)
	}

	llmcommon.RecordRequest(ctx, providerName, c.model, http.StatusOK, time.Since(start), nil)
	return resp.Text(), nil
}

func statusCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code
	}
	return 0
}
