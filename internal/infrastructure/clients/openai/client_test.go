package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicrew/backend/internal/domain/providers"
	"github.com/medicrew/backend/pkg/config"
	apperrors "github.com/medicrew/backend/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(
		&config.OpenAIConfig{APIKey: "test-key", Model: "gpt-test", BaseURL: server.URL + "/v1"},
		&config.LLMConfig{Timeout: 5 * time.Second, RateLimitRPM: -1},
	)
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(&config.OpenAIConfig{}, nil)
	assert.Error(t, err)
}

func TestGenerate_ReturnsFirstChoice(t *testing.T) {
	var received map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"urgencyLevel\":\"urgent\"}"},"finish_reason":"stop"}]}`))
	})

	out, err := client.Generate(context.Background(), providers.GenerationRequest{
		SystemPrompt: "You are a triage nurse.",
		UserPrompt:   "headache",
		Temperature:  0.3,
		MaxTokens:    100,
	})

	require.NoError(t, err)
	assert.Equal(t, `{"urgencyLevel":"urgent"}`, out)
	assert.Equal(t, "gpt-test", received["model"])
	messages := received["messages"].([]interface{})
	assert.Len(t, messages, 2)
}

func TestGenerate_ClassifiesErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   apperrors.ErrorType
	}{
		{"rate limited", http.StatusTooManyRequests, apperrors.ErrorTypeRateLimited},
		{"bad key", http.StatusUnauthorized, apperrors.ErrorTypeMisconfigured},
		{"server error", http.StatusInternalServerError, apperrors.ErrorTypeExternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"error","code":"x"}}`))
			})

			_, err := client.Generate(context.Background(), providers.GenerationRequest{UserPrompt: "hi"})
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.want), "got %v", err)
		})
	}
}

func TestGenerate_RateLimitCarriesRetryAfter(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"requests","code":"rate_limit_exceeded"}}`))
	})

	_, err := client.Generate(context.Background(), providers.GenerationRequest{UserPrompt: "hi"})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRateLimited))
	assert.Equal(t, 7*time.Second, apperrors.RetryAfterOf(err))
}

func TestGenerate_RateLimitWithoutHeader(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"requests","code":"rate_limit_exceeded"}}`))
	})

	_, err := client.Generate(context.Background(), providers.GenerationRequest{UserPrompt: "hi"})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRateLimited))
	assert.Zero(t, apperrors.RetryAfterOf(err))
}
