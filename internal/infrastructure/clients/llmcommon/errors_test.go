package llmcommon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/medicrew/backend/pkg/errors"
)

func TestClassifyStatus(t *testing.T) {
	cause := errors.New("upstream said no")

	err := ClassifyStatus("openai", http.StatusTooManyRequests, 12*time.Second, cause)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRateLimited))
	assert.Equal(t, 12*time.Second, apperrors.RetryAfterOf(err))
	assert.ErrorIs(t, err, cause)

	err = ClassifyStatus("anthropic", http.StatusUnauthorized, 0, cause)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeMisconfigured))

	err = ClassifyStatus("gemini", http.StatusForbidden, 0, cause)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeMisconfigured))

	err = ClassifyStatus("gemini", http.StatusInternalServerError, 0, cause)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))

	err = ClassifyStatus("openai", 0, 0, cause)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
}

func TestClassifyStatus_PassesThroughCancellation(t *testing.T) {
	err := ClassifyStatus("openai", 0, 0, fmt.Errorf("post: %w", context.Canceled))
	_, isApp := apperrors.As(err)
	assert.False(t, isApp)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 30*time.Second, ParseRetryAfter("30"))
	assert.Zero(t, ParseRetryAfter(""))
	assert.Zero(t, ParseRetryAfter("soon"))

	future := time.Now().Add(90 * time.Second).UTC().Format(http.TimeFormat)
	d := ParseRetryAfter(future)
	assert.Greater(t, d, 60*time.Second)
	assert.LessOrEqual(t, d, 90*time.Second)
}

func TestTokenBucket(t *testing.T) {
	assert.Nil(t, NewTokenBucket(-1, 1))

	bucket := NewTokenBucket(60, 1)
	defer bucket.Stop()

	assert.NoError(t, bucket.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bucket.Wait(ctx), context.DeadlineExceeded)

	var nilBucket *TokenBucket
	assert.NoError(t, nilBucket.Wait(context.Background()))
}
