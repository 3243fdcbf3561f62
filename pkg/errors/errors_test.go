package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppError_ErrorIncludesCause(t *testing.T) {
	err := NewExternalError("provider failed", errors.New("connection reset"))
	assert.Equal(t, "EXTERNAL: provider failed: connection reset", err.Error())

	err = NewNotFoundError("symptom check not found")
	assert.Equal(t, "NOT_FOUND: symptom check not found", err.Error())
}

func TestAs_FindsWrappedAppError(t *testing.T) {
	base := NewRateLimitedError("slow down", 20*time.Second, nil)
	wrapped := fmt.Errorf("triage stage: %w", base)

	appErr, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ErrorTypeRateLimited, appErr.Type)
	assert.Equal(t, 20*time.Second, appErr.RetryAfter)

	assert.True(t, IsType(wrapped, ErrorTypeRateLimited))
	assert.False(t, IsType(wrapped, ErrorTypeMisconfigured))
	assert.False(t, IsType(errors.New("plain"), ErrorTypeInternal))

	assert.Equal(t, 20*time.Second, RetryAfterOf(wrapped))
	assert.Zero(t, RetryAfterOf(NewExternalError("down", nil)))
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewMisconfiguredError("bad key", cause)
	assert.ErrorIs(t, err, cause)
}
