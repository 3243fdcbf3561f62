package llmcommon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/medicrew/backend/pkg/errors"
)

// NotConfiguredMessage is shown to callers when the provider rejects our credentials.
const NotConfiguredMessage = "AI service is not configured"

// ClassifyStatus maps an upstream HTTP status to an AppError. Context
// cancellation is returned unchanged so callers can tell a client disconnect
// apart from a provider failure.
func ClassifyStatus(provider string, statusCode int, retryAfter time.Duration, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		return apperrors.NewRateLimitedError(
			fmt.Sprintf("%s is rate limiting requests, please try again shortly", provider),
			retryAfter, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.NewMisconfiguredError(NotConfiguredMessage, err)
	default:
		return apperrors.NewExternalError(fmt.Sprintf("%s request failed", provider), err)
	}
}

// ParseRetryAfter reads a Retry-After header given either in seconds or as an HTTP date.
func ParseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// RetryAfterFromResponse reads the Retry-After header of resp, which may be nil.
func RetryAfterFromResponse(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	return ParseRetryAfter(resp.Header.Get("Retry-After"))
}
