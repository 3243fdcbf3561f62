package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/medicrew/backend/internal/infrastructure/observability"
	apperrors "github.com/medicrew/backend/pkg/errors"
)

// defaultRetryAfter is suggested when a rate limit arrives without a hint
const defaultRetryAfter = 30 * time.Second

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps err to a status code and a message safe to show callers
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		// client went away
		return
	}

	status, message := errorResponse(err)
	logger := observability.LoggerFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	} else {
		logger.Debug().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request rejected")
	}

	retryAfter := apperrors.RetryAfterOf(err)
	if retryAfter <= 0 && status == http.StatusTooManyRequests {
		retryAfter = defaultRetryAfter
	}
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(retryAfter.Seconds())))
	}
	respondWithError(w, status, message)
}

func errorResponse(err error) (int, string) {
	appErr, ok := apperrors.As(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, "request timed out"
		}
		return http.StatusInternalServerError, "internal server error"
	}

	switch appErr.Type {
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound, appErr.Message
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest, appErr.Message
	case apperrors.ErrorTypeConflict:
		return http.StatusConflict, appErr.Message
	case apperrors.ErrorTypeUnauthorized:
		return http.StatusUnauthorized, appErr.Message
	case apperrors.ErrorTypeRateLimited:
		return http.StatusTooManyRequests, appErr.Message
	case apperrors.ErrorTypeMisconfigured:
		return http.StatusServiceUnavailable, appErr.Message
	case apperrors.ErrorTypeExternal:
		return http.StatusBadGateway, appErr.Message
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// retryAfterSeconds rounds up so callers never retry early
func retryAfterSeconds(seconds float64) int {
	whole := int(seconds)
	if float64(whole) < seconds {
		whole++
	}
	if whole < 1 {
		whole = 1
	}
	return whole
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewValidationError("invalid request payload")
	}
	return nil
}
