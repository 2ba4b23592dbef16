// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Classification errors.
	ErrInvalidInput          = errors.New("invalid input")
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	ErrMalformedResponse     = errors.New("malformed classifier response")
	ErrQuotaExceeded         = errors.New("usage quota exceeded")

	// Configuration errors.
	ErrConfigurationMissing = errors.New("configuration missing")
	ErrInvalidConfig        = errors.New("invalid configuration")

	// Database errors.
	ErrNotFound = errors.New("not found")
)

// Failure reasons used as log fields and metric labels.
const (
	ReasonInvalidInput  = "invalid_input"
	ReasonUnavailable   = "unavailable"
	ReasonMalformed     = "malformed"
	ReasonTimeout       = "timeout"
	ReasonRateLimited   = "rate_limited"
	ReasonQuota         = "quota"
	ReasonConfiguration = "configuration"
	ReasonUnknown       = "unknown"
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}

// Reason maps an error onto the failure taxonomy label used in logs and metrics.
// Rate limits and exhausted quotas are reported separately even though both
// count as an unavailable classifier.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return ReasonInvalidInput
	case errors.Is(err, ErrConfigurationMissing), errors.Is(err, ErrInvalidConfig):
		return ReasonConfiguration
	case errors.Is(err, ErrMalformedResponse):
		return ReasonMalformed
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, ErrRateLimit):
		return ReasonRateLimited
	case errors.Is(err, ErrQuotaExceeded):
		return ReasonQuota
	case errors.Is(err, ErrClassifierUnavailable), errors.Is(err, ErrMaxRetries):
		return ReasonUnavailable
	default:
		return ReasonUnknown
	}
}
