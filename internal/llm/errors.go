package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorKind classifies a transport failure.
type ErrorKind string

const (
	KindUnreachable   ErrorKind = "unreachable"
	KindModelNotFound ErrorKind = "model_not_found"
	KindTimeout       ErrorKind = "timeout"
	KindRejected      ErrorKind = "rejected" // auth, quota, bad request
)

// TransportError is returned by generators when the endpoint cannot produce a response.
type TransportError struct {
	Kind       ErrorKind
	Endpoint   string
	Model      string
	HTTPStatus int
	RetryAfter time.Duration
	Err        error
}

func (e *TransportError) Error() string {
	switch e.Kind {
	case KindUnreachable:
		return fmt.Sprintf("cannot reach model endpoint %s: %v", e.Endpoint, e.Err)
	case KindModelNotFound:
		return fmt.Sprintf("model %q not found at %s: %v", e.Model, e.Endpoint, e.Err)
	case KindTimeout:
		return fmt.Sprintf("request to %s timed out: %v", e.Endpoint, e.Err)
	default:
		return fmt.Sprintf("request to %s rejected: %v", e.Endpoint, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RetryClass indicates whether an error should be retried.
type RetryClass string

const (
	RetryClassRetryable    RetryClass = "retryable"     // Definitely retry
	RetryClassMaybe        RetryClass = "maybe"         // Retry with caution (limited attempts)
	RetryClassNonRetryable RetryClass = "non_retryable" // Never retry
)

// ClassifyError decides whether a generator error is worth another attempt.
func ClassifyError(err error) RetryClass {
	if err == nil {
		return RetryClassNonRetryable
	}
	if errors.Is(err, context.Canceled) {
		return RetryClassNonRetryable
	}

	var te *TransportError
	if errors.As(err, &te) {
		switch te.Kind {
		case KindUnreachable:
			return RetryClassRetryable
		case KindTimeout:
			return RetryClassMaybe
		default:
			return RetryClassNonRetryable
		}
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") {
		return RetryClassRetryable
	}

	if strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return RetryClassRetryable
	}

	if strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "timeout") {
		return RetryClassMaybe
	}

	return RetryClassNonRetryable
}

// KindFromStatus maps an HTTP status to a transport error kind.
func KindFromStatus(status int) ErrorKind {
	switch {
	case status == 404:
		return KindModelNotFound
	case status == 408 || status == 504:
		return KindTimeout
	case status == 429 || status >= 500:
		return KindUnreachable
	case status == 0:
		return KindUnreachable
	default:
		return KindRejected
	}
}

// RetryExhaustedError indicates that all retry attempts have been exhausted.
type RetryExhaustedError struct {
	Err         error
	Attempts    int
	MaxAttempts int
	IsGuarded   bool // True if this was a "maybe" class error with limited retries
}

func (e *RetryExhaustedError) Error() string {
	if e.IsGuarded {
		return fmt.Sprintf("guarded retries exhausted after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// NewRetryExhaustedError creates a new RetryExhaustedError.
func NewRetryExhaustedError(err error, attempts, maxAttempts int, isGuarded bool) *RetryExhaustedError {
	return &RetryExhaustedError{
		Err:         err,
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
		IsGuarded:   isGuarded,
	}
}
