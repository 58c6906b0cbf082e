package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound signals a missing dataset.
	ErrNotFound = errors.New("not found")
	// ErrValidation signals a malformed request.
	ErrValidation = errors.New("validation failed")
	// ErrRateLimited signals an admission rejection.
	ErrRateLimited = errors.New("rate limited")
	// ErrUpstream signals a search adapter failure.
	ErrUpstream = errors.New("upstream error")
	// ErrTimeout signals an adapter deadline. Retriable subtype of ErrUpstream.
	ErrTimeout = errors.New("upstream timeout")
)

// ValidationError wraps ErrValidation with the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidation creates a validation error for a single field.
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// RateLimitedError wraps ErrRateLimited with a retry hint.
// Deferred means the caller may wait RetryAfter and re-check;
// otherwise the request must not be retried automatically.
type RateLimitedError struct {
	RetryAfter time.Duration
	Limit      string
	Deferred   bool
}

func (e *RateLimitedError) Error() string {
	if e.Limit != "" {
		return fmt.Sprintf("%s: %s exceeded, retry after %s", ErrRateLimited.Error(), e.Limit, e.RetryAfter)
	}
	return fmt.Sprintf("%s: retry after %s", ErrRateLimited.Error(), e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

// NewRateLimited creates a rate limit error naming the exhausted limit.
func NewRateLimited(retryAfter time.Duration, limit string, deferred bool) error {
	return &RateLimitedError{RetryAfter: retryAfter, Limit: limit, Deferred: deferred}
}

// UpstreamError wraps an adapter failure. Timeout failures match
// both ErrUpstream and ErrTimeout.
type UpstreamError struct {
	Op      string
	Err     error
	timeout bool
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrUpstream.Error(), e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	if e.timeout {
		return ErrTimeout
	}
	return ErrUpstream
}

// Is reports ErrUpstream for all upstream failures, timeouts included.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream || (e.timeout && target == ErrTimeout)
}

// NewUpstream creates an upstream error for the named adapter operation.
func NewUpstream(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}

// NewUpstreamTimeout creates a retriable timeout error for the named operation.
func NewUpstreamTimeout(op string, err error) error {
	return &UpstreamError{Op: op, Err: err, timeout: true}
}
