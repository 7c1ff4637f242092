package providers

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingCredential is returned when a provider has no API key configured
var ErrMissingCredential = errors.New("missing credential")

// ProviderError represents an error from a provider call
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Reason is the outcome classification
	Reason FailureReason

	// Message is a short, client-safe description
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider string, reason FailureReason, message string, statusCode int, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Reason:     reason,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// FailureFrom converts any error raised inside an adapter into a Failure
// outcome. Unclassified errors count as network errors.
func FailureFrom(err error) Outcome {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return Failure(provErr.Reason, provErr.Message)
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Failure(ReasonNetworkError, "deadline exceeded")
	case errors.Is(err, context.Canceled):
		return Failure(ReasonNetworkError, "request canceled")
	case errors.Is(err, ErrMissingCredential):
		return Failure(ReasonProviderRejected, ErrMissingCredential.Error())
	}
	return Failure(ReasonNetworkError, "provider call failed")
}

// RequireCredential fails fast when the spec carries no API key
func RequireCredential(spec Spec) error {
	if !spec.HasCredential() {
		return NewProviderError(spec.ID, ReasonProviderRejected, ErrMissingCredential.Error(), 0, ErrMissingCredential)
	}
	return nil
}
