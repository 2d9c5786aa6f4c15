package api

import "fmt"

// ErrorKind is a machine-readable classification of an API error.
type ErrorKind string

const (
	// KindClientInput covers malformed payloads, oversized property maps, and
	// out-of-bounds questions. Caller-fixable, never retried.
	KindClientInput ErrorKind = "client_input"
	// KindAuthentication covers unresolvable, inactive, or expired credentials.
	KindAuthentication ErrorKind = "authentication"
	// KindRateLimited signals the caller should back off and retry later.
	KindRateLimited ErrorKind = "rate_limited"
	// KindGeneration covers generation-collaborator failures and unextractable output.
	KindGeneration ErrorKind = "generation"
	// KindValidationRejected covers generated queries that failed the safety gate.
	// The rejected query text is attached and the query is never executed.
	KindValidationRejected ErrorKind = "validation_rejected"
	// KindExecution covers durable-store read or write failures.
	KindExecution ErrorKind = "execution"
)

// Error is the structured error returned by every server-side endpoint.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Query   string    `json:"query,omitempty"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewClientInputError creates a client input error for a specific field.
func NewClientInputError(field, message string) *Error {
	return &Error{Kind: KindClientInput, Message: message, Field: field}
}

// NewAuthenticationError creates an authentication error.
func NewAuthenticationError(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

// NewRateLimitedError creates a rate limited error.
func NewRateLimitedError(message string) *Error {
	return &Error{Kind: KindRateLimited, Message: message}
}

// NewGenerationError creates a generation error.
func NewGenerationError(message string) *Error {
	return &Error{Kind: KindGeneration, Message: message}
}

// NewValidationRejectedError creates a query-safety rejection carrying the
// rejected query text for caller inspection.
func NewValidationRejectedError(message, query string) *Error {
	return &Error{Kind: KindValidationRejected, Message: message, Query: query}
}

// NewExecutionError wraps a store failure.
func NewExecutionError(message string) *Error {
	return &Error{Kind: KindExecution, Message: message}
}

// AsError returns err as an *Error, wrapping unclassified errors as execution
// failures so handlers always emit a structured envelope.
func AsError(err error) *Error {
	if apiErr, ok := err.(*Error); ok {
		return apiErr
	}
	return NewExecutionError(err.Error())
}
