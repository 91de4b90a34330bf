package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// User-facing messages for the registration flow
const (
	MissingFieldsMessage  = "Name, email, and password are required"
	DuplicateEmailMessage = "Email already exists. Please use a different email address."
	FallbackMessage       = "An error occurred during registration"
)

// Common application errors
var (
	ErrMissingFields  = NewValidationError("", MissingFieldsMessage)
	ErrDuplicateEmail = NewAlreadyExistsError("email", DuplicateEmailMessage)
)

// StatusCoder is implemented by errors that know which HTTP status they map to.
type StatusCoder interface {
	StatusCode() int
}

// ValidationError represents a missing or malformed request field
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s is invalid", e.Field)
}

// StatusCode returns the HTTP status for this error
func (e *ValidationError) StatusCode() int {
	return http.StatusBadRequest
}

// AlreadyExistsError represents a unique constraint violation
type AlreadyExistsError struct {
	Resource string
	Message  string
}

// NewAlreadyExistsError creates a new already exists error
func NewAlreadyExistsError(resource, message string) *AlreadyExistsError {
	return &AlreadyExistsError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface
func (e *AlreadyExistsError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s already exists", e.Resource)
}

// StatusCode returns the HTTP status for this error
func (e *AlreadyExistsError) StatusCode() int {
	return http.StatusBadRequest
}

// FieldValidationError aggregates storage-level validation failures that are
// not caused by a duplicate key.
type FieldValidationError struct {
	Messages []string
}

// NewFieldValidationError creates a new field validation error
func NewFieldValidationError(messages ...string) *FieldValidationError {
	return &FieldValidationError{Messages: messages}
}

// Error implements the error interface
func (e *FieldValidationError) Error() string {
	if len(e.Messages) == 0 {
		return "validation failed"
	}
	return strings.Join(e.Messages, ", ")
}

// StatusCode returns the HTTP status for this error
func (e *FieldValidationError) StatusCode() int {
	return http.StatusBadRequest
}

// InternalError represents an unexpected failure with context
type InternalError struct {
	Message string
	Err     error
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *InternalError {
	return &InternalError{
		Message: message,
		Err:     err,
	}
}

// Error implements the error interface
func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *InternalError) Unwrap() error {
	return e.Err
}

// Reason returns the message shown to clients: the underlying cause when
// there is one, otherwise the fallback text.
func (e *InternalError) Reason() string {
	if e.Err != nil && e.Err.Error() != "" {
		return e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	return FallbackMessage
}

// StatusCode returns the HTTP status for this error.
// Unexpected failures keep the 400 of the public contract.
func (e *InternalError) StatusCode() int {
	return http.StatusBadRequest
}

// DeliveryError represents a failed outbound email. It is only ever logged.
type DeliveryError struct {
	Recipient string
	Err       error
}

// NewDeliveryError creates a new delivery error
func NewDeliveryError(recipient string, err error) *DeliveryError {
	return &DeliveryError{
		Recipient: recipient,
		Err:       err,
	}
}

// Error implements the error interface
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver email to %s: %v", e.Recipient, e.Err)
}

// Unwrap returns the wrapped error
func (e *DeliveryError) Unwrap() error {
	return e.Err
}
