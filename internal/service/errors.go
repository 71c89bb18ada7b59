package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/teamtasks-api/internal/domain"
	"github.com/phrazzld/teamtasks-api/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// Callers check for them with errors.Is; the API layer maps them to status codes.
var (
	// ErrTaskNotFound indicates the referenced task does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrNotificationNotFound indicates the referenced notification does not exist.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrNotAuthorized indicates the actor may not perform the operation.
	// It is the same value as domain.ErrUnauthorized so policy denials match it.
	ErrNotAuthorized = domain.ErrUnauthorized

	// ErrEmailExists indicates a user with the email is already registered.
	ErrEmailExists = errors.New("user already exists")

	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrIncorrectPassword indicates the current password given for a password change is wrong.
	ErrIncorrectPassword = errors.New("password is incorrect")
)

// ServiceError wraps an unexpected failure of a dependency.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// translateError maps store and domain errors to service errors. Errors that
// are already service-level pass through unchanged.
func translateError(operation, message string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrTaskNotFound):
		return ErrTaskNotFound
	case errors.Is(err, store.ErrNotificationNotFound):
		return ErrNotificationNotFound
	case errors.Is(err, store.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, store.ErrEmailExists):
		return ErrEmailExists
	case errors.Is(err, ErrTaskNotFound),
		errors.Is(err, ErrNotificationNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrEmailExists),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrIncorrectPassword),
		errors.Is(err, ErrNotAuthorized),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidFormat):
		return err
	}
	return NewServiceError(operation, message, err)
}
