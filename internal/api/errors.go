package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/teamtasks-api/internal/api/shared"
	"github.com/phrazzld/teamtasks-api/internal/domain"
	"github.com/phrazzld/teamtasks-api/internal/service"
	"github.com/phrazzld/teamtasks-api/internal/service/auth"
	"github.com/phrazzld/teamtasks-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication and authorization errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrIncorrectPassword),
		errors.Is(err, service.ErrNotAuthorized):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrNotificationNotFound),
		errors.Is(err, service.ErrUserNotFound),
		store.IsNotFoundError(err):
		return http.StatusNotFound

	// Bad request errors
	case errors.Is(err, service.ErrEmailExists),
		store.IsDuplicateError(err),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "Server Error"
	}

	var validationErr *domain.ValidationError

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"
	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken):
		return "Invalid refresh token"
	case errors.Is(err, service.ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, service.ErrIncorrectPassword):
		return "Password is incorrect"
	case errors.Is(err, service.ErrNotAuthorized):
		return "Not authorized"

	case errors.Is(err, service.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, service.ErrNotificationNotFound):
		return "Notification not found"
	case errors.Is(err, service.ErrUserNotFound):
		return "User not found"
	case store.IsNotFoundError(err):
		return "Resource not found"

	case errors.Is(err, service.ErrEmailExists):
		return "User already exists"
	case store.IsDuplicateError(err):
		return "Resource already exists"
	case errors.As(err, &validationErr):
		if validationErr.Field == "" {
			return validationErr.Message
		}
		return "Validation error"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return "Validation error"

	default:
		return "Server Error"
	}
}

// HandleAPIError writes the error response for err. A non-empty
// notAuthorizedMessage replaces the generic message for authorization failures.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, notAuthorizedMessage string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if notAuthorizedMessage != "" && errors.Is(err, service.ErrNotAuthorized) {
		message = notAuthorizedMessage
	}

	var opts []shared.ResponseOption
	if fields := shared.FieldErrors(err); len(fields) > 0 {
		opts = append(opts, shared.WithFieldErrors(fields))
	}
	if status == http.StatusUnauthorized {
		opts = append(opts, shared.WithElevatedLogLevel())
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// HandleValidationError writes a 400 response listing the failed request fields.
func HandleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Validation error", err,
		shared.WithFieldErrors(shared.FieldErrors(err)))
}
