package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/pixelforge/internal/api/shared"
	"github.com/phrazzld/pixelforge/internal/generation"
	"github.com/phrazzld/pixelforge/internal/library"
	"github.com/phrazzld/pixelforge/internal/redact"
	"github.com/phrazzld/pixelforge/internal/service/auth"
	"github.com/phrazzld/pixelforge/internal/task"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, task.ErrTaskNotFound),
		errors.Is(err, task.ErrResultNotReady),
		errors.Is(err, library.ErrElementNotFound),
		errors.Is(err, generation.ErrPromptNotFound):
		return http.StatusNotFound

	// Capacity errors
	case errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrQueueClosed),
		errors.Is(err, auth.ErrAuthNotConfigured):
		return http.StatusServiceUnavailable

	// Bad request errors
	case errors.Is(err, generation.ErrInvalidOptions),
		errors.Is(err, generation.ErrUnknownGenerationType),
		errors.Is(err, library.ErrInvalidElement),
		errors.Is(err, generation.ErrInvalidPrompt):
		return http.StatusBadRequest

	// Upstream model errors
	case errors.Is(err, generation.ErrTransportFailure),
		errors.Is(err, generation.ErrValidationExhausted):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err that reveals no
// internal detail.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid username or password"

	case errors.Is(err, auth.ErrAuthNotConfigured):
		return "Authentication is not available"

	case errors.Is(err, task.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, task.ErrResultNotReady):
		return "Task result not available"

	case errors.Is(err, task.ErrQueueFull):
		return "Server is busy, try again later"

	case errors.Is(err, task.ErrQueueClosed):
		return "Server is shutting down"

	case errors.Is(err, library.ErrElementNotFound):
		return "Element not found"

	case errors.Is(err, library.ErrInvalidElement):
		return "Invalid element"

	case errors.Is(err, generation.ErrPromptNotFound):
		return "Prompt not found"

	case errors.Is(err, generation.ErrInvalidPrompt):
		return "Invalid prompt template"

	case errors.Is(err, generation.ErrInvalidOptions),
		errors.Is(err, generation.ErrUnknownGenerationType):
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return SanitizeValidationError(verrs)
		}
		return "Invalid generation options"

	case errors.Is(err, generation.ErrTransportFailure):
		return "Model service unavailable"

	case errors.Is(err, generation.ErrValidationExhausted):
		return "Model did not produce a valid image"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the status and safe message for err, logging the
// redacted error. A non-empty message overrides the safe message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := MapErrorToStatusCode(err)
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}

	errMsg := err.Error()
	if strings.Contains(errMsg, "Field validation") {
		// Example format: "Key: 'LoginRequest.Username' Error:Field validation for 'Username' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	case "hexcolor":
		return "invalid color"
	default:
		return "validation failed"
	}
}

// safeTaskError trims a task failure message down to something that can be
// shown to the client.
func safeTaskError(message string) string {
	if message == "" {
		return "generation failed"
	}
	message = redact.String(message)
	const maxLen = 300
	if len(message) > maxLen {
		message = message[:maxLen] + "..."
	}
	return message
}
