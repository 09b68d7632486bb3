package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/broker"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/events"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/registry"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/service"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Bad request errors
	case errors.Is(err, service.ErrUnknownTaskType),
		errors.Is(err, registry.ErrUnknownTaskType):
		return http.StatusBadRequest

	// Not found errors
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, events.ErrTaskNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrTaskExists):
		return http.StatusConflict

	// Backpressure: the queue cannot absorb more work right now
	case errors.Is(err, broker.ErrQueueFull):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	// Handle nil error
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, service.ErrUnknownTaskType),
		errors.Is(err, registry.ErrUnknownTaskType):
		return "Unknown task type"

	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, events.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrTaskExists):
		return "Task already exists"

	case errors.Is(err, broker.ErrQueueFull):
		return "Task queue is full, try again later"

	// Default case for unknown errors
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Check if this is likely a validation error message
	if strings.Contains(errMsg, "Field validation") {
		// Extract the field name and validation tag
		// Example format: "Key: 'SubmitTaskRequest.TaskType' Error:Field validation for 'TaskType' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			// Further split to get just the field validation part
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				// Create a cleaner error message
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	// Fall back to a generic validation error message
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "url":
		return "invalid URL format"
	default:
		return "validation failed"
	}
}
