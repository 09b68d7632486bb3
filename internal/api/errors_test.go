package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/broker"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/events"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/registry"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/service"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/store"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{
			name:           "nil error",
			err:            nil,
			expectedStatus: http.StatusInternalServerError, // Default to 500 for nil error
		},
		{
			name:           "unknown task type error",
			err:            service.ErrUnknownTaskType,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "wrapped unknown task type error",
			err:            fmt.Errorf("failed to submit task: %w", service.ErrUnknownTaskType),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "registry unknown task type error",
			err:            registry.ErrUnknownTaskType,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "service task not found error",
			err:            service.ErrTaskNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "store task not found error",
			err:            store.ErrTaskNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "events task not found error",
			err:            events.ErrTaskNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "task exists error",
			err:            store.ErrTaskExists,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "queue full error",
			err:            broker.ErrQueueFull,
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name: "queue full error wrapped in service error",
			err: service.NewTaskServiceError(
				"submit_task",
				"failed to enqueue task",
				broker.ErrQueueFull,
			),
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "generic error",
			err:            errors.New("some unexpected error"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statusCode := MapErrorToStatusCode(tt.err)
			assert.Equal(t, tt.expectedStatus, statusCode)
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		expectedMessage string
	}{
		{
			name:            "nil error",
			err:             nil,
			expectedMessage: "An unexpected error occurred",
		},
		{
			name:            "unknown task type error",
			err:             service.ErrUnknownTaskType,
			expectedMessage: "Unknown task type",
		},
		{
			name:            "task not found error",
			err:             service.ErrTaskNotFound,
			expectedMessage: "Task not found",
		},
		{
			name:            "task exists error",
			err:             store.ErrTaskExists,
			expectedMessage: "Task already exists",
		},
		{
			name:            "queue full error",
			err:             fmt.Errorf("enqueue: %w", broker.ErrQueueFull),
			expectedMessage: "Task queue is full, try again later",
		},
		{
			name:            "generic error hides internals",
			err:             errors.New("pq: connection refused at 10.0.0.5:5432"),
			expectedMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			message := GetSafeErrorMessage(tt.err)
			assert.Equal(t, tt.expectedMessage, message)
		})
	}
}

func TestSanitizeValidationError(t *testing.T) {
	validate := validator.New()

	t.Run("missing required field", func(t *testing.T) {
		err := validate.Struct(SubmitTaskRequest{})
		require.Error(t, err)

		message := SanitizeValidationError(err)
		assert.Equal(t, "Invalid TaskType: required field", message)
	})

	t.Run("non-validation error", func(t *testing.T) {
		message := SanitizeValidationError(errors.New("boom"))
		assert.Equal(t, "Validation error", message)
	})
}
