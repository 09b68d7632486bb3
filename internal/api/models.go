package api

import (
	"encoding/json"
	"time"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/domain"
)

// Common request/response structures

// SubmitTaskRequest defines the payload for the task submission endpoint.
// Params is passed through to the executor untouched; each task type
// documents the parameters it understands.
type SubmitTaskRequest struct {
	TaskType string         `json:"task_type" validate:"required,min=1"`
	Params   map[string]any `json:"params"`
}

// SubmitTaskResponse defines the successful response for the task submission
// endpoint. Status is always "pending": execution happens asynchronously and
// callers follow up with the returned task ID.
type SubmitTaskResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// TaskErrorResponse carries the failure detail of a failed task.
type TaskErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// TaskStatusResponse defines the response for a task status query. Result is
// present only on completed tasks and Error only on failed ones.
type TaskStatusResponse struct {
	TaskID    string             `json:"task_id"`
	TaskType  string             `json:"task_type"`
	Status    string             `json:"status"`
	Result    json.RawMessage    `json:"result,omitempty"`
	Error     *TaskErrorResponse `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// TaskNotFoundResponse is the body returned for unknown task IDs. Pollers
// treat not_found as a status rather than parsing error strings.
type TaskNotFoundResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// TaskTypesResponse lists the task types this deployment accepts.
type TaskTypesResponse struct {
	TaskTypes []string `json:"task_types"`
}

// taskToStatusResponse converts a domain.TaskRecord to a TaskStatusResponse
func taskToStatusResponse(record *domain.TaskRecord) TaskStatusResponse {
	response := TaskStatusResponse{
		TaskID:    record.ID.String(),
		TaskType:  record.TaskType,
		Status:    string(record.Status),
		Result:    record.Result,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}

	if record.Error != nil {
		response.Error = &TaskErrorResponse{
			Kind:    string(record.Error.Kind),
			Message: record.Error.Message,
		}
	}

	return response
}

// taskNotFoundResponse builds the structured body for an unknown task ID.
func taskNotFoundResponse(taskID string) TaskNotFoundResponse {
	return TaskNotFoundResponse{
		TaskID: taskID,
		Status: string(domain.TaskStatusNotFound),
	}
}
