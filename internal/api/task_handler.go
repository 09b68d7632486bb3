package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/api/shared"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/platform/logger"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/redact"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/service"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskService service.TaskService
	validator   *validator.Validate
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService service.TaskService, logger *slog.Logger) *TaskHandler {
	if taskService == nil {
		panic("taskService cannot be nil for TaskHandler")
	}
	if logger == nil {
		panic("logger cannot be nil for TaskHandler")
	}

	return &TaskHandler{
		taskService: taskService,
		validator:   validator.New(),
		logger:      logger.With(slog.String("component", "task_handler")),
	}
}

// SubmitTask handles POST /api/tasks requests.
// It validates the submission, records the task and enqueues it, then
// answers 202 Accepted: execution happens asynchronously and the caller
// follows up with the returned task ID.
func (h *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// Parse request body
	var req SubmitTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	// Record the task and enqueue it
	record, err := h.taskService.Submit(r.Context(), req.TaskType, req.Params)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Info("task submission accepted",
		slog.String("task_id", record.ID.String()),
		slog.String("task_type", record.TaskType))
	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitTaskResponse{
		TaskID: record.ID.String(),
		Status: string(record.Status),
	})
}

// GetTaskStatus handles GET /api/tasks/{id} requests.
// Unknown IDs answer 404 with a structured not_found body so pollers can
// treat missing tasks as a status instead of parsing error text.
func (h *TaskHandler) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	taskID, ok := pathTaskID(w, r, log)
	if !ok {
		return
	}

	record, err := h.taskService.GetResult(r.Context(), taskID)
	if errors.Is(err, service.ErrTaskNotFound) {
		log.Debug("task status requested for unknown task", slog.String("task_id", taskID.String()))
		shared.RespondWithJSON(w, r, http.StatusNotFound, taskNotFoundResponse(taskID.String()))
		return
	}
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToStatusResponse(record))
}

// ListTaskTypes handles GET /api/task-types requests.
func (h *TaskHandler) ListTaskTypes(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, TaskTypesResponse{
		TaskTypes: h.taskService.TaskTypes(),
	})
}

// pathTaskID extracts and parses the {id} path parameter. On failure it
// writes the 400 response and returns ok=false.
func pathTaskID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (uuid.UUID, bool) {
	pathID := chi.URLParam(r, "id")
	if pathID == "" {
		log.Warn("task ID not found in URL path")
		shared.RespondWithError(w, r, http.StatusBadRequest, "Task ID is required")
		return uuid.Nil, false
	}

	taskID, err := uuid.Parse(pathID)
	if err != nil {
		log.Warn("invalid task ID format", slog.String("task_id", pathID))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID format")
		return uuid.Nil, false
	}

	return taskID, true
}
