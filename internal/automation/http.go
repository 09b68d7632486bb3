package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxResponseBytes caps how much of an automation service response is read.
const maxResponseBytes = 4 << 20

// HTTPExecutor delegates a task type to the external automation service over
// HTTP. The service owns the actual browser automation; this executor only
// ships parameters out and results back.
type HTTPExecutor struct {
	baseURL  string
	taskType string
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPExecutor creates an executor that posts work for the given task
// type to the automation service at baseURL. A nil client gets a default
// with a conservative timeout; the per-task context still applies on top.
func NewHTTPExecutor(baseURL, taskType string, client *http.Client, logger *slog.Logger) (*HTTPExecutor, error) {
	if baseURL == "" {
		return nil, errors.New("automation service URL cannot be empty")
	}
	if taskType == "" {
		return nil, errors.New("task type cannot be empty")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Minute}
	}

	return &HTTPExecutor{
		baseURL:  strings.TrimRight(baseURL, "/"),
		taskType: taskType,
		client:   client,
		logger:   logger.With("component", "http_executor", "task_type", taskType),
	}, nil
}

// Execute posts the parameters to the automation service and returns its
// JSON response as the task result.
func (e *HTTPExecutor) Execute(ctx context.Context, params map[string]any) (any, error) {
	if params == nil {
		params = map[string]any{}
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task parameters: %w", err)
	}

	url := fmt.Sprintf("%s/tasks/%s", e.baseURL, e.taskType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build automation service request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	e.logger.Info("delegating task to automation service", "url", url)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("automation service request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read automation service response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("automation service returned status %d: %s",
			resp.StatusCode, truncate(string(data), 256))
	}

	if !json.Valid(data) {
		return nil, errors.New("automation service returned invalid JSON")
	}

	return json.RawMessage(data), nil
}

// truncate shortens s for inclusion in error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
