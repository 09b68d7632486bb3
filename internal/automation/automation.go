// Package automation provides the built-in task executors: a simulated task
// for development and load testing, and an HTTP delegate that hands real
// browser-automation work to the external automation service.
package automation

import (
	"log/slog"
	"net/http"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/registry"
)

// Task type names known to this deployment
const (
	// TaskTypeApproveBatches drives the batch-approval browser automation.
	TaskTypeApproveBatches = "approve_batches"

	// TaskTypeTestTask is the built-in simulated task.
	TaskTypeTestTask = "test_task"

	// TaskTypeGenerateCertificates and TaskTypeDownloadReports are reserved
	// for automation flows that are delegated when the service supports them.
	TaskTypeGenerateCertificates = "generate_certificates"
	TaskTypeDownloadReports      = "download_reports"
)

// RegisterDefaults wires the built-in executors into the registry. The
// simulated task is always available; automation-service tasks are only
// registered when a service URL is configured, mirroring a deployment where
// the automation service may be absent.
func RegisterDefaults(r *registry.Registry, serviceURL string, client *http.Client, logger *slog.Logger) error {
	if err := r.Register(TaskTypeTestTask, NewSimulatedExecutor(logger)); err != nil {
		return err
	}

	if serviceURL == "" {
		logger.Warn("automation service URL not configured, service-backed task types unavailable",
			"task_types", []string{TaskTypeApproveBatches})
		return nil
	}

	for _, taskType := range []string{TaskTypeApproveBatches} {
		executor, err := NewHTTPExecutor(serviceURL, taskType, client, logger)
		if err != nil {
			return err
		}
		if err := r.Register(taskType, executor); err != nil {
			return err
		}
	}

	return nil
}
