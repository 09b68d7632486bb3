// Package api exposes the task orchestration operations over HTTP: task
// submission, status retrieval, task type discovery, and the live event
// stream. Handlers translate between the wire formats and the application
// services, validate incoming requests, and map internal errors onto safe
// HTTP responses.
package api
