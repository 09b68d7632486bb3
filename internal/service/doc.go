// Package service contains the application-specific use cases and business
// logic. It orchestrates interactions between domain objects, the task
// store, and the message broker to fulfill application features.
//
// The central component is the TaskService, which owns the submission path:
// it validates the task type against the executor registry, persists a
// pending record, and enqueues the work. Persisting before enqueueing is the
// ordering guarantee the rest of the system is built on; a worker can never
// dequeue a message whose record does not exist yet.
//
// Error handling follows a sentinel-plus-wrapper scheme: expected conditions
// surface as package-level sentinel errors (ErrTaskNotFound,
// ErrUnknownTaskType) that callers check with errors.Is, while unexpected
// failures are wrapped in TaskServiceError to carry the failing operation.
// The API layer maps both onto HTTP status codes.
//
// The service layer depends on domain entities and the store/broker
// interfaces, but never on specific infrastructure implementations.
package service
