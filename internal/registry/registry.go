// Package registry maps task type names to their executors. The dispatcher
// consults it before accepting work and workers consult it before running
// work, so an unknown type is rejected at the door instead of dying in a
// worker.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Common errors returned by the registry
var (
	ErrUnknownTaskType   = errors.New("unknown task type")
	ErrDuplicateTaskType = errors.New("task type already registered")
	ErrNilExecutor       = errors.New("executor cannot be nil")
	ErrEmptyTaskTypeName = errors.New("task type name cannot be empty")
)

// Executor runs one type of task. Implementations receive the raw submission
// parameters and return a JSON-serializable result.
// Version: 1.0
type Executor interface {
	// Execute runs the task with the given parameters. The context carries
	// the execution deadline; implementations should return promptly once
	// it is done.
	Execute(ctx context.Context, params map[string]any) (any, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, params map[string]any) (any, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, params map[string]any) (any, error) {
	return f(ctx, params)
}

// Registry holds the known task types. Registration happens at startup;
// lookups are concurrent.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

// NewRegistry creates an empty task type registry.
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[string]Executor),
	}
}

// Register adds an executor under the given task type name.
// Returns ErrDuplicateTaskType if the name is already taken.
func (r *Registry) Register(taskType string, executor Executor) error {
	if taskType == "" {
		return ErrEmptyTaskTypeName
	}
	if executor == nil {
		return ErrNilExecutor
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.executors[taskType]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTaskType, taskType)
	}

	r.executors[taskType] = executor
	return nil
}

// Resolve returns the executor registered under the given task type name.
// Returns ErrUnknownTaskType if no executor is registered.
func (r *Registry) Resolve(taskType string) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	executor, ok := r.executors[taskType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaskType, taskType)
	}

	return executor, nil
}

// Contains reports whether the given task type is registered.
func (r *Registry) Contains(taskType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.executors[taskType]
	return ok
}

// Types returns the registered task type names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.executors))
	for taskType := range r.executors {
		types = append(types, taskType)
	}
	sort.Strings(types)

	return types
}
