// Package domain contains the core business entities and value objects of
// the task orchestration system: task records, their lifecycle statuses, the
// messages that carry work to the workers, and the events that announce
// status transitions. It is independent of any specific infrastructure or
// delivery mechanism.
package domain
