// Package store defines the persistence boundary for task records: the
// TaskStore interface, its shared error vocabulary, and the in-memory
// implementation. The interface abstracts the underlying storage mechanism
// so lifecycle rules stay independent of the database technology behind
// them; Postgres and Redis implementations live under internal/platform.
package store
