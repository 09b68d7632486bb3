// Package postgres provides the PostgreSQL-backed implementation of the
// task store interface defined in the internal/store package. It handles
// query execution and the mapping between domain records and database rows;
// lifecycle transitions are expressed as conditional UPDATEs so concurrent
// writers are serialized by the database itself.
package postgres
