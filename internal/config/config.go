package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Broker     BrokerConfig     `mapstructure:"broker"     validate:"required"`
	Store      StoreConfig      `mapstructure:"store"      validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Worker     WorkerConfig     `mapstructure:"worker"     validate:"required"`
	Reaper     ReaperConfig     `mapstructure:"reaper"`
	Automation AutomationConfig `mapstructure:"automation"`
}

// ServerConfig contains all HTTP server related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// BrokerConfig selects and sizes the message broker.
// Kind "memory" runs the queue in-process and only works when the server
// embeds its workers; "redis" allows separate worker processes.
type BrokerConfig struct {
	Kind      string `mapstructure:"kind"       validate:"required,oneof=memory redis"`
	Queue     string `mapstructure:"queue"      validate:"required"`
	QueueSize int    `mapstructure:"queue_size" validate:"required,gt=0"`
}

// StoreConfig selects the task record store. ResultTTL bounds how long
// terminal records are retained where the backing store supports expiry
// (redis); zero disables expiry.
type StoreConfig struct {
	Kind      string        `mapstructure:"kind"       validate:"required,oneof=memory redis postgres"`
	ResultTTL time.Duration `mapstructure:"result_ttl" validate:"min=0"`
}

// DatabaseConfig contains all database-related configuration settings.
// Only required when the store kind is "postgres".
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// RedisConfig contains the Redis connection settings, used when either the
// broker or the store kind is "redis".
type RedisConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// WorkerConfig sizes the worker pool and bounds task execution.
// ExecutionTimeout of zero lets tasks run unbounded. The record retry knobs
// govern how long a worker waits for a task record to become visible before
// treating the message as a protocol violation.
type WorkerConfig struct {
	Count               int           `mapstructure:"count"                 validate:"required,gt=0"`
	ExecutionTimeout    time.Duration `mapstructure:"execution_timeout"     validate:"min=0"`
	RecordRetryAttempts int           `mapstructure:"record_retry_attempts" validate:"required,gt=0"`
	RecordRetryBackoff  time.Duration `mapstructure:"record_retry_backoff"  validate:"min=0"`
}

// ReaperConfig controls the stale-task reaper that fails records abandoned
// by dead workers. Disabled by default; deployments with external liveness
// handling leave it off.
type ReaperConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	StalenessWindow time.Duration `mapstructure:"staleness_window" validate:"min=0"`
	Interval        time.Duration `mapstructure:"interval"         validate:"min=0"`
}

// AutomationConfig points at the external automation service that runs
// browser-driven task types. Empty disables those task types.
type AutomationConfig struct {
	ServiceURL string `mapstructure:"service_url" validate:"omitempty,url"`
}
