package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envPrefix is the prefix for all environment variables, e.g.
// AIAGENT_SERVER_PORT or AIAGENT_BROKER_KIND.
const envPrefix = "AIAGENT"

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optionally read config.yaml from the working directory. A missing file
	// is fine; the defaults plus environment variables are a full config.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables use the AIAGENT_ prefix with underscores for
	// nesting: server.port becomes AIAGENT_SERVER_PORT.
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers a default for every known key. Registering the empty
// optional keys matters too: viper only surfaces environment variables for
// keys it knows about.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("broker.kind", "memory")
	v.SetDefault("broker.queue", "worker_queue")
	v.SetDefault("broker.queue_size", 100)

	v.SetDefault("store.kind", "memory")
	v.SetDefault("store.result_ttl", "1h")

	v.SetDefault("database.url", "")
	v.SetDefault("redis.url", "redis://localhost:6379/0")

	v.SetDefault("worker.count", 2)
	v.SetDefault("worker.execution_timeout", "30m")
	v.SetDefault("worker.record_retry_attempts", 3)
	v.SetDefault("worker.record_retry_backoff", "50ms")

	v.SetDefault("reaper.enabled", false)
	v.SetDefault("reaper.staleness_window", "30m")
	v.SetDefault("reaper.interval", "5m")

	v.SetDefault("automation.service_url", "")
}
