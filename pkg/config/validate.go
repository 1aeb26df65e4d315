package config

import (
	"fmt"

	"veritas-hq/sentinel/pkg/telemetry/logging"
)

// Validate checks the configuration for internal consistency. Call it
// after ApplyDefaults; zero values the defaults would have filled are
// reported as errors here.
func Validate(cfg *Config) error {
	switch cfg.Provider.Type {
	case "openai", "generic":
	default:
		return fmt.Errorf("provider: unknown type %q", cfg.Provider.Type)
	}
	if cfg.Provider.Type == "generic" && cfg.Provider.BaseURL == "" {
		return fmt.Errorf("provider: generic type requires base_url")
	}
	if cfg.Provider.MaxRetries < 0 {
		return fmt.Errorf("provider: max_retries must not be negative")
	}

	switch cfg.Policy.Mode {
	case "file":
		if cfg.Policy.Dir == "" {
			return fmt.Errorf("policy: file mode requires dir")
		}
	case "git":
		if cfg.Policy.GitRepo == "" {
			return fmt.Errorf("policy: git mode requires git_repo")
		}
	default:
		return fmt.Errorf("policy: unknown mode %q", cfg.Policy.Mode)
	}

	if cfg.Limits.Window <= 0 {
		return fmt.Errorf("limits: window must be positive")
	}
	if cfg.Limits.Cap <= 0 {
		return fmt.Errorf("limits: cap must be positive")
	}
	switch cfg.Limits.Persistence {
	case "none", "memory":
	case "sqlite":
		if cfg.Limits.SQLitePath == "" {
			return fmt.Errorf("limits: sqlite persistence requires sqlite_path")
		}
	default:
		return fmt.Errorf("limits: unknown persistence %q", cfg.Limits.Persistence)
	}

	if cfg.Tenants.TTL <= 0 {
		return fmt.Errorf("tenants: ttl must be positive")
	}

	if _, err := logging.ParseLevel(cfg.Telemetry.Logging.Level); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry: unknown log format %q", cfg.Telemetry.Logging.Format)
	}
	if cfg.Telemetry.Tracing.Enabled && cfg.Telemetry.Tracing.Endpoint == "" {
		return fmt.Errorf("telemetry: tracing is enabled but endpoint is empty")
	}
	if r := cfg.Telemetry.Tracing.SampleRate; r < 0 || r > 1 {
		return fmt.Errorf("telemetry: sample_rate %v outside [0, 1]", r)
	}

	return nil
}
