package config

import (
	"time"

	"veritas-hq/sentinel/pkg/limits/ratelimit"
	"veritas-hq/sentinel/pkg/scheduler"
	"veritas-hq/sentinel/pkg/tenant"
)

// ApplyDefaults fills zero fields in place. It never overrides a value
// the file set explicitly.
func ApplyDefaults(cfg *Config) {
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = "default"
	}
	if cfg.Provider.Type == "" {
		cfg.Provider.Type = "generic"
	}

	if cfg.Policy.Mode == "" {
		cfg.Policy.Mode = "file"
	}
	if cfg.Policy.GitBranch == "" {
		cfg.Policy.GitBranch = "main"
	}
	if cfg.Policy.SyncInterval <= 0 {
		cfg.Policy.SyncInterval = 5 * time.Minute
	}
	if cfg.Policy.DefaultPolicy == "" {
		cfg.Policy.DefaultPolicy = "default"
	}

	if cfg.Limits.Window <= 0 {
		cfg.Limits.Window = ratelimit.DefaultWindow
	}
	if cfg.Limits.Cap <= 0 {
		cfg.Limits.Cap = ratelimit.DefaultCap
	}
	if cfg.Limits.SweepSchedule == "" {
		cfg.Limits.SweepSchedule = "@every 5m"
	}
	if cfg.Limits.Persistence == "" {
		cfg.Limits.Persistence = "none"
	}

	if cfg.Tenants.TTL <= 0 {
		cfg.Tenants.TTL = tenant.DefaultTTL
	}

	if cfg.Scheduler.Debounce == 0 {
		cfg.Scheduler.Debounce = scheduler.DefaultDebounce
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = ":9090"
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = "sentinel"
	}
	if cfg.Telemetry.Tracing.SampleRate <= 0 {
		cfg.Telemetry.Tracing.SampleRate = 1.0
	}
}
