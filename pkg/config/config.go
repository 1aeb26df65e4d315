package config

import (
	"time"

	"veritas-hq/sentinel/pkg/providers"
)

// Config is the root service configuration.
type Config struct {
	// Provider configures the remote scoring service.
	Provider providers.Config `yaml:"provider"`

	// Policy configures where moderation policies are loaded from.
	Policy PolicyConfig `yaml:"policy"`

	// Limits configures per-tenant admission.
	Limits LimitsConfig `yaml:"limits"`

	// Tenants configures the tenant settings store and cache.
	Tenants TenantsConfig `yaml:"tenants"`

	// Scheduler configures check orchestration defaults.
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Telemetry configures logging, metrics, and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// PolicyConfig selects and tunes the policy source.
type PolicyConfig struct {
	// Mode is "file" or "git".
	Mode string `yaml:"mode"`

	// Dir is the policy directory for file mode.
	Dir string `yaml:"dir,omitempty"`

	// Watch reloads file-mode policies on change.
	Watch bool `yaml:"watch,omitempty"`

	// Git settings, used in git mode.
	GitRepo   string `yaml:"git_repo,omitempty"`
	GitBranch string `yaml:"git_branch,omitempty"`
	GitPath   string `yaml:"git_path,omitempty"`
	GitToken  string `yaml:"git_token,omitempty"`

	// SyncInterval is how often git mode pulls. Default 5m.
	SyncInterval time.Duration `yaml:"sync_interval,omitempty"`

	// DefaultPolicy is the policy applied to tenants that name none.
	DefaultPolicy string `yaml:"default_policy"`
}

// LimitsConfig tunes the per-tenant rate limiter.
type LimitsConfig struct {
	// Window is the trailing admission window. Default 60s.
	Window time.Duration `yaml:"window,omitempty"`

	// Cap is the admissions allowed per tenant per window. Default 100.
	Cap int `yaml:"cap,omitempty"`

	// SweepSchedule is a cron expression for pruning idle tenants.
	// Default "@every 5m".
	SweepSchedule string `yaml:"sweep_schedule,omitempty"`

	// Persistence selects window-state persistence: "none", "memory",
	// or "sqlite". Default "none".
	Persistence string `yaml:"persistence,omitempty"`

	// SQLitePath is the database file for sqlite persistence.
	SQLitePath string `yaml:"sqlite_path,omitempty"`
}

// TenantsConfig configures the tenant settings store.
type TenantsConfig struct {
	// BaseURL is the tenant settings service. Empty disables tenant
	// lookups; every check uses the default policy.
	BaseURL string `yaml:"base_url,omitempty"`

	// APIKey authenticates to the settings service.
	APIKey string `yaml:"api_key,omitempty"`

	// TTL is how long fetched settings are served from cache.
	// Default 5m.
	TTL time.Duration `yaml:"ttl,omitempty"`
}

// SchedulerConfig sets check orchestration defaults.
type SchedulerConfig struct {
	// Debounce is the stream-checker quiet period. Default 500ms.
	Debounce time.Duration `yaml:"debounce,omitempty"`

	// BlockOnRateLimit makes a rate-limit skip come back as block
	// instead of allow.
	BlockOnRateLimit bool `yaml:"block_on_rate_limit,omitempty"`

	// FailOpen lets multi-item aggregates judge on partial results.
	FailOpen bool `yaml:"fail_open,omitempty"`
}

// TelemetryConfig configures the observability surface.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig tunes the slog setup.
type LoggingConfig struct {
	// Level is debug, info, warn, or error. Default info.
	Level string `yaml:"level,omitempty"`

	// Format is "json" or "text". Default json.
	Format string `yaml:"format,omitempty"`

	// AddSource includes file:line in records.
	AddSource bool `yaml:"add_source,omitempty"`
}

// MetricsConfig controls prometheus exposition.
type MetricsConfig struct {
	// Enabled serves /metrics when true.
	Enabled bool `yaml:"enabled,omitempty"`

	// ListenAddress is the exposition address. Default ":9090".
	ListenAddress string `yaml:"listen_address,omitempty"`
}

// TracingConfig controls the OTLP trace exporter.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled,omitempty"`
	Endpoint    string  `yaml:"endpoint,omitempty"`
	ServiceName string  `yaml:"service_name,omitempty"`
	SampleRate  float64 `yaml:"sample_rate,omitempty"`
	Insecure    bool    `yaml:"insecure,omitempty"`
}
