package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at path, applies defaults and SENTINEL_*
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	return Parse(data)
}

// Parse is Load for in-memory YAML.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// applyEnvOverrides applies SENTINEL_SECTION_FIELD environment
// variables on top of the file. Secrets are the main use: keys stay out
// of config files checked into git.
func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Provider.APIKey, "SENTINEL_PROVIDER_API_KEY")
	setString(&cfg.Provider.BaseURL, "SENTINEL_PROVIDER_BASE_URL")
	setString(&cfg.Provider.Model, "SENTINEL_PROVIDER_MODEL")

	setString(&cfg.Policy.Mode, "SENTINEL_POLICY_MODE")
	setString(&cfg.Policy.Dir, "SENTINEL_POLICY_DIR")
	setString(&cfg.Policy.GitRepo, "SENTINEL_POLICY_GIT_REPO")
	setString(&cfg.Policy.GitBranch, "SENTINEL_POLICY_GIT_BRANCH")
	setString(&cfg.Policy.GitToken, "SENTINEL_POLICY_GIT_TOKEN")
	setString(&cfg.Policy.DefaultPolicy, "SENTINEL_POLICY_DEFAULT")

	setDuration(&cfg.Limits.Window, "SENTINEL_LIMITS_WINDOW")
	setInt(&cfg.Limits.Cap, "SENTINEL_LIMITS_CAP")
	setString(&cfg.Limits.SQLitePath, "SENTINEL_LIMITS_SQLITE_PATH")

	setString(&cfg.Tenants.BaseURL, "SENTINEL_TENANTS_BASE_URL")
	setString(&cfg.Tenants.APIKey, "SENTINEL_TENANTS_API_KEY")
	setDuration(&cfg.Tenants.TTL, "SENTINEL_TENANTS_TTL")

	setDuration(&cfg.Scheduler.Debounce, "SENTINEL_SCHEDULER_DEBOUNCE")
	setBool(&cfg.Scheduler.BlockOnRateLimit, "SENTINEL_SCHEDULER_BLOCK_ON_RATE_LIMIT")
	setBool(&cfg.Scheduler.FailOpen, "SENTINEL_SCHEDULER_FAIL_OPEN")

	setString(&cfg.Telemetry.Logging.Level, "SENTINEL_LOG_LEVEL")
	setString(&cfg.Telemetry.Logging.Format, "SENTINEL_LOG_FORMAT")
	setBool(&cfg.Telemetry.Metrics.Enabled, "SENTINEL_METRICS_ENABLED")
	setString(&cfg.Telemetry.Metrics.ListenAddress, "SENTINEL_METRICS_LISTEN_ADDRESS")
	setBool(&cfg.Telemetry.Tracing.Enabled, "SENTINEL_TRACING_ENABLED")
	setString(&cfg.Telemetry.Tracing.Endpoint, "SENTINEL_TRACING_ENDPOINT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
