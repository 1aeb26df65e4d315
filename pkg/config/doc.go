// Package config defines the service configuration: which provider
// scores content, where policies come from, per-tenant limits, and the
// telemetry surface.
//
// Configuration is a YAML file. Loading applies defaults, then optional
// SENTINEL_* environment overrides, then validates the final result, so
// a *Config that came out of Load is always usable.
package config
