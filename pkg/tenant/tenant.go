package tenant

import (
	"context"
	"time"
)

// Config is one tenant's moderation settings as stored remotely.
type Config struct {
	// TenantID identifies the tenant.
	TenantID string `json:"tenant_id"`

	// PolicyID names the policy governing this tenant's checks.
	PolicyID string `json:"policy_id"`

	// Enabled toggles moderation for the tenant. Disabled tenants
	// short-circuit to allow without any remote call.
	Enabled bool `json:"enabled"`

	// LogChannel is where the tenant wants moderation events delivered
	// (a channel ID, webhook name, etc.; opaque to this layer).
	LogChannel string `json:"log_channel,omitempty"`

	// FetchedAt is when this record was read from the remote store.
	FetchedAt time.Time `json:"-"`
}

// Fetcher reads a tenant's settings from the remote store.
//
// A nonexistent tenant is reported as (nil, nil), not an error: "not
// found" is a cacheable answer, while an error means the store could not
// be reached and nothing should be cached.
type Fetcher interface {
	FetchTenant(ctx context.Context, tenantID string) (*Config, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, tenantID string) (*Config, error)

func (f FetcherFunc) FetchTenant(ctx context.Context, tenantID string) (*Config, error) {
	return f(ctx, tenantID)
}
