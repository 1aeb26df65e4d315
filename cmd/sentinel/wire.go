package main

import (
	"context"
	"fmt"
	"log/slog"

	"veritas-hq/sentinel/pkg/config"
	"veritas-hq/sentinel/pkg/limits/ratelimit"
	"veritas-hq/sentinel/pkg/limits/storage"
	"veritas-hq/sentinel/pkg/moderation"
	"veritas-hq/sentinel/pkg/policy"
	"veritas-hq/sentinel/pkg/policy/source"
	"veritas-hq/sentinel/pkg/providers"
	"veritas-hq/sentinel/pkg/providers/generic"
	"veritas-hq/sentinel/pkg/providers/openai"
	"veritas-hq/sentinel/pkg/scheduler"
	"veritas-hq/sentinel/pkg/telemetry/metrics"
	"veritas-hq/sentinel/pkg/tenant"
)

// buildProvider constructs the scoring provider the config names.
func buildProvider(cfg providers.Config) (providers.Provider, error) {
	switch cfg.Type {
	case "openai":
		return openai.New(cfg)
	case "generic":
		return generic.New(cfg)
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
}

// buildPolicySource constructs the configured policy source.
func buildPolicySource(cfg config.PolicyConfig, logger *slog.Logger) (source.Source, error) {
	switch cfg.Mode {
	case "file":
		return &source.FileSource{Dir: cfg.Dir, Logger: logger}, nil
	case "git":
		return &source.GitSource{
			URL:    cfg.GitRepo,
			Branch: cfg.GitBranch,
			Subdir: cfg.GitPath,
			Token:  cfg.GitToken,
		}, nil
	default:
		return nil, fmt.Errorf("unknown policy mode %q", cfg.Mode)
	}
}

// buildPolicyStore loads the initial policy set into a fresh store.
func buildPolicyStore(ctx context.Context, src source.Source) (*policy.Store, error) {
	policies, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load policies: %w", err)
	}
	store := policy.NewStore()
	if err := store.Replace(policies); err != nil {
		return nil, err
	}
	return store, nil
}

// buildLimiter constructs the rate limiter and restores persisted
// window state when persistence is configured. The returned backend is
// nil when persistence is off.
func buildLimiter(ctx context.Context, cfg config.LimitsConfig) (*ratelimit.Limiter, storage.Backend, error) {
	lim := ratelimit.NewLimiter(ratelimit.Config{Window: cfg.Window, Cap: cfg.Cap})

	var backend storage.Backend
	switch cfg.Persistence {
	case "", "none":
		return lim, nil, nil
	case "memory":
		backend = storage.NewMemoryBackend()
	case "sqlite":
		b, err := storage.NewSQLiteBackend(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open limiter store: %w", err)
		}
		backend = b
	default:
		return nil, nil, fmt.Errorf("unknown persistence %q", cfg.Persistence)
	}

	snap, err := backend.Load(ctx)
	if err != nil {
		backend.Close()
		return nil, nil, fmt.Errorf("restore limiter state: %w", err)
	}
	lim.Restore(snap)
	return lim, backend, nil
}

// buildTenantCache constructs the tenant settings cache, or nil when no
// settings service is configured.
func buildTenantCache(cfg config.TenantsConfig) (*tenant.Cache, error) {
	if cfg.BaseURL == "" {
		return nil, nil
	}
	fetcher, err := tenant.NewHTTPFetcher(tenant.HTTPFetcherConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("tenant fetcher: %w", err)
	}
	return tenant.NewCache(fetcher, cfg.TTL), nil
}

// buildPipeline assembles the shared check pipeline for one tenant.
func buildPipeline(cfg *config.Config, tenantID string, prov providers.Provider, store *policy.Store, lim *ratelimit.Limiter, tenants *tenant.Cache, m *metrics.Metrics, logger *slog.Logger) *scheduler.Pipeline {
	return &scheduler.Pipeline{
		Provider:   prov,
		Policies:   store,
		Limiter:    lim,
		Tenants:    tenants,
		TenantID:   tenantID,
		PolicyID:   cfg.Policy.DefaultPolicy,
		Aggregator: moderation.Aggregator{FailOpen: cfg.Scheduler.FailOpen},
		Metrics:    m,
		Logger:     logger,
	}
}
