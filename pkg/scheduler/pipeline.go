package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"veritas-hq/sentinel/pkg/limits/ratelimit"
	"veritas-hq/sentinel/pkg/moderation"
	"veritas-hq/sentinel/pkg/policy"
	"veritas-hq/sentinel/pkg/policy/engine"
	"veritas-hq/sentinel/pkg/providers"
	"veritas-hq/sentinel/pkg/telemetry/metrics"
	"veritas-hq/sentinel/pkg/telemetry/tracing"
	"veritas-hq/sentinel/pkg/tenant"
)

// Pipeline is the shared check path: tenant settings, rate admission,
// provider scoring, policy evaluation, aggregation. Checker and Client
// both run checks through it.
//
// Limiter and Tenants are optional; a nil Limiter admits everything and
// a nil Tenants cache skips tenant lookups. Provider and Policies are
// required.
type Pipeline struct {
	// Provider scores content remotely.
	Provider providers.Provider

	// Policies is the validated policy registry.
	Policies *policy.Store

	// Limiter gates checks per tenant; nil admits everything.
	Limiter *ratelimit.Limiter

	// Tenants resolves tenant settings; nil skips the lookup.
	Tenants *tenant.Cache

	// TenantID scopes admission and settings lookups.
	TenantID string

	// PolicyID is the policy used when the tenant config names none.
	PolicyID string

	// Aggregator folds multi-item decisions; zero value is fail-closed.
	Aggregator moderation.Aggregator

	// Metrics is optional pipeline instrumentation.
	Metrics *metrics.Metrics

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// blank reports whether the submission carries nothing worth checking:
// every item is whitespace-only text or an empty payload.
func blank(items []moderation.ContentItem) bool {
	for _, item := range items {
		if strings.TrimSpace(item.Payload) != "" {
			return false
		}
	}
	return true
}

// run executes one check end to end and returns its outcome. policyID
// overrides policy selection when non-empty; otherwise the tenant's
// configured policy, then the pipeline default, applies. It never
// panics on misconfiguration; missing collaborators surface as
// OutcomeError. Outcome accounting (checks_total, durations) is the
// caller's: Checker and Client record at delivery so a superseded run
// is not counted twice.
func (p *Pipeline) run(ctx context.Context, items []moderation.ContentItem, policyID string) Outcome {
	if len(items) == 0 {
		return p.resultOutcome(items, []moderation.Decision{moderation.Allow()})
	}
	if blank(items) {
		// Blank content is safe by definition: no limiter slot is
		// consumed and no remote call is made. Arity matches the
		// submission so multi-item callers still get an aggregate.
		return p.resultOutcome(items, allowAll(len(items)))
	}
	if p.Provider == nil || p.Policies == nil {
		return Outcome{Kind: OutcomeError, Err: fmt.Errorf("pipeline is missing a provider or policy store")}
	}

	if p.Tenants != nil && p.TenantID != "" {
		cfg, err := p.Tenants.Get(ctx, p.TenantID)
		if err != nil {
			return Outcome{Kind: OutcomeError, Err: fmt.Errorf("tenant lookup: %w", err)}
		}
		if cfg != nil {
			if !cfg.Enabled {
				// Moderation disabled for this tenant: allow without
				// consuming a limiter slot.
				return p.resultOutcome(items, allowAll(len(items)))
			}
			if policyID == "" && cfg.PolicyID != "" {
				policyID = cfg.PolicyID
			}
		}
	}
	if policyID == "" {
		policyID = p.PolicyID
	}

	pol := p.Policies.Get(policyID)
	if pol == nil {
		return Outcome{Kind: OutcomeError, Err: fmt.Errorf("unknown policy %q", policyID)}
	}

	if p.Limiter != nil && !p.Limiter.Admit(p.TenantID) {
		p.logger().Debug("check skipped by rate limiter", "tenant", p.TenantID)
		return Outcome{Kind: OutcomeRateLimited}
	}

	resp, err := p.score(ctx, items, pol)
	if err != nil {
		if providers.IsTimeout(err) {
			if d, handled := engine.OnTimeout(pol, err); handled {
				decisions := make([]moderation.Decision, len(items))
				for i := range decisions {
					decisions[i] = d
				}
				return p.resultOutcome(items, decisions)
			}
		}
		p.logger().Warn("moderation check failed", "tenant", p.TenantID, "policy", policyID, "error", err)
		return Outcome{Kind: OutcomeError, Err: err}
	}

	// Spread the call's latency and cost over its items so the
	// aggregate sums reproduce the call totals.
	n := len(items)
	perLatency := resp.Latency / time.Duration(n)
	perCost := resp.Cost / float64(n)

	decisions := make([]moderation.Decision, n)
	for i, result := range resp.Results {
		decisions[i] = engine.Evaluate(pol, result.Scores)
		decisions[i].Latency = perLatency
		decisions[i].Cost = perCost
	}

	p.Metrics.AddCost(resp.Cost)
	return p.resultOutcome(items, decisions)
}

// score performs the provider call with tracing and the policy's
// fallback timeout applied.
func (p *Pipeline) score(ctx context.Context, items []moderation.ContentItem, pol *policy.Policy) (*providers.Response, error) {
	if pol.Fallback.Mode != policy.FallbackNone {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, pol.Fallback.Timeout)
		defer cancel()
	}

	ctx, span := tracing.Tracer().Start(ctx, "moderation.score")
	span.SetAttributes(
		attribute.String("policy.id", pol.ID),
		attribute.String("tenant.id", p.TenantID),
		attribute.Int("items.count", len(items)),
	)
	defer span.End()

	req := &providers.Request{
		Items:    items,
		PolicyID: pol.ID,
		Metadata: map[string]string{
			"request_id": uuid.NewString(),
			"tenant_id":  p.TenantID,
		},
	}

	resp, err := p.Provider.Moderate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider call failed")
		return nil, err
	}
	if len(resp.Results) != len(items) {
		err := fmt.Errorf("provider %s returned %d results for %d items", p.Provider.GetName(), len(resp.Results), len(items))
		span.RecordError(err)
		span.SetStatus(codes.Error, "result count mismatch")
		return nil, err
	}
	return resp, nil
}

// resultOutcome packages decisions as a single or aggregate result,
// matching the submission arity.
func (p *Pipeline) resultOutcome(items []moderation.ContentItem, decisions []moderation.Decision) Outcome {
	if len(decisions) == 1 {
		return Outcome{Kind: OutcomeResult, Decision: decisions[0]}
	}
	agg := p.Aggregator.Aggregate(items, decisions)
	if agg.Errored() {
		return Outcome{Kind: OutcomeError, Err: agg.Err}
	}
	return Outcome{Kind: OutcomeResult, Aggregate: &agg}
}

func allowAll(n int) []moderation.Decision {
	decisions := make([]moderation.Decision, n)
	for i := range decisions {
		decisions[i] = moderation.Allow()
	}
	return decisions
}
