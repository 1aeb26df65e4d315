package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"veritas-hq/sentinel/pkg/limits/ratelimit"
	"veritas-hq/sentinel/pkg/moderation"
	"veritas-hq/sentinel/pkg/policy"
	"veritas-hq/sentinel/pkg/providers"
	"veritas-hq/sentinel/pkg/tenant"
)

// fakeProvider scores every item with the configured scores, after an
// optional delay, recording each request it saw.
type fakeProvider struct {
	mu     sync.Mutex
	scores moderation.Scores
	delay  time.Duration
	err    error
	calls  []*providers.Request
}

func (f *fakeProvider) Moderate(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	delay, err := f.delay, f.err
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	results := make([]providers.ItemScores, len(req.Items))
	for i := range results {
		results[i] = providers.ItemScores{Scores: f.scores}
	}
	return &providers.Response{Results: results, Latency: 10 * time.Millisecond, Cost: 0.50}, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeProvider) HealthCheck(context.Context) error { return nil }
func (f *fakeProvider) GetName() string                   { return "fake" }
func (f *fakeProvider) GetType() string                   { return "fake" }
func (f *fakeProvider) IsHealthy() bool                   { return true }
func (f *fakeProvider) GetHealth() providers.Health       { return providers.Health{IsHealthy: true} }
func (f *fakeProvider) Close() error                      { return nil }

func testStore(t *testing.T) *policy.Store {
	t.Helper()
	s := policy.NewStore()
	p := &policy.Policy{
		ID: "default",
		Rules: []policy.Rule{
			{Category: moderation.CategoryHateSpeech, Threshold: 0.5, Action: moderation.ActionBlock},
			{Category: moderation.CategorySpam, Threshold: 0.7, Action: moderation.ActionWarn},
		},
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("test policy invalid: %v", err)
	}
	if err := s.Put(p); err != nil {
		t.Fatalf("store put: %v", err)
	}
	return s
}

func testPipeline(t *testing.T, prov providers.Provider) *Pipeline {
	t.Helper()
	return &Pipeline{
		Provider: prov,
		Policies: testStore(t),
		TenantID: "acme",
		PolicyID: "default",
	}
}

func waitOutcome(t *testing.T, p *Pending) Outcome {
	t.Helper()
	select {
	case out := <-p.Done():
		return out
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for outcome")
		return Outcome{}
	}
}

func TestChecker_DebounceDeliversOnlyLatest(t *testing.T) {
	prov := &fakeProvider{scores: moderation.Scores{moderation.CategoryHateSpeech: 0.9}}
	c := NewChecker(testPipeline(t, prov), CheckerConfig{Debounce: 30 * time.Millisecond})
	defer c.Close()

	first := c.Schedule(context.Background(), "draft tex")
	second := c.Schedule(context.Background(), "draft text, finished")

	if out := waitOutcome(t, first); out.Kind != OutcomeSuperseded {
		t.Fatalf("first outcome kind = %s, want superseded", out.Kind)
	}
	out := waitOutcome(t, second)
	if out.Kind != OutcomeResult {
		t.Fatalf("second outcome kind = %s (err=%v), want result", out.Kind, out.Err)
	}
	if out.Safe() || out.Action() != moderation.ActionBlock {
		t.Errorf("got safe=%v action=%s, want unsafe block", out.Safe(), out.Action())
	}

	if n := prov.callCount(); n != 1 {
		t.Fatalf("provider called %d times, want 1", n)
	}
	prov.mu.Lock()
	got := prov.calls[0].Items[0].Payload
	prov.mu.Unlock()
	if got != "draft text, finished" {
		t.Errorf("provider saw %q, want the latest content", got)
	}
}

func TestNewChecker_DebounceKnob(t *testing.T) {
	pipe := testPipeline(t, &fakeProvider{})

	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{"zero selects the default", 0, DefaultDebounce},
		{"explicit interval kept", 75 * time.Millisecond, 75 * time.Millisecond},
		{"sentinel disables", NoDebounce, NoDebounce},
		{"any negative disables", -3 * time.Second, -3 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker(pipe, CheckerConfig{Debounce: tt.in})
			defer c.Close()
			if c.debounce != tt.want {
				t.Errorf("debounce = %v, want %v", c.debounce, tt.want)
			}
		})
	}
}

func TestChecker_BlankContentShortCircuits(t *testing.T) {
	prov := &fakeProvider{scores: moderation.Scores{moderation.CategoryHateSpeech: 0.9}}
	lim := ratelimit.NewLimiter(ratelimit.Config{Cap: 1})
	pipe := testPipeline(t, prov)
	pipe.Limiter = lim
	c := NewChecker(pipe, CheckerConfig{Debounce: NoDebounce})
	defer c.Close()

	for _, content := range []string{"", "   ", "\n\t"} {
		out := waitOutcome(t, c.Schedule(context.Background(), content))
		if out.Kind != OutcomeResult || !out.Safe() {
			t.Errorf("blank %q: kind=%s safe=%v, want safe result", content, out.Kind, out.Safe())
		}
	}
	if n := prov.callCount(); n != 0 {
		t.Errorf("provider called %d times for blank content, want 0", n)
	}
	if got := lim.Remaining("acme"); got != 1 {
		t.Errorf("limiter remaining = %d, blank checks must not consume slots", got)
	}
}

func TestChecker_BlankBatchKeepsAggregateArity(t *testing.T) {
	prov := &fakeProvider{scores: moderation.Scores{moderation.CategoryHateSpeech: 0.9}}
	c := NewChecker(testPipeline(t, prov), CheckerConfig{Debounce: NoDebounce})
	defer c.Close()

	items := []moderation.ContentItem{
		{Kind: moderation.KindText, Payload: ""},
		{Kind: moderation.KindText, Payload: "   "},
		{Kind: moderation.KindText, Payload: "\n\t"},
	}
	out := waitOutcome(t, c.ScheduleItems(context.Background(), items, ""))
	if out.Kind != OutcomeResult || !out.Safe() {
		t.Fatalf("kind=%s safe=%v, want safe result", out.Kind, out.Safe())
	}
	if out.Aggregate == nil {
		t.Fatal("multi-item blank batch returned a single decision, want an aggregate")
	}
	if len(out.Aggregate.PerItem) != len(items) {
		t.Errorf("PerItem has %d entries, want %d", len(out.Aggregate.PerItem), len(items))
	}
	if n := prov.callCount(); n != 0 {
		t.Errorf("provider called %d times for blank content, want 0", n)
	}
}

func TestChecker_SupersedeInFlight(t *testing.T) {
	prov := &fakeProvider{
		scores: moderation.Scores{moderation.CategorySpam: 0.9},
		delay:  50 * time.Millisecond,
	}
	var results atomic.Int32
	c := NewChecker(testPipeline(t, prov), CheckerConfig{
		Debounce: NoDebounce,
		OnResult: func(Outcome) { results.Add(1) },
	})
	defer c.Close()

	first := c.Schedule(context.Background(), "slow one")
	time.Sleep(10 * time.Millisecond) // let the first call start
	second := c.Schedule(context.Background(), "fast one")

	if out := waitOutcome(t, first); out.Kind != OutcomeSuperseded {
		t.Fatalf("in-flight outcome kind = %s, want superseded", out.Kind)
	}
	if out := waitOutcome(t, second); out.Kind != OutcomeResult {
		t.Fatalf("second outcome kind = %s, want result", out.Kind)
	}
	if got := results.Load(); got != 1 {
		t.Errorf("OnResult fired %d times, want 1 (superseded calls are silent)", got)
	}
}

func TestChecker_ErrorKeepsLastDecision(t *testing.T) {
	prov := &fakeProvider{scores: moderation.Scores{}}
	var gotErr atomic.Value
	c := NewChecker(testPipeline(t, prov), CheckerConfig{
		Debounce: NoDebounce,
		OnError:  func(err error) { gotErr.Store(err) },
	})
	defer c.Close()

	out := waitOutcome(t, c.Schedule(context.Background(), "clean text"))
	if out.Kind != OutcomeResult || !out.Safe() {
		t.Fatalf("first outcome kind=%s safe=%v, want safe result", out.Kind, out.Safe())
	}

	sentinel := errors.New("upstream down")
	prov.mu.Lock()
	prov.err = sentinel
	prov.mu.Unlock()

	out = waitOutcome(t, c.Schedule(context.Background(), "second text"))
	if out.Kind != OutcomeError {
		t.Fatalf("outcome kind = %s, want error", out.Kind)
	}
	if err, _ := gotErr.Load().(error); !errors.Is(err, sentinel) {
		t.Errorf("OnError got %v, want %v", err, sentinel)
	}

	last := c.Last()
	if last == nil || last.Kind != OutcomeResult || !last.Safe() {
		t.Errorf("Last() = %+v, want the earlier safe result retained", last)
	}
}

func TestChecker_RateLimitedIsSkipNotError(t *testing.T) {
	prov := &fakeProvider{scores: moderation.Scores{}}
	pipe := testPipeline(t, prov)
	pipe.Limiter = ratelimit.NewLimiter(ratelimit.Config{Cap: 1})
	c := NewChecker(pipe, CheckerConfig{Debounce: NoDebounce})
	defer c.Close()

	if out := waitOutcome(t, c.Schedule(context.Background(), "one")); out.Kind != OutcomeResult {
		t.Fatalf("first check kind = %s, want result", out.Kind)
	}
	out := waitOutcome(t, c.Schedule(context.Background(), "two"))
	if out.Kind != OutcomeRateLimited {
		t.Fatalf("second check kind = %s, want rate_limited", out.Kind)
	}
	if out.Err != nil {
		t.Errorf("rate-limited outcome carries err %v, want nil", out.Err)
	}
	if n := prov.callCount(); n != 1 {
		t.Errorf("provider called %d times, want 1", n)
	}
}

// staticFetcher serves tenant configs from a map.
type staticFetcher map[string]*tenant.Config

func (f staticFetcher) FetchTenant(_ context.Context, id string) (*tenant.Config, error) {
	return f[id], nil
}

func TestPipeline_DisabledTenantAllowsWithoutProviderCall(t *testing.T) {
	prov := &fakeProvider{scores: moderation.Scores{moderation.CategoryHateSpeech: 0.99}}
	pipe := testPipeline(t, prov)
	pipe.Tenants = tenant.NewCache(staticFetcher{
		"acme": {TenantID: "acme", Enabled: false},
	}, 0)

	out := pipe.run(context.Background(), []moderation.ContentItem{{Kind: moderation.KindText, Payload: "anything"}}, "")
	if out.Kind != OutcomeResult || !out.Safe() {
		t.Fatalf("disabled tenant: kind=%s safe=%v, want safe result", out.Kind, out.Safe())
	}
	if n := prov.callCount(); n != 0 {
		t.Errorf("provider called %d times for disabled tenant, want 0", n)
	}
}

func TestPipeline_TenantPolicyOverride(t *testing.T) {
	prov := &fakeProvider{scores: moderation.Scores{moderation.CategorySpam: 0.8}}
	pipe := testPipeline(t, prov)

	lenient := &policy.Policy{
		ID: "lenient",
		Rules: []policy.Rule{
			{Category: moderation.CategorySpam, Threshold: 0.95, Action: moderation.ActionWarn},
		},
	}
	if err := lenient.Validate(); err != nil {
		t.Fatalf("policy invalid: %v", err)
	}
	if err := pipe.Policies.Put(lenient); err != nil {
		t.Fatalf("store put: %v", err)
	}
	pipe.Tenants = tenant.NewCache(staticFetcher{
		"acme": {TenantID: "acme", Enabled: true, PolicyID: "lenient"},
	}, 0)

	out := pipe.run(context.Background(), []moderation.ContentItem{{Kind: moderation.KindText, Payload: "buy now"}}, "")
	if out.Kind != OutcomeResult {
		t.Fatalf("kind = %s (err=%v), want result", out.Kind, out.Err)
	}
	// Under "default" a 0.8 spam score warns; "lenient" raises the
	// threshold past it.
	if !out.Safe() {
		t.Errorf("got unsafe, want safe under the tenant's lenient policy")
	}
}

func TestChecker_SchedulePolicyOverride(t *testing.T) {
	prov := &fakeProvider{scores: moderation.Scores{moderation.CategoryHateSpeech: 0.6}}
	pipe := testPipeline(t, prov)

	lenient := &policy.Policy{
		ID: "lenient",
		Rules: []policy.Rule{
			{Category: moderation.CategoryHateSpeech, Threshold: 0.95, Action: moderation.ActionBlock},
		},
	}
	if err := lenient.Validate(); err != nil {
		t.Fatalf("policy invalid: %v", err)
	}
	if err := pipe.Policies.Put(lenient); err != nil {
		t.Fatalf("store put: %v", err)
	}

	c := NewChecker(pipe, CheckerConfig{Debounce: NoDebounce})
	defer c.Close()

	// Default policy blocks a 0.6 hate score; the per-call override
	// raises the threshold past it.
	out := waitOutcome(t, c.Schedule(context.Background(), "borderline"))
	if out.Safe() {
		t.Fatal("default policy: got safe, want unsafe")
	}
	out = waitOutcome(t, c.SchedulePolicy(context.Background(), "borderline", "lenient"))
	if !out.Safe() {
		t.Fatal("lenient override: got unsafe, want safe")
	}
}

func TestPipeline_UnknownPolicyIsError(t *testing.T) {
	pipe := testPipeline(t, &fakeProvider{})
	pipe.PolicyID = "nope"
	out := pipe.run(context.Background(), []moderation.ContentItem{{Kind: moderation.KindText, Payload: "hi"}}, "")
	if out.Kind != OutcomeError {
		t.Fatalf("kind = %s, want error", out.Kind)
	}
}
