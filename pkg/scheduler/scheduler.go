package scheduler

import (
	"context"
	"sync"
	"time"

	"veritas-hq/sentinel/pkg/moderation"
)

const (
	// DefaultDebounce is the quiet period applied when CheckerConfig
	// leaves Debounce at zero.
	DefaultDebounce = 500 * time.Millisecond

	// NoDebounce disables the quiet period: every Schedule call runs
	// immediately. Supersession of in-flight calls still applies.
	NoDebounce = time.Duration(-1)
)

// CheckerConfig configures a Checker.
type CheckerConfig struct {
	// Debounce is how long input must stay quiet before a scheduled
	// check actually runs. Zero means DefaultDebounce, because a zero
	// value cannot be told apart from an unset field; to disable
	// debouncing, pass NoDebounce (or any negative duration) and checks
	// run immediately.
	Debounce time.Duration

	// OnResult is invoked once per delivered non-error outcome
	// (results and rate-limit skips). Never invoked for superseded
	// calls. May be nil.
	OnResult func(Outcome)

	// OnError is invoked once per delivered error outcome. Never
	// invoked for superseded calls. May be nil.
	OnError func(error)
}

// Checker runs moderation checks for one logical content stream. Each
// Schedule call replaces any not-yet-delivered one: the newest content
// wins, older calls resolve as superseded without touching callbacks or
// the retained decision.
//
// Checker is safe for concurrent use, though a stream normally has one
// writer.
type Checker struct {
	pipe     *Pipeline
	debounce time.Duration
	onResult func(Outcome)
	onError  func(error)

	mu         sync.Mutex
	generation uint64
	timer      *time.Timer
	waiting    *Pending
	waitingCtx context.Context
	items      []moderation.ContentItem
	policyID   string
	cancel     context.CancelFunc
	last       *Outcome
}

// NewChecker builds a Checker over the given pipeline.
func NewChecker(pipe *Pipeline, cfg CheckerConfig) *Checker {
	d := cfg.Debounce
	if d == 0 {
		d = DefaultDebounce
	}
	return &Checker{
		pipe:     pipe,
		debounce: d,
		onResult: cfg.OnResult,
		onError:  cfg.OnError,
	}
}

// Schedule requests a check of a single text item under the stream's
// default policy. See ScheduleItems.
func (c *Checker) Schedule(ctx context.Context, content string) *Pending {
	return c.SchedulePolicy(ctx, content, "")
}

// SchedulePolicy is Schedule with an explicit policy. An empty policyID
// falls back to the tenant's configured policy, then the pipeline
// default.
func (c *Checker) SchedulePolicy(ctx context.Context, content, policyID string) *Pending {
	return c.ScheduleItems(ctx, []moderation.ContentItem{{
		Kind:    moderation.KindText,
		Payload: content,
	}}, policyID)
}

// ScheduleItems requests a check of the given items after the debounce
// window. The returned handle resolves with exactly one outcome. If a
// newer call arrives first, this one resolves as superseded: no
// provider call is made (or its response is discarded), no callback
// fires, and the retained decision is untouched.
func (c *Checker) ScheduleItems(ctx context.Context, items []moderation.ContentItem, policyID string) *Pending {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	gen := c.generation

	// Supersede whatever is queued or in flight.
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.waiting != nil {
		c.waiting.resolve(Outcome{Kind: OutcomeSuperseded})
		c.waiting = nil
		c.pipe.Metrics.CountOutcome(string(OutcomeSuperseded))
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	p := newPending()
	c.waiting = p
	c.waitingCtx = ctx
	c.items = items
	c.policyID = policyID

	if c.debounce <= 0 {
		c.fireLocked(gen)
	} else {
		c.timer = time.AfterFunc(c.debounce, func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if gen == c.generation {
				c.fireLocked(gen)
			}
		})
	}
	return p
}

// fireLocked starts the in-flight check for the current generation.
// Caller holds c.mu.
func (c *Checker) fireLocked(gen uint64) {
	p := c.waiting
	items := c.items
	policyID := c.policyID
	base := c.waitingCtx
	c.waiting = nil
	c.timer = nil
	if base == nil {
		base = context.Background()
	}

	ctx, cancel := context.WithCancel(base)
	c.cancel = cancel

	go func() {
		defer cancel()
		start := time.Now()
		out := c.pipe.run(ctx, items, policyID)

		c.mu.Lock()
		if gen != c.generation {
			// A newer call arrived while the provider was working;
			// discard silently.
			c.mu.Unlock()
			c.pipe.Metrics.CountOutcome(string(OutcomeSuperseded))
			p.resolve(Outcome{Kind: OutcomeSuperseded})
			return
		}
		c.cancel = nil
		if out.Kind == OutcomeResult {
			o := out
			c.last = &o
		}
		c.mu.Unlock()
		c.pipe.Metrics.ObserveCheck(string(out.Kind), time.Since(start))

		// Callbacks run outside the lock so they may call back into
		// the Checker.
		switch out.Kind {
		case OutcomeError:
			if c.onError != nil {
				c.onError(out.Err)
			}
		default:
			if c.onResult != nil {
				c.onResult(out)
			}
		}
		p.resolve(out)
	}()
}

// Last returns the most recently delivered result outcome, or nil if no
// check has completed yet. Errors and skips leave the previous result in
// place.
func (c *Checker) Last() *Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Close cancels any queued or in-flight check. Their handles resolve as
// superseded.
func (c *Checker) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.waiting != nil {
		c.waiting.resolve(Outcome{Kind: OutcomeSuperseded})
		c.waiting = nil
		c.pipe.Metrics.CountOutcome(string(OutcomeSuperseded))
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
