package scheduler

import (
	"context"
	"fmt"
	"time"

	"veritas-hq/sentinel/pkg/moderation"
	"veritas-hq/sentinel/pkg/video"
)

// Client is the synchronous entry point for manually triggered checks:
// form submits, batch jobs, upload hooks. It runs the same pipeline as
// Checker but without debouncing or supersession.
type Client struct {
	pipe *Pipeline

	// Sampler extracts frames for CheckVideo. Nil gets sensible
	// defaults on first use.
	Sampler *video.Sampler

	// BlockOnRateLimit, when true, turns a rate-limit skip into a
	// blocking unsafe decision. The default treats a skip as allow:
	// the check did not run, and the absence of a judgment is not a
	// judgment.
	BlockOnRateLimit bool
}

// NewClient builds a Client over the given pipeline.
func NewClient(pipe *Pipeline) *Client {
	return &Client{pipe: pipe, Sampler: video.NewSampler()}
}

// Check moderates a single text item and returns its decision.
func (c *Client) Check(ctx context.Context, content string) (moderation.Decision, error) {
	out := c.run(ctx, []moderation.ContentItem{{
		Kind:    moderation.KindText,
		Payload: content,
	}})
	return c.single(out)
}

// CheckMany moderates a batch of items and returns the aggregate
// decision along with the per-item breakdown.
func (c *Client) CheckMany(ctx context.Context, items []moderation.ContentItem) (moderation.AggregateDecision, error) {
	out := c.run(ctx, items)
	return c.aggregate(len(items), out)
}

func (c *Client) run(ctx context.Context, items []moderation.ContentItem) Outcome {
	start := time.Now()
	out := c.pipe.run(ctx, items, "")
	c.pipe.Metrics.ObserveCheck(string(out.Kind), time.Since(start))
	return out
}

// CheckVideo samples frames from src and moderates them as one
// submission. progress, if non-nil, is invoked after each captured
// frame. The source is validated before any frame is read; an
// over-limit video fails without a provider call.
func (c *Client) CheckVideo(ctx context.Context, src video.Source, progress video.ProgressFunc) (moderation.AggregateDecision, error) {
	sampler := c.Sampler
	if sampler == nil {
		sampler = video.NewSampler()
	}
	frames, err := sampler.Sample(ctx, src, progress)
	if err != nil {
		return moderation.AggregateDecision{}, fmt.Errorf("sample video: %w", err)
	}
	c.pipe.Metrics.AddFrames(len(frames))
	out := c.run(ctx, frames)
	return c.aggregate(len(frames), out)
}

// single maps an outcome onto the single-item return shape.
func (c *Client) single(out Outcome) (moderation.Decision, error) {
	switch out.Kind {
	case OutcomeResult:
		if out.Aggregate != nil {
			return moderation.Decision{}, fmt.Errorf("unexpected aggregate outcome for single item")
		}
		return out.Decision, nil
	case OutcomeRateLimited:
		if c.BlockOnRateLimit {
			return moderation.Decision{Safe: false, Action: moderation.ActionBlock}, nil
		}
		return moderation.Allow(), nil
	default:
		return moderation.Decision{}, out.Err
	}
}

// aggregate maps an outcome onto the multi-item return shape. A
// single-decision result (blank batch, disabled tenant) is widened to
// the batch size.
func (c *Client) aggregate(n int, out Outcome) (moderation.AggregateDecision, error) {
	switch out.Kind {
	case OutcomeResult:
		if out.Aggregate != nil {
			return *out.Aggregate, nil
		}
		return moderation.AggregateDecision{
			Safe:         out.Decision.Safe,
			Action:       out.Decision.Action,
			PerItem:      widen(out.Decision, n),
			TotalLatency: out.Decision.Latency,
			TotalCost:    out.Decision.Cost,
		}, nil
	case OutcomeRateLimited:
		if c.BlockOnRateLimit {
			d := moderation.Decision{Safe: false, Action: moderation.ActionBlock}
			return moderation.AggregateDecision{Safe: false, Action: moderation.ActionBlock, PerItem: widen(d, n)}, nil
		}
		return moderation.AggregateDecision{Safe: true, Action: moderation.ActionAllow, PerItem: widen(moderation.Allow(), n)}, nil
	default:
		return moderation.AggregateDecision{}, out.Err
	}
}

func widen(d moderation.Decision, n int) []moderation.Decision {
	if n < 1 {
		n = 1
	}
	decisions := make([]moderation.Decision, n)
	for i := range decisions {
		decisions[i] = d
	}
	return decisions
}
