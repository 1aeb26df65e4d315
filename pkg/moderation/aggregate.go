package moderation

import (
	"errors"
	"fmt"
	"time"
)

// ErrPartialFailure is reported by Aggregate when at least one item's
// remote check failed and fail-open is not enabled. The aggregate carries
// no judgment in that case.
var ErrPartialFailure = errors.New("one or more item checks failed")

// AggregateDecision combines per-item decisions for a multi-item
// submission (several text blocks, an image gallery, sampled video frames)
// into one overall outcome, while preserving which item caused it.
type AggregateDecision struct {
	// Safe is the AND over all item Safe flags.
	Safe bool `json:"safe"`

	// Action is the most severe action across all items.
	Action Action `json:"action"`

	// PerItem holds each item's decision in submission order:
	// PerItem[i] corresponds to items[i].
	PerItem []Decision `json:"per_item"`

	// Err is set when the aggregate carries no judgment (partial failure
	// under the fail-closed default, or invalid input).
	Err error `json:"-"`

	// TotalLatency is the sum of per-item remote latencies. Bookkeeping
	// only; it does not affect Safe or Action.
	TotalLatency time.Duration `json:"total_latency,omitempty"`

	// TotalCost is the sum of per-item provider costs, in USD.
	TotalCost float64 `json:"total_cost,omitempty"`
}

// Errored reports whether the aggregate represents a failure rather than
// a judgment.
func (a AggregateDecision) Errored() bool { return a.Err != nil }

// Aggregator folds per-item decisions into an AggregateDecision.
//
// The zero value is ready to use and fail-closed: if any item's check
// failed, the whole aggregate reports an error instead of a judgment.
type Aggregator struct {
	// FailOpen, when true, lets the aggregate ignore errored items and
	// judge on the items that did succeed. The default (false) is the
	// conservative choice: a missing item could have been the unsafe one.
	FailOpen bool
}

// Aggregate combines decisions for the given items. It requires
// len(items) == len(decisions) and preserves submission order.
func (g Aggregator) Aggregate(items []ContentItem, decisions []Decision) AggregateDecision {
	if len(items) != len(decisions) {
		return AggregateDecision{
			Err: fmt.Errorf("item/decision count mismatch: %d items, %d decisions", len(items), len(decisions)),
		}
	}
	if len(items) == 0 {
		return AggregateDecision{Err: errors.New("no items to aggregate")}
	}

	agg := AggregateDecision{
		Safe:    true,
		Action:  ActionAllow,
		PerItem: decisions,
	}

	failed := 0
	for _, d := range decisions {
		agg.TotalLatency += d.Latency
		agg.TotalCost += d.Cost

		if d.Errored() {
			failed++
			continue
		}
		if !d.Safe {
			agg.Safe = false
		}
		agg.Action = MaxAction(agg.Action, d.Action)
	}

	if failed > 0 && !g.FailOpen {
		agg.Safe = false
		agg.Err = fmt.Errorf("%w (%d of %d)", ErrPartialFailure, failed, len(items))
		return agg
	}
	if failed == len(decisions) {
		// Even fail-open cannot judge on zero successful items.
		agg.Safe = false
		agg.Err = fmt.Errorf("%w (all %d)", ErrPartialFailure, failed)
		return agg
	}

	return agg
}
