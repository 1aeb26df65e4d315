package scheduler

import (
	"veritas-hq/sentinel/pkg/moderation"
)

// OutcomeKind classifies what a scheduled check produced.
type OutcomeKind string

const (
	// OutcomeResult carries a decision (single item) or aggregate
	// decision (multi-item).
	OutcomeResult OutcomeKind = "result"

	// OutcomeError is a transport or validation failure: the check ran
	// but produced no judgment. Callers choose fail-open or fail-closed;
	// the scheduler leaves the previous decision in place.
	OutcomeError OutcomeKind = "error"

	// OutcomeRateLimited means the check was skipped by tenant
	// admission. Not an error: no judgment was attempted.
	OutcomeRateLimited OutcomeKind = "rate_limited"

	// OutcomeSuperseded means newer input replaced this check before it
	// delivered. Silent by contract: callbacks never fire for it and
	// no state is updated; the handle resolves with it only so waiters
	// unblock.
	OutcomeSuperseded OutcomeKind = "superseded"
)

// Outcome is the single resolution of one scheduled check.
type Outcome struct {
	Kind OutcomeKind

	// Decision is set for single-item results.
	Decision moderation.Decision

	// Aggregate is set for multi-item results.
	Aggregate *moderation.AggregateDecision

	// Err is set for OutcomeError.
	Err error
}

// Safe reports the judgment for result outcomes; non-result outcomes are
// not judgments and report false.
func (o Outcome) Safe() bool {
	if o.Kind != OutcomeResult {
		return false
	}
	if o.Aggregate != nil {
		return o.Aggregate.Safe
	}
	return o.Decision.Safe
}

// Action returns the result action, or allow for non-result outcomes.
func (o Outcome) Action() moderation.Action {
	if o.Kind != OutcomeResult {
		return moderation.ActionAllow
	}
	if o.Aggregate != nil {
		return o.Aggregate.Action
	}
	return o.Decision.Action
}

// Pending is the handle for an asynchronous check. Done yields exactly
// one Outcome and is then closed.
type Pending struct {
	ch chan Outcome
}

func newPending() *Pending {
	return &Pending{ch: make(chan Outcome, 1)}
}

// Done returns the channel resolving this check.
func (p *Pending) Done() <-chan Outcome {
	return p.ch
}

// resolve delivers the outcome; it is called at most once.
func (p *Pending) resolve(o Outcome) {
	p.ch <- o
	close(p.ch)
}
