package engine

import (
	"veritas-hq/sentinel/pkg/moderation"
	"veritas-hq/sentinel/pkg/policy"
)

// Evaluate maps provider scores to one decision under the given policy.
//
// A rule triggers iff its category's score is greater than or equal to
// its threshold; the boundary is inclusive, a score exactly equal to the
// threshold triggers. Missing categories score 0.
//
// The decision's action is the most severe triggered action. Among
// triggered rules tied on severity, the higher-priority rule's category
// is reported first (primary); all triggered categories are retained.
// Safe is true iff no triggered rule carries block or flag: a warn-only
// result is still safe, but the warn action is reported.
//
// The policy must have passed Validate; Evaluate assumes its rules are
// already ordered by severity then priority.
func Evaluate(p *policy.Policy, scores moderation.Scores) moderation.Decision {
	d := moderation.Decision{Safe: true, Action: moderation.ActionAllow}
	if p == nil {
		return d
	}

	// Rules are pre-sorted by Validate, so the first trigger is the
	// primary category and Triggered stays ordered without re-sorting.
	for _, r := range p.Rules {
		score := scores.Get(r.Category)
		if score < r.Threshold {
			continue
		}
		d.Triggered = append(d.Triggered, moderation.TriggeredCategory{
			Category:  r.Category,
			Score:     score,
			Threshold: r.Threshold,
			Action:    r.Action,
		})
		d.Action = moderation.MaxAction(d.Action, r.Action)
		if r.Action == moderation.ActionBlock || r.Action == moderation.ActionFlag {
			d.Safe = false
		}
	}

	return d
}

// OnTimeout produces the decision for an item whose provider scores did
// not arrive within the policy's fallback timeout.
//
// With FallbackOpen, the policy's fallback scores are evaluated normally
// (an empty fallback set evaluates as "nothing detected"). With
// FallbackClosed, the item is forced to flag. A policy without a fallback
// mode gets no decision here; the timeout stays a transport error, so the
// second return value reports whether the fallback applied.
func OnTimeout(p *policy.Policy, timeoutErr error) (moderation.Decision, bool) {
	if p == nil {
		return moderation.Decision{}, false
	}

	switch p.Fallback.Mode {
	case policy.FallbackOpen:
		return Evaluate(p, p.Fallback.Scores), true
	case policy.FallbackClosed:
		return moderation.Decision{
			Safe:   false,
			Action: moderation.ActionFlag,
		}, true
	default:
		return moderation.Decision{Err: timeoutErr}, false
	}
}
