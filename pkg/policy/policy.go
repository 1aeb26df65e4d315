package policy

import (
	"fmt"
	"sort"
	"time"

	"veritas-hq/sentinel/pkg/moderation"
)

// FallbackMode controls what the engine does when the remote provider did
// not return scores within the configured timeout.
type FallbackMode string

const (
	// FallbackNone means no policy-level fallback: the timeout surfaces
	// as a transport error and the caller decides.
	FallbackNone FallbackMode = ""

	// FallbackOpen substitutes the fallback provider's scores (or, with
	// none configured, an empty score set) and evaluates normally.
	FallbackOpen FallbackMode = "fail_open"

	// FallbackClosed forces action=flag on timeout.
	FallbackClosed FallbackMode = "fail_closed"
)

// Rule is one row of a policy: trigger when the category's score meets or
// exceeds the threshold, contributing the rule's action to the decision.
type Rule struct {
	// Category is the taxonomy label this rule watches.
	Category moderation.Category `yaml:"category"`

	// Threshold is the inclusive trigger boundary in [0, 1]. A score
	// exactly equal to the threshold triggers the rule.
	Threshold float64 `yaml:"threshold"`

	// Action is the outcome this rule contributes when triggered.
	Action moderation.Action `yaml:"action"`

	// Priority breaks ties between triggered rules of equal severity;
	// higher wins. It also resolves duplicate-category rules at load
	// time: the higher-priority rule survives, equal priorities are a
	// validation error.
	Priority int `yaml:"priority"`
}

// Fallback configures the policy-level timeout behavior (see FallbackMode).
type Fallback struct {
	// Mode selects fail_open or fail_closed handling of provider
	// timeouts. Empty disables policy-level fallback.
	Mode FallbackMode `yaml:"mode"`

	// Timeout is how long the scheduler waits for provider scores before
	// the fallback applies.
	Timeout time.Duration `yaml:"timeout"`

	// Scores are the fallback provider's scores used in fail_open mode.
	// Typically left empty, which evaluates as "nothing detected".
	Scores moderation.Scores `yaml:"scores,omitempty"`
}

// Policy is a named set of rules governing one moderation context.
type Policy struct {
	// ID uniquely identifies the policy; tenants reference it by ID.
	ID string `yaml:"id"`

	// Name is the human-readable policy name.
	Name string `yaml:"name,omitempty"`

	// Rules are the category rows. After Validate, at most one rule per
	// category remains.
	Rules []Rule `yaml:"rules"`

	// Fallback is the optional timeout knob.
	Fallback Fallback `yaml:"fallback,omitempty"`
}

// Validate checks the policy and normalizes it in place.
//
// Rejected conditions:
//   - empty ID or no rules
//   - threshold outside [0, 1]
//   - unknown category or action
//   - duplicate category with equal priority (never silently resolved)
//
// Duplicate categories with distinct priorities are resolved here, at
// load time: the highest-priority rule survives. Surviving rules are
// ordered by severity then priority (both descending) so evaluation is
// a single pass.
func (p *Policy) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("policy has no id")
	}
	if len(p.Rules) == 0 {
		return fmt.Errorf("policy %q has no rules", p.ID)
	}

	switch p.Fallback.Mode {
	case FallbackNone, FallbackOpen, FallbackClosed:
	default:
		return fmt.Errorf("policy %q: unknown fallback mode %q", p.ID, p.Fallback.Mode)
	}
	if p.Fallback.Mode != FallbackNone && p.Fallback.Timeout <= 0 {
		return fmt.Errorf("policy %q: fallback mode %q requires a positive timeout", p.ID, p.Fallback.Mode)
	}

	byCategory := make(map[moderation.Category]Rule, len(p.Rules))
	for i, r := range p.Rules {
		if !moderation.KnownCategories[r.Category] {
			return fmt.Errorf("policy %q rule %d: unknown category %q", p.ID, i, r.Category)
		}
		if r.Threshold < 0 || r.Threshold > 1 {
			return fmt.Errorf("policy %q rule %d (%s): threshold %v outside [0,1]", p.ID, i, r.Category, r.Threshold)
		}
		if !r.Action.Valid() {
			return fmt.Errorf("policy %q rule %d (%s): unknown action %q", p.ID, i, r.Category, r.Action)
		}

		prev, dup := byCategory[r.Category]
		if dup {
			if prev.Priority == r.Priority {
				return fmt.Errorf("policy %q: duplicate rules for category %s with equal priority %d", p.ID, r.Category, r.Priority)
			}
			if prev.Priority > r.Priority {
				continue
			}
		}
		byCategory[r.Category] = r
	}

	rules := make([]Rule, 0, len(byCategory))
	for _, r := range byCategory {
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool {
		si, sj := rules[i].Action.Severity(), rules[j].Action.Severity()
		if si != sj {
			return si > sj
		}
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].Category < rules[j].Category
	})
	p.Rules = rules

	return nil
}
