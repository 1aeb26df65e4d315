package policy

import (
	"strings"
	"testing"
	"time"

	"veritas-hq/sentinel/pkg/moderation"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr string
	}{
		{
			name:    "missing id",
			policy:  Policy{Rules: []Rule{{Category: moderation.CategorySpam, Threshold: 0.5, Action: moderation.ActionWarn}}},
			wantErr: "no id",
		},
		{
			name:    "no rules",
			policy:  Policy{ID: "empty"},
			wantErr: "no rules",
		},
		{
			name: "threshold above range",
			policy: Policy{ID: "p", Rules: []Rule{
				{Category: moderation.CategorySpam, Threshold: 1.5, Action: moderation.ActionWarn},
			}},
			wantErr: "outside [0,1]",
		},
		{
			name: "threshold below range",
			policy: Policy{ID: "p", Rules: []Rule{
				{Category: moderation.CategorySpam, Threshold: -0.1, Action: moderation.ActionWarn},
			}},
			wantErr: "outside [0,1]",
		},
		{
			name: "unknown category",
			policy: Policy{ID: "p", Rules: []Rule{
				{Category: "gossip", Threshold: 0.5, Action: moderation.ActionWarn},
			}},
			wantErr: "unknown category",
		},
		{
			name: "unknown action",
			policy: Policy{ID: "p", Rules: []Rule{
				{Category: moderation.CategorySpam, Threshold: 0.5, Action: "nuke"},
			}},
			wantErr: "unknown action",
		},
		{
			name: "duplicate category equal priority is an error",
			policy: Policy{ID: "p", Rules: []Rule{
				{Category: moderation.CategorySpam, Threshold: 0.5, Action: moderation.ActionWarn, Priority: 3},
				{Category: moderation.CategorySpam, Threshold: 0.9, Action: moderation.ActionBlock, Priority: 3},
			}},
			wantErr: "equal priority",
		},
		{
			name: "fallback mode without timeout",
			policy: Policy{
				ID:       "p",
				Rules:    []Rule{{Category: moderation.CategorySpam, Threshold: 0.5, Action: moderation.ActionWarn}},
				Fallback: Fallback{Mode: FallbackClosed},
			},
			wantErr: "positive timeout",
		},
		{
			name: "unknown fallback mode",
			policy: Policy{
				ID:       "p",
				Rules:    []Rule{{Category: moderation.CategorySpam, Threshold: 0.5, Action: moderation.ActionWarn}},
				Fallback: Fallback{Mode: "maybe", Timeout: time.Second},
			},
			wantErr: "unknown fallback mode",
		},
		{
			name: "valid policy",
			policy: Policy{ID: "ok", Rules: []Rule{
				{Category: moderation.CategorySpam, Threshold: 0.5, Action: moderation.ActionWarn},
				{Category: moderation.CategoryViolence, Threshold: 0.8, Action: moderation.ActionBlock},
			}},
		},
		{
			name: "boundary thresholds are valid",
			policy: Policy{ID: "bounds", Rules: []Rule{
				{Category: moderation.CategorySpam, Threshold: 0, Action: moderation.ActionWarn},
				{Category: moderation.CategoryViolence, Threshold: 1, Action: moderation.ActionBlock},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_DuplicateCategoryHigherPriorityWins(t *testing.T) {
	p := Policy{ID: "dup", Rules: []Rule{
		{Category: moderation.CategorySpam, Threshold: 0.9, Action: moderation.ActionWarn, Priority: 1},
		{Category: moderation.CategorySpam, Threshold: 0.4, Action: moderation.ActionBlock, Priority: 5},
	}}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
	if len(p.Rules) != 1 {
		t.Fatalf("rule count after normalization = %d, want 1", len(p.Rules))
	}
	if p.Rules[0].Priority != 5 || p.Rules[0].Action != moderation.ActionBlock {
		t.Errorf("surviving rule = %+v, want the priority-5 block rule", p.Rules[0])
	}
}

func TestValidate_OrdersRulesBySeverityThenPriority(t *testing.T) {
	p := Policy{ID: "order", Rules: []Rule{
		{Category: moderation.CategoryProfanity, Threshold: 0.3, Action: moderation.ActionWarn, Priority: 10},
		{Category: moderation.CategorySpam, Threshold: 0.3, Action: moderation.ActionFlag, Priority: 1},
		{Category: moderation.CategoryHarassment, Threshold: 0.3, Action: moderation.ActionFlag, Priority: 7},
		{Category: moderation.CategoryViolence, Threshold: 0.3, Action: moderation.ActionBlock, Priority: 0},
	}}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	want := []moderation.Category{
		moderation.CategoryViolence,
		moderation.CategoryHarassment,
		moderation.CategorySpam,
		moderation.CategoryProfanity,
	}
	for i, c := range want {
		if p.Rules[i].Category != c {
			t.Errorf("Rules[%d] = %s, want %s", i, p.Rules[i].Category, c)
		}
	}
}

func TestStore(t *testing.T) {
	s := NewStore()

	good := &Policy{ID: "a", Rules: []Rule{{Category: moderation.CategorySpam, Threshold: 0.5, Action: moderation.ActionWarn}}}
	if err := s.Put(good); err != nil {
		t.Fatalf("Put() = %v", err)
	}
	if s.Get("a") == nil {
		t.Fatal("Get(a) = nil after Put")
	}
	if s.Get("missing") != nil {
		t.Error("Get(missing) should be nil")
	}

	bad := &Policy{ID: "b"}
	if err := s.Put(bad); err == nil {
		t.Error("Put of invalid policy must fail")
	}

	t.Run("replace is atomic", func(t *testing.T) {
		err := s.Replace([]*Policy{
			{ID: "c", Rules: []Rule{{Category: moderation.CategorySpam, Threshold: 0.5, Action: moderation.ActionWarn}}},
			{ID: "d"}, // invalid
		})
		if err == nil {
			t.Fatal("Replace with an invalid policy must fail")
		}
		if s.Get("a") == nil || s.Get("c") != nil {
			t.Error("failed Replace must leave the store untouched")
		}
	})

	t.Run("replace swaps the set", func(t *testing.T) {
		err := s.Replace([]*Policy{
			{ID: "c", Rules: []Rule{{Category: moderation.CategorySpam, Threshold: 0.5, Action: moderation.ActionWarn}}},
		})
		if err != nil {
			t.Fatalf("Replace() = %v", err)
		}
		if s.Get("a") != nil {
			t.Error("old policy survived Replace")
		}
		if s.Get("c") == nil || s.Len() != 1 {
			t.Errorf("store contents after Replace: ids=%v", s.IDs())
		}
	})
}
