package policy

import (
	"fmt"
	"sync"
)

// Store is an in-memory policy registry keyed by policy ID.
//
// The store holds only validated policies: Put and Replace run Validate
// and reject bad input, so readers never see a malformed policy. All
// methods are safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	policies map[string]*Policy
}

// NewStore creates an empty policy store.
func NewStore() *Store {
	return &Store{policies: make(map[string]*Policy)}
}

// Put validates and registers a single policy, replacing any existing
// policy with the same ID.
func (s *Store) Put(p *Policy) error {
	if p == nil {
		return fmt.Errorf("nil policy")
	}
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[p.ID] = p
	return nil
}

// Replace atomically swaps the entire policy set. Every policy is
// validated first; on any validation error the store is left untouched.
func (s *Store) Replace(policies []*Policy) error {
	next := make(map[string]*Policy, len(policies))
	for _, p := range policies {
		if p == nil {
			return fmt.Errorf("nil policy in replacement set")
		}
		if err := p.Validate(); err != nil {
			return err
		}
		if _, exists := next[p.ID]; exists {
			return fmt.Errorf("duplicate policy id %q in replacement set", p.ID)
		}
		next[p.ID] = p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies = next
	return nil
}

// Get returns the policy with the given ID, or nil if unknown.
func (s *Store) Get(id string) *Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policies[id]
}

// IDs returns the registered policy IDs (unordered).
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.policies))
	for id := range s.policies {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of registered policies.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.policies)
}
