package storage

import (
	"context"
	"sync"
	"time"
)

// Backend persists and restores limiter window snapshots.
type Backend interface {
	// Save replaces the persisted state with the given snapshot
	// (tenant ID to in-window timestamps).
	Save(ctx context.Context, snap map[string][]time.Time) error

	// Load returns the persisted snapshot. An empty map means no state.
	Load(ctx context.Context) (map[string][]time.Time, error)

	// Close releases backend resources.
	Close() error
}

// MemoryBackend keeps the snapshot in memory. No persistence across
// restarts; it exists so callers can wire a Backend unconditionally.
type MemoryBackend struct {
	mu   sync.Mutex
	snap map[string][]time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{snap: make(map[string][]time.Time)}
}

// Save stores a deep copy of the snapshot.
func (m *MemoryBackend) Save(ctx context.Context, snap map[string][]time.Time) error {
	copied := make(map[string][]time.Time, len(snap))
	for id, stamps := range snap {
		copied[id] = append([]time.Time(nil), stamps...)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = copied
	return nil
}

// Load returns a deep copy of the stored snapshot.
func (m *MemoryBackend) Load(ctx context.Context) (map[string][]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make(map[string][]time.Time, len(m.snap))
	for id, stamps := range m.snap {
		copied[id] = append([]time.Time(nil), stamps...)
	}
	return copied, nil
}

// Close is a no-op for the memory backend.
func (m *MemoryBackend) Close() error { return nil }
