package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultWindow is the trailing window length.
	DefaultWindow = time.Minute

	// DefaultCap is the number of checks admitted per window per tenant.
	DefaultCap = 100
)

// Config configures a Limiter.
type Config struct {
	// Window is the trailing window length. Default 60s.
	Window time.Duration

	// Cap is the maximum admissions per tenant within the window.
	// Default 100.
	Cap int
}

// Limiter admits or rejects checks per tenant over a sliding window.
//
// Admission records the current timestamp; rejection records nothing, so
// a rejected call never consumes a slot. The zero Config gets defaults.
type Limiter struct {
	window time.Duration
	cap    int

	mu      sync.Mutex
	tenants map[string]*tenantWindow

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// tenantWindow holds one tenant's request timestamps, oldest first.
// Mutation happens under its own lock so tenants never contend with
// each other past the map lookup.
type tenantWindow struct {
	mu     sync.Mutex
	stamps []time.Time
}

// NewLimiter creates a limiter with the given configuration.
func NewLimiter(cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Cap <= 0 {
		cfg.Cap = DefaultCap
	}
	return &Limiter{
		window:  cfg.Window,
		cap:     cfg.Cap,
		tenants: make(map[string]*tenantWindow),
		now:     time.Now,
	}
}

// Admit reports whether the tenant may trigger a remote check now. On
// admission the current timestamp is recorded against the tenant's
// window; on rejection nothing is recorded.
func (l *Limiter) Admit(tenantID string) bool {
	now := l.now()
	tw := l.tenant(tenantID)

	tw.mu.Lock()
	defer tw.mu.Unlock()

	tw.prune(now.Add(-l.window))
	if len(tw.stamps) >= l.cap {
		return false
	}
	tw.stamps = append(tw.stamps, now)
	return true
}

// Remaining returns how many admissions the tenant has left in the
// current window.
func (l *Limiter) Remaining(tenantID string) int {
	now := l.now()
	tw := l.tenant(tenantID)

	tw.mu.Lock()
	defer tw.mu.Unlock()

	tw.prune(now.Add(-l.window))
	return l.cap - len(tw.stamps)
}

// Sweep removes tenants whose windows hold no timestamps inside the
// trailing window. It is intended to run on a time-based schedule,
// independent of request volume, to bound memory.
//
// Returns the number of tenants removed.
func (l *Limiter) Sweep() int {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, tw := range l.tenants {
		tw.mu.Lock()
		tw.prune(cutoff)
		empty := len(tw.stamps) == 0
		tw.mu.Unlock()

		if empty {
			delete(l.tenants, id)
			removed++
		}
	}
	return removed
}

// TenantCount returns the number of tenants currently tracked. Exposed
// for the metrics collector.
func (l *Limiter) TenantCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tenants)
}

// Snapshot copies every tenant's in-window timestamps, keyed by tenant.
// Used by the storage backends to persist limiter state.
func (l *Limiter) Snapshot() map[string][]time.Time {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	snap := make(map[string][]time.Time, len(l.tenants))
	for id, tw := range l.tenants {
		tw.mu.Lock()
		tw.prune(cutoff)
		if len(tw.stamps) > 0 {
			stamps := make([]time.Time, len(tw.stamps))
			copy(stamps, tw.stamps)
			snap[id] = stamps
		}
		tw.mu.Unlock()
	}
	return snap
}

// Restore replaces the limiter's state with a previously persisted
// snapshot. Timestamps outside the window are discarded.
func (l *Limiter) Restore(snap map[string][]time.Time) {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.tenants = make(map[string]*tenantWindow, len(snap))
	for id, stamps := range snap {
		tw := &tenantWindow{stamps: append([]time.Time(nil), stamps...)}
		tw.prune(cutoff)
		if len(tw.stamps) > 0 {
			l.tenants[id] = tw
		}
	}
}

// tenant returns the tenant's window, creating it lazily.
func (l *Limiter) tenant(tenantID string) *tenantWindow {
	l.mu.Lock()
	defer l.mu.Unlock()

	tw, ok := l.tenants[tenantID]
	if !ok {
		tw = &tenantWindow{}
		l.tenants[tenantID] = tw
	}
	return tw
}

// prune drops timestamps at or before the cutoff. Caller holds tw.mu.
// Stamps are ordered oldest first, so a single scan finds the boundary.
func (tw *tenantWindow) prune(cutoff time.Time) {
	keep := 0
	for keep < len(tw.stamps) && !tw.stamps[keep].After(cutoff) {
		keep++
	}
	if keep > 0 {
		tw.stamps = append(tw.stamps[:0], tw.stamps[keep:]...)
	}
}
