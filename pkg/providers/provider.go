package providers

import "context"

// Provider is the client abstraction over a remote moderation scoring
// service. All methods respect context cancellation: aborting the
// context aborts the underlying request.
type Provider interface {
	// Moderate scores the request's items and returns per-item category
	// scores, positionally aligned with the request items.
	Moderate(ctx context.Context, req *Request) (*Response, error)

	// HealthCheck verifies the provider is reachable. Nil means healthy.
	HealthCheck(ctx context.Context) error

	// GetName returns the configured instance name.
	GetName() string

	// GetType returns the adapter type ("openai", "generic").
	GetType() string

	// IsHealthy returns the tracked health state.
	IsHealthy() bool

	// GetHealth returns detailed health information.
	GetHealth() Health

	// Close releases HTTP connections. The provider must not be used
	// after Close.
	Close() error
}
