package providers

import (
	"time"

	"veritas-hq/sentinel/pkg/moderation"
)

// Request is one scoring call to a remote provider, covering one or more
// content items.
type Request struct {
	// Items are the content units to score, in submission order.
	Items []moderation.ContentItem

	// PolicyID identifies the policy context; providers may use it to
	// select a model or ignore it.
	PolicyID string

	// Metadata carries opaque request context (request ID, tenant ID)
	// for provider-side logging.
	Metadata map[string]string
}

// ItemScores is the provider's output for one item, positionally aligned
// with Request.Items.
type ItemScores struct {
	// Scores maps categories to confidence in [0, 1]. Categories the
	// provider did not evaluate are simply absent and score 0.
	Scores moderation.Scores
}

// Response is the provider's answer for a whole Request.
type Response struct {
	// Results holds per-item scores: Results[i] corresponds to
	// Request.Items[i].
	Results []ItemScores

	// Latency is the provider-observed processing time, when reported;
	// the client fills in round-trip time otherwise.
	Latency time.Duration

	// Cost is the provider-reported cost of the call in USD, 0 when the
	// provider does not report cost.
	Cost float64
}

// Config configures a provider adapter.
type Config struct {
	// Name is the instance name used in logs and metrics.
	Name string `yaml:"name"`

	// Type selects the adapter ("openai", "generic").
	Type string `yaml:"type"`

	// BaseURL overrides the adapter's default endpoint.
	BaseURL string `yaml:"base_url,omitempty"`

	// APIKey authenticates to the provider.
	APIKey string `yaml:"api_key,omitempty"`

	// Model selects the provider-side model where applicable.
	Model string `yaml:"model,omitempty"`

	// Timeout bounds each request. Default 30s.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// MaxRetries is how many times a transient failure (5xx, timeout)
	// is retried with exponential backoff. Default 0: the orchestration
	// layer does not retry.
	MaxRetries int `yaml:"max_retries,omitempty"`

	// Connection pool settings.
	MaxIdleConns        int           `yaml:"max_idle_conns,omitempty"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host,omitempty"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout,omitempty"`
}

// applyDefaults fills zero fields in place.
func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 20
	}
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = 10
	}
	if c.IdleConnTimeout <= 0 {
		c.IdleConnTimeout = 90 * time.Second
	}
}

// Health is a provider's availability state as tracked by the client.
type Health struct {
	// IsHealthy is false after unhealthyAfter consecutive failures and
	// true again after the next success.
	IsHealthy bool

	// LastCheck is when health was last updated.
	LastCheck time.Time

	// ConsecutiveFailures counts failures since the last success.
	ConsecutiveFailures int

	// LastError is the most recent failure, nil while healthy.
	LastError error

	// TotalRequests and FailedRequests count all scoring calls.
	TotalRequests  int64
	FailedRequests int64
}
