package providers

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"
)

// unhealthyAfter is how many consecutive failures mark a provider
// unhealthy.
const unhealthyAfter = 3

// HTTPProvider is the shared base for HTTP adapters: connection pooling,
// request execution with optional retry, and health tracking. Concrete
// adapters embed it and implement Moderate on top of DoRequest.
type HTTPProvider struct {
	config Config
	client *http.Client

	healthMu sync.RWMutex
	health   Health
}

// NewHTTPProvider creates the base client for an adapter. The config's
// zero fields are defaulted.
func NewHTTPProvider(config Config) *HTTPProvider {
	config.applyDefaults()

	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPProvider{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		health: Health{
			IsHealthy: true, // start optimistic
			LastCheck: time.Now(),
		},
	}
}

// GetName returns the configured instance name.
func (p *HTTPProvider) GetName() string { return p.config.Name }

// GetType returns the adapter type.
func (p *HTTPProvider) GetType() string { return p.config.Type }

// GetConfig returns the provider configuration with defaults applied.
func (p *HTTPProvider) GetConfig() Config { return p.config }

// IsHealthy returns the tracked health state.
func (p *HTTPProvider) IsHealthy() bool {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.health.IsHealthy
}

// GetHealth returns detailed health information.
func (p *HTTPProvider) GetHealth() Health {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.health
}

// Close shuts down idle connections.
func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// DoRequest executes one HTTP request, retrying transient failures when
// MaxRetries is set. The caller owns the response body.
func (p *HTTPProvider) DoRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			slog.Debug("retrying provider request",
				"provider", p.config.Name,
				"attempt", attempt,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return nil, &Error{Provider: p.config.Name, Err: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, &Error{Provider: p.config.Name, Err: err}
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}
		if req.Header.Get("Content-Type") == "" && body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := p.client.Do(req)
		if err != nil {
			lastErr = &Error{Provider: p.config.Name, Err: err}
			p.recordFailure(lastErr)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			p.recordSuccess()
			return resp, nil
		}

		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		perr := &Error{
			Provider:   p.config.Name,
			StatusCode: resp.StatusCode,
			Message:    string(bytes.TrimSpace(msg)),
		}
		p.recordFailure(perr)
		lastErr = perr
		if !perr.Retryable() {
			return nil, perr
		}
	}

	return nil, lastErr
}

// HealthCheckURL performs a GET against the given URL and updates health.
func (p *HTTPProvider) HealthCheckURL(ctx context.Context, url string, headers map[string]string) error {
	resp, err := p.DoRequest(ctx, http.MethodGet, url, nil, headers)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

func (p *HTTPProvider) recordSuccess() {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()

	p.health.TotalRequests++
	p.health.LastCheck = time.Now()
	p.health.IsHealthy = true
	p.health.ConsecutiveFailures = 0
	p.health.LastError = nil
}

func (p *HTTPProvider) recordFailure(err error) {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()

	p.health.TotalRequests++
	p.health.FailedRequests++
	p.health.LastCheck = time.Now()
	p.health.ConsecutiveFailures++
	p.health.LastError = err

	if p.health.ConsecutiveFailures >= unhealthyAfter && p.health.IsHealthy {
		p.health.IsHealthy = false
		slog.Warn("provider marked unhealthy",
			"provider", p.config.Name,
			"consecutive_failures", p.health.ConsecutiveFailures,
			"error", err,
		)
	}
}
