// Package generic implements the Provider adapter for self-hosted
// scoring services speaking the plain JSON check contract:
//
//	POST {base_url}/v1/check
//	{"items": [{"kind": "text", "payload": "...", "ordinal": 0}],
//	 "policy_id": "...", "metadata": {...}}
//
// The service answers with per-item category scores plus optional
// latency and cost bookkeeping:
//
//	{"results": [{"scores": {"hate_speech": 0.91}}],
//	 "latency_ms": 12, "cost": 0.0002}
package generic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"veritas-hq/sentinel/pkg/moderation"
	"veritas-hq/sentinel/pkg/providers"
)

// Provider is the generic JSON adapter.
type Provider struct {
	*providers.HTTPProvider
}

// New creates a generic provider. BaseURL is required.
func New(config providers.Config) (*Provider, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("generic provider %q requires a base_url", config.Name)
	}
	if config.Type == "" {
		config.Type = "generic"
	}
	return &Provider{HTTPProvider: providers.NewHTTPProvider(config)}, nil
}

type wireItem struct {
	Kind    string `json:"kind"`
	Payload string `json:"payload"`
	Ordinal int    `json:"ordinal"`
}

type wireRequest struct {
	Items    []wireItem        `json:"items"`
	PolicyID string            `json:"policy_id,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type wireResult struct {
	Scores map[string]float64 `json:"scores"`
}

type wireResponse struct {
	Results   []wireResult `json:"results"`
	LatencyMS int64        `json:"latency_ms"`
	Cost      float64      `json:"cost"`
}

// Moderate implements providers.Provider.
func (p *Provider) Moderate(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("no items to moderate")
	}

	wire := wireRequest{
		Items:    make([]wireItem, len(req.Items)),
		PolicyID: req.PolicyID,
		Metadata: req.Metadata,
	}
	for i, item := range req.Items {
		wire.Items[i] = wireItem{Kind: string(item.Kind), Payload: item.Payload, Ordinal: item.Ordinal}
	}
	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to encode check request: %w", err)
	}

	headers := map[string]string{}
	if cfg := p.GetConfig(); cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}

	start := time.Now()
	resp, err := p.DoRequest(ctx, http.MethodPost, p.GetConfig().BaseURL+"/v1/check", body, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode check response: %w", err)
	}
	if len(decoded.Results) != len(req.Items) {
		return nil, fmt.Errorf("provider returned %d results for %d items", len(decoded.Results), len(req.Items))
	}

	out := &providers.Response{
		Results: make([]providers.ItemScores, len(decoded.Results)),
		Latency: time.Duration(decoded.LatencyMS) * time.Millisecond,
		Cost:    decoded.Cost,
	}
	if out.Latency == 0 {
		out.Latency = time.Since(start)
	}
	for i, r := range decoded.Results {
		scores := make(moderation.Scores, len(r.Scores))
		for cat, score := range r.Scores {
			scores[moderation.Category(cat)] = score
		}
		out.Results[i] = providers.ItemScores{Scores: scores}
	}
	return out, nil
}

// HealthCheck implements providers.Provider with a GET to /v1/health.
func (p *Provider) HealthCheck(ctx context.Context) error {
	headers := map[string]string{}
	if cfg := p.GetConfig(); cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}
	return p.HealthCheckURL(ctx, p.GetConfig().BaseURL+"/v1/health", headers)
}
