// Package openai implements the Provider adapter for the OpenAI
// moderation endpoint (POST /v1/moderations). Provider category names
// are mapped onto the built-in taxonomy; categories without a mapping
// pass through under their provider name.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"veritas-hq/sentinel/pkg/moderation"
	"veritas-hq/sentinel/pkg/providers"
)

const defaultBaseURL = "https://api.openai.com"

// defaultModel is the omni moderation model; overridable via Config.Model.
const defaultModel = "omni-moderation-latest"

// Provider is the OpenAI moderation adapter.
type Provider struct {
	*providers.HTTPProvider
	model string
}

// New creates an OpenAI provider. APIKey is required.
func New(config providers.Config) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai provider %q requires an api_key", config.Name)
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Type == "" {
		config.Type = "openai"
	}
	model := config.Model
	if model == "" {
		model = defaultModel
	}
	return &Provider{
		HTTPProvider: providers.NewHTTPProvider(config),
		model:        model,
	}, nil
}

type moderationRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		CategoryScores map[string]float64 `json:"category_scores"`
	} `json:"results"`
}

// categoryMap translates OpenAI category names to the built-in taxonomy.
var categoryMap = map[string]moderation.Category{
	"hate":                   moderation.CategoryHateSpeech,
	"hate/threatening":       moderation.CategoryHateSpeech,
	"harassment":             moderation.CategoryHarassment,
	"harassment/threatening": moderation.CategoryHarassment,
	"violence":               moderation.CategoryViolence,
	"violence/graphic":       moderation.CategoryViolence,
	"self-harm":              moderation.CategorySelfHarm,
	"self-harm/intent":       moderation.CategorySelfHarm,
	"self-harm/instructions": moderation.CategorySelfHarm,
	"sexual":                 moderation.CategorySexual,
	"sexual/minors":          moderation.CategorySexual,
	"illicit":                moderation.CategoryIllegal,
	"illicit/violent":        moderation.CategoryIllegal,
}

// Moderate implements providers.Provider. The endpoint scores text only;
// image and frame payloads are sent as their payload reference, which the
// omni models accept as image URLs.
func (p *Provider) Moderate(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("no items to moderate")
	}

	input := make([]string, len(req.Items))
	for i, item := range req.Items {
		input[i] = item.Payload
	}
	body, err := json.Marshal(moderationRequest{Model: p.model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("failed to encode moderation request: %w", err)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + p.GetConfig().APIKey,
	}

	start := time.Now()
	resp, err := p.DoRequest(ctx, http.MethodPost, p.GetConfig().BaseURL+"/v1/moderations", body, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded moderationResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode moderation response: %w", err)
	}
	if len(decoded.Results) != len(req.Items) {
		return nil, fmt.Errorf("provider returned %d results for %d items", len(decoded.Results), len(req.Items))
	}

	out := &providers.Response{
		Results: make([]providers.ItemScores, len(decoded.Results)),
		Latency: time.Since(start),
	}
	for i, r := range decoded.Results {
		scores := make(moderation.Scores, len(r.CategoryScores))
		for name, score := range r.CategoryScores {
			cat, ok := categoryMap[name]
			if !ok {
				cat = moderation.Category(normalizeCategory(name))
			}
			// Keep the highest score when several provider categories
			// fold into one taxonomy category.
			if score > scores[cat] {
				scores[cat] = score
			}
		}
		out.Results[i] = providers.ItemScores{Scores: scores}
	}
	return out, nil
}

// HealthCheck implements providers.Provider. The moderation API has no
// dedicated health endpoint; listing models is the cheapest
// authenticated round trip.
func (p *Provider) HealthCheck(ctx context.Context) error {
	headers := map[string]string{
		"Authorization": "Bearer " + p.GetConfig().APIKey,
	}
	return p.HealthCheckURL(ctx, p.GetConfig().BaseURL+"/v1/models", headers)
}

func normalizeCategory(name string) string {
	name = strings.ReplaceAll(name, "-", "_")
	return strings.ReplaceAll(name, "/", "_")
}
