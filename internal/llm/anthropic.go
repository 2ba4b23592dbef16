package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Veraticus/callguard/internal/common"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
	anthropicModel   = "claude-3-5-haiku-latest"
)

// anthropicClient implements the Client interface for the Anthropic messages API.
type anthropicClient struct {
	httpClient  *http.Client
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

// newAnthropicClient creates a new Anthropic API client.
func newAnthropicClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic API key is required", common.ErrConfigurationMissing)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = anthropicModel
	}

	return &anthropicClient{
		endpoint:    strings.TrimRight(baseURL, "/") + "/messages",
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: cfg.temperature(),
		maxTokens:   cfg.maxTokens(),
		httpClient:  newHTTPClient(cfg.timeout()),
	}, nil
}

// Complete sends one exchange to Anthropic and concatenates the text blocks.
func (c *anthropicClient) Complete(ctx context.Context, r Request) (string, error) {
	requestBody := map[string]any{
		"model":       c.model,
		"system":      r.System,
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
		"messages": []map[string]string{
			{"role": "user", "content": r.User},
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	body, err := doRequest(c.httpClient, req, "Anthropic")
	if err != nil {
		return "", err
	}

	var response anthropicResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("%w: failed to parse Anthropic response: %v", common.ErrMalformedResponse, err)
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", fmt.Errorf("%w: Anthropic returned no text content", common.ErrMalformedResponse)
	}

	return text.String(), nil
}

// anthropicResponse represents the Anthropic API response structure.
type anthropicResponse struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}
