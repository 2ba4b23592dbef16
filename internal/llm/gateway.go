package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/callguard/internal/common"
)

type providerDefaults struct {
	name    string
	baseURL string
	model   string
}

var (
	gatewayDefaults = providerDefaults{
		name:    "AI gateway",
		baseURL: "https://ai.gateway.lovable.dev/v1",
		model:   "google/gemini-2.5-flash",
	}
	openAIDefaults = providerDefaults{
		name:    "OpenAI",
		baseURL: "https://api.openai.com/v1",
		model:   "gpt-4o-mini",
	}
)

// chatCompletionsClient talks to any OpenAI-compatible chat completions endpoint.
type chatCompletionsClient struct {
	httpClient  *http.Client
	name        string
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

func newChatCompletionsClient(cfg Config, defaults providerDefaults) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s API key is required", common.ErrConfigurationMissing, defaults.name)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaults.baseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaults.model
	}

	return &chatCompletionsClient{
		name:        defaults.name,
		endpoint:    strings.TrimRight(baseURL, "/") + "/chat/completions",
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: cfg.temperature(),
		maxTokens:   cfg.maxTokens(),
		httpClient:  newHTTPClient(cfg.timeout()),
	}, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Complete sends one chat exchange and returns the first choice's content.
func (c *chatCompletionsClient) Complete(ctx context.Context, r Request) (string, error) {
	requestBody := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": r.System},
			{"role": "user", "content": r.User},
		},
		"temperature": c.temperature,
		"max_tokens":  c.maxTokens,
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
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	body, err := doRequest(c.httpClient, req, c.name)
	if err != nil {
		return "", err
	}

	var response chatCompletionsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("%w: failed to parse %s response: %v", common.ErrMalformedResponse, c.name, err)
	}
	if len(response.Choices) == 0 || strings.TrimSpace(response.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: %s returned no completion content", common.ErrMalformedResponse, c.name)
	}

	return response.Choices[0].Message.Content, nil
}

// chatCompletionsResponse is the subset of the chat completions response we read.
type chatCompletionsResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
		Index        int    `json:"index"`
	} `json:"choices"`
}

// doRequest executes req and maps transport failures and non-2xx statuses
// onto the classifier error taxonomy.
func doRequest(client *http.Client, req *http.Request, provider string) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %s request: %w", common.ErrClassifierUnavailable, provider, ctxErr)
		}
		return nil, fmt.Errorf("%w: %s request failed: %v", common.ErrClassifierUnavailable, provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s response: %v", common.ErrClassifierUnavailable, provider, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %w (%s status %d)", common.ErrClassifierUnavailable, common.ErrRateLimit, provider, resp.StatusCode)
	case resp.StatusCode == http.StatusPaymentRequired:
		return nil, common.Permanent(fmt.Errorf("%w: %w (%s status %d)", common.ErrClassifierUnavailable, common.ErrQuotaExceeded, provider, resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		err := fmt.Errorf("%w: %s error (status %d): %s", common.ErrClassifierUnavailable, provider, resp.StatusCode, truncate(string(body), 512))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, common.Permanent(err)
		}
		return nil, err
	}

	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
