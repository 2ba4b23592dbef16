package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Veraticus/callguard/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		config  Config
	}{
		{name: "default provider is gateway", config: Config{APIKey: "k"}},
		{name: "openai", config: Config{Provider: "openai", APIKey: "k"}},
		{name: "anthropic mixed case", config: Config{Provider: "Anthropic", APIKey: "k"}},
		{name: "missing key", config: Config{Provider: "gateway"}, wantErr: common.ErrConfigurationMissing},
		{name: "missing anthropic key", config: Config{Provider: "anthropic"}, wantErr: common.ErrConfigurationMissing},
		{name: "unknown provider", config: Config{Provider: "ollama", APIKey: "k"}, wantErr: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.config)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestChatCompletionsClient_Complete(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","choices":[{"index":0,"message":{"role":"assistant","content":"{\"riskLevel\":\"low\"}"}}]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: server.URL + "/v1/"})
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), Request{System: "sys", User: "transcript"})
	require.NoError(t, err)
	assert.Equal(t, `{"riskLevel":"low"}`, out)

	assert.Equal(t, gatewayDefaults.model, gotBody["model"])
	messages, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
}

func TestChatCompletionsClient_Temperature(t *testing.T) {
	zero := 0.0
	tests := []struct {
		name        string
		temperature *float64
		want        float64
	}{
		{name: "unset uses default", temperature: nil, want: 0.3},
		{name: "zero is honored", temperature: &zero, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
				_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}]}`))
			}))
			defer server.Close()

			client, err := NewClient(Config{APIKey: "test-key", BaseURL: server.URL + "/v1", Temperature: tt.temperature})
			require.NoError(t, err)

			_, err = client.Complete(context.Background(), Request{System: "sys", User: "transcript"})
			require.NoError(t, err)
			assert.InDelta(t, tt.want, gotBody["temperature"], 1e-9)
		})
	}
}

func TestChatCompletionsClient_StatusMapping(t *testing.T) {
	tests := []struct {
		wantIs    error
		name      string
		body      string
		status    int
		permanent bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, wantIs: common.ErrRateLimit},
		{name: "quota exhausted", status: http.StatusPaymentRequired, wantIs: common.ErrQuotaExceeded, permanent: true},
		{name: "bad request", status: http.StatusBadRequest, wantIs: common.ErrClassifierUnavailable, permanent: true},
		{name: "server error", status: http.StatusBadGateway, wantIs: common.ErrClassifierUnavailable},
		{name: "empty choices", status: http.StatusOK, body: `{"choices":[]}`, wantIs: common.ErrMalformedResponse},
		{name: "not json", status: http.StatusOK, body: `<html>`, wantIs: common.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := NewClient(Config{Provider: ProviderOpenAI, APIKey: "k", BaseURL: server.URL})
			require.NoError(t, err)

			_, err = client.Complete(context.Background(), Request{User: "x"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantIs)

			var retryable *common.RetryableError
			assert.Equal(t, tt.permanent, errors.As(err, &retryable))
		})
	}
}

func TestChatCompletionsClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.Complete(ctx, Request{User: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrClassifierUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAnthropicClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sys", body["system"])

		_, _ = w.Write([]byte(`{"id":"m1","content":[{"type":"text","text":"{\"riskLevel\":"},{"type":"text","text":"\"high\"}"}]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{Provider: ProviderAnthropic, APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), Request{System: "sys", User: "u"})
	require.NoError(t, err)
	assert.Equal(t, `{"riskLevel":"high"}`, out)
}

func TestAnthropicClient_NoText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"m1","content":[{"type":"tool_use"}]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{Provider: ProviderAnthropic, APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), Request{User: "u"})
	assert.ErrorIs(t, err, common.ErrMalformedResponse)
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := buildSystemPrompt("हिंदी, hi")
	for id := range indicatorCues {
		assert.Contains(t, prompt, string(id))
	}
	assert.Contains(t, prompt, "हिंदी, hi")
	assert.Contains(t, buildUserPrompt("hello there"), "hello there")
}
