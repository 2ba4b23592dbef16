package llm

import (
	"context"
	"time"
)

// Client defines the interface for LLM providers. Complete returns the raw
// assistant text for a single system+user exchange.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is one chat exchange.
type Request struct {
	System string
	User   string
}

// Config holds configuration for the remote classifier. A nil Temperature
// uses the default; zero is honored.
type Config struct {
	Provider         string
	APIKey           string
	BaseURL          string
	Model            string
	MaxRetries       int
	RetryDelay       time.Duration
	Timeout          time.Duration
	CacheTTL         time.Duration
	RateLimit        int
	BreakerThreshold int
	BreakerCooldown  time.Duration
	Temperature      *float64
	MaxTokens        int
}

const (
	defaultTemperature = 0.3
	defaultMaxTokens   = 1024
	defaultTimeout     = 20 * time.Second
)

func (c Config) temperature() float64 {
	if c.Temperature == nil {
		return defaultTemperature
	}
	return *c.Temperature
}

func (c Config) maxTokens() int {
	if c.MaxTokens <= 0 {
		return defaultMaxTokens
	}
	return c.MaxTokens
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Timeout
}
