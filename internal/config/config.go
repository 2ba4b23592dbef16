// Package config loads callguard settings from viper.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/callguard/internal/common"
	"github.com/Veraticus/callguard/internal/llm"
	"github.com/Veraticus/callguard/internal/monitor"
	"github.com/Veraticus/callguard/internal/source"
)

// MaxHistoryLimit bounds history.limit.
const MaxHistoryLimit = 1000

// Settings is the typed view of the configuration.
type Settings struct {
	Logging  LoggingSettings  `mapstructure:"logging"`
	Database DatabaseSettings `mapstructure:"database"`
	Server   ServerSettings   `mapstructure:"server"`
	Locale   string           `mapstructure:"locale"`
	Guidance string           `mapstructure:"guidance_file"`
	LLM      LLMSettings      `mapstructure:"llm"`
	Monitor  MonitorSettings  `mapstructure:"monitor"`
	History  HistorySettings  `mapstructure:"history"`
}

// LoggingSettings configures the global logger.
type LoggingSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LLMSettings configures the remote classifier.
type LLMSettings struct {
	Provider         string        `mapstructure:"provider"`
	APIKey           string        `mapstructure:"api_key"`
	BaseURL          string        `mapstructure:"base_url"`
	Model            string        `mapstructure:"model"`
	Temperature      float64       `mapstructure:"temperature"`
	MaxTokens        int           `mapstructure:"max_tokens"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
	Timeout          time.Duration `mapstructure:"timeout"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	RateLimit        int           `mapstructure:"rate_limit"`
	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
}

// MonitorSettings configures the analysis controller.
type MonitorSettings struct {
	Source         string        `mapstructure:"source"`
	Interval       time.Duration `mapstructure:"interval"`
	UploadDelay    time.Duration `mapstructure:"upload_delay"`
	UploadDuration time.Duration `mapstructure:"upload_duration"`
}

// HistorySettings configures call history retention.
type HistorySettings struct {
	Limit int `mapstructure:"limit"`
}

// DatabaseSettings configures the SQLite history store.
type DatabaseSettings struct {
	Path string `mapstructure:"path"`
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// apiKeyEnv is the provider's conventional API key variable.
var apiKeyEnv = map[string]string{
	llm.ProviderGateway:   "LOVABLE_API_KEY",
	llm.ProviderOpenAI:    "OPENAI_API_KEY",
	llm.ProviderAnthropic: "ANTHROPIC_API_KEY",
}

// SetDefaults registers every known key so environment overrides apply.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("locale", "en")
	v.SetDefault("guidance_file", "")

	v.SetDefault("llm.provider", llm.ProviderGateway)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.retry_delay", time.Second)
	v.SetDefault("llm.timeout", 20*time.Second)
	v.SetDefault("llm.cache_ttl", 10*time.Minute)
	v.SetDefault("llm.rate_limit", 60)
	v.SetDefault("llm.breaker_threshold", 5)
	v.SetDefault("llm.breaker_cooldown", 30*time.Second)

	v.SetDefault("monitor.source", source.KindSimulated)
	v.SetDefault("monitor.interval", monitor.DefaultInterval)
	v.SetDefault("monitor.upload_delay", monitor.DefaultUploadDelay)
	v.SetDefault("monitor.upload_duration", monitor.DefaultUploadDuration)

	v.SetDefault("history.limit", 50)
	v.SetDefault("database.path", "~/.local/share/callguard/history.db")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
}

// Load applies defaults, decodes v into Settings and validates the result.
func Load(v *viper.Viper) (Settings, error) {
	SetDefaults(v)

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}

	s.LLM.Provider = strings.ToLower(strings.TrimSpace(s.LLM.Provider))
	s.Monitor.Source = strings.ToLower(strings.TrimSpace(s.Monitor.Source))
	s.Database.Path = ExpandPath(s.Database.Path)
	s.Guidance = ExpandPath(s.Guidance)

	if s.LLM.APIKey == "" {
		if env, ok := apiKeyEnv[s.LLM.Provider]; ok {
			s.LLM.APIKey = os.Getenv(env)
		}
	}

	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Validate checks the settings for values the engine cannot run with.
func (s Settings) Validate() error {
	if _, err := common.ParseLevel(s.Logging.Level); err != nil {
		return err
	}
	switch s.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log format %q", common.ErrInvalidConfig, s.Logging.Format)
	}

	if s.Monitor.Interval <= 0 {
		return fmt.Errorf("%w: monitor.interval must be positive", common.ErrInvalidConfig)
	}
	if s.Monitor.UploadDelay < 0 {
		return fmt.Errorf("%w: monitor.upload_delay cannot be negative", common.ErrInvalidConfig)
	}
	switch s.Monitor.Source {
	case source.KindSimulated, source.KindRemote:
	default:
		return fmt.Errorf("%w: unknown monitor.source %q", common.ErrInvalidConfig, s.Monitor.Source)
	}

	if s.History.Limit < 1 || s.History.Limit > MaxHistoryLimit {
		return fmt.Errorf("%w: history.limit must be between 1 and %d", common.ErrInvalidConfig, MaxHistoryLimit)
	}

	if _, ok := apiKeyEnv[s.LLM.Provider]; !ok {
		return fmt.Errorf("%w: unsupported llm.provider %q", common.ErrInvalidConfig, s.LLM.Provider)
	}
	return nil
}

// HasAPIKey reports whether the remote classifier can be used.
func (l LLMSettings) HasAPIKey() bool {
	return l.APIKey != ""
}

// ClientConfig converts the settings into a classifier configuration.
func (l LLMSettings) ClientConfig() llm.Config {
	temperature := l.Temperature
	return llm.Config{
		Provider:         l.Provider,
		APIKey:           l.APIKey,
		BaseURL:          l.BaseURL,
		Model:            l.Model,
		Temperature:      &temperature,
		MaxTokens:        l.MaxTokens,
		MaxRetries:       l.MaxRetries,
		RetryDelay:       l.RetryDelay,
		Timeout:          l.Timeout,
		CacheTTL:         l.CacheTTL,
		RateLimit:        l.RateLimit,
		BreakerThreshold: l.BreakerThreshold,
		BreakerCooldown:  l.BreakerCooldown,
	}
}

// APIKeyEnv returns the environment variable consulted for the provider's key.
func APIKeyEnv(provider string) string {
	return apiKeyEnv[strings.ToLower(provider)]
}
