package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/callguard/internal/common"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LOVABLE_API_KEY", "")

	s, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "info", s.Logging.Level)
	assert.Equal(t, "console", s.Logging.Format)
	assert.Equal(t, "en", s.Locale)
	assert.Equal(t, "gateway", s.LLM.Provider)
	assert.False(t, s.LLM.HasAPIKey())
	assert.Equal(t, "simulated", s.Monitor.Source)
	assert.Equal(t, 3*time.Second, s.Monitor.Interval)
	assert.Equal(t, 2*time.Second, s.Monitor.UploadDelay)
	assert.Equal(t, 60*time.Second, s.Monitor.UploadDuration)
	assert.Equal(t, 50, s.History.Limit)
	assert.Equal(t, ":8080", s.Server.Addr)
	assert.False(t, strings.HasPrefix(s.Database.Path, "~"))
}

func TestClientConfigTemperature(t *testing.T) {
	t.Setenv("LOVABLE_API_KEY", "")

	v := viper.New()
	v.Set("llm.temperature", 0.0)
	s, err := Load(v)
	require.NoError(t, err)

	cfg := s.LLM.ClientConfig()
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.0, *cfg.Temperature, 1e-9)

	s, err = Load(viper.New())
	require.NoError(t, err)
	cfg = s.LLM.ClientConfig()
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.3, *cfg.Temperature, 1e-9)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: debug
  format: json
locale: hi
llm:
  provider: Anthropic
  api_key: from-file
  timeout: 5s
monitor:
  source: remote
  interval: 1500ms
  upload_delay: 0s
history:
  limit: 10
database:
  path: $CALLGUARD_TEST_DIR/calls.db
`), 0o600))
	t.Setenv("CALLGUARD_TEST_DIR", dir)

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	s, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", s.Logging.Level)
	assert.Equal(t, "json", s.Logging.Format)
	assert.Equal(t, "hi", s.Locale)
	assert.Equal(t, "anthropic", s.LLM.Provider)
	assert.Equal(t, "from-file", s.LLM.APIKey)
	assert.Equal(t, 5*time.Second, s.LLM.Timeout)
	assert.Equal(t, "remote", s.Monitor.Source)
	assert.Equal(t, 1500*time.Millisecond, s.Monitor.Interval)
	assert.Zero(t, s.Monitor.UploadDelay)
	assert.Equal(t, 10, s.History.Limit)
	assert.Equal(t, filepath.Join(dir, "calls.db"), s.Database.Path)

	cfg := s.LLM.ClientConfig()
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 5, cfg.BreakerThreshold)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("CALLGUARD_MONITOR_INTERVAL", "750ms")
	t.Setenv("CALLGUARD_LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	v := viper.New()
	v.SetEnvPrefix("CALLGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, s.Monitor.Interval)
	assert.Equal(t, "openai", s.LLM.Provider)
	assert.Equal(t, "sk-env", s.LLM.APIKey)
	assert.Equal(t, "OPENAI_API_KEY", APIKeyEnv("OpenAI"))
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		values map[string]any
		name   string
	}{
		{name: "zero interval", values: map[string]any{"monitor.interval": 0}},
		{name: "negative upload delay", values: map[string]any{"monitor.upload_delay": "-1s"}},
		{name: "unknown source", values: map[string]any{"monitor.source": "microphone"}},
		{name: "history too small", values: map[string]any{"history.limit": 0}},
		{name: "history too large", values: map[string]any{"history.limit": 5000}},
		{name: "bad log level", values: map[string]any{"logging.level": "loud"}},
		{name: "bad log format", values: map[string]any{"logging.format": "xml"}},
		{name: "unknown provider", values: map[string]any{"llm.provider": "ollama"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.values {
				v.Set(k, val)
			}
			_, err := Load(v)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("CALLGUARD_X", "/opt/x")

	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "~", want: home},
		{in: "~/calls.db", want: filepath.Join(home, "calls.db")},
		{in: "$CALLGUARD_X/calls.db", want: "/opt/x/calls.db"},
		{in: "/abs/~/x", want: "/abs/~/x"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}
