package llm

import (
	"fmt"
	"strings"

	"github.com/Veraticus/callguard/internal/common"
)

// Provider names accepted by NewClient.
const (
	ProviderGateway   = "gateway"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// NewClient creates a raw LLM client based on the provided configuration.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderGateway, "":
		return newChatCompletionsClient(cfg, gatewayDefaults)
	case ProviderOpenAI:
		return newChatCompletionsClient(cfg, openAIDefaults)
	case ProviderAnthropic:
		return newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider %q", common.ErrInvalidConfig, cfg.Provider)
	}
}
