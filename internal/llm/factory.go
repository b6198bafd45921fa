package llm

import (
	"fmt"

	"toolchat/internal/config"
	"toolchat/internal/ports"
)

// NewProvider builds the chat client for a configured provider. Ollama gets
// its native protocol; everything else is treated as OpenAI-compatible.
func NewProvider(cfg *config.Config, name string) (ports.ChatProvider, error) {
	resolved, pc, ok := cfg.Provider(name)
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	if !pc.Enabled {
		return nil, fmt.Errorf("provider %s is disabled", resolved)
	}
	if pc.Model == "" {
		return nil, fmt.Errorf("provider %s has no model configured", resolved)
	}
	if resolved == "ollama" {
		return NewOllamaClient(pc.Model, pc.BaseURL), nil
	}
	if pc.BaseURL == "" {
		return nil, fmt.Errorf("provider %s has no base_url configured", resolved)
	}
	return NewOpenAIClient(pc.Model, pc.BaseURL, pc.APIKey), nil
}
