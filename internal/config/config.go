// Package config loads and persists the layered runtime configuration:
// provider settings, confirmation policies, token-optimization knobs, and
// round limits. Values come from a YAML file merged over built-in defaults,
// with TOOLCHAT_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// ProviderConfig holds the connection settings for one model provider.
type ProviderConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	Enabled bool   `mapstructure:"enabled"`
}

// ConfirmationConfig holds durable confirmation policies. Policies resolve
// per-tool first, then per-category, then the default, each one of
// "ask", "allow", or "deny".
type ConfirmationConfig struct {
	DefaultPolicy    string            `mapstructure:"default_policy"`
	ToolPolicies     map[string]string `mapstructure:"tool_policies"`
	CategoryPolicies map[string]string `mapstructure:"category_policies"`
	RememberChoices  bool              `mapstructure:"remember_choices"`
}

// TokenOptimizationConfig controls the history filter that rewrites bulky
// stored tool results into placeholders.
type TokenOptimizationConfig struct {
	Enabled              bool     `mapstructure:"enabled"`
	FilterOldToolResults bool     `mapstructure:"filter_old_tool_results"`
	FilterTools          []string `mapstructure:"filter_tools"`
	FilterThreshold      int      `mapstructure:"filter_threshold"`
	KeepRecentMessages   int      `mapstructure:"keep_recent_messages"`
}

// Config is the resolved runtime configuration.
type Config struct {
	DefaultProvider string                    `mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `mapstructure:"providers"`

	MaxRounds       int `mapstructure:"max_rounds"`
	MaxRoundsStream int `mapstructure:"max_rounds_stream"`
	HistoryWindow   int `mapstructure:"history_window"`

	Confirmation      ConfirmationConfig      `mapstructure:"confirmation"`
	TokenOptimization TokenOptimizationConfig `mapstructure:"token_optimization"`

	SessionDir string `mapstructure:"session_dir"`
	MemoryPath string `mapstructure:"memory_path"`

	mu    sync.RWMutex
	viper *viper.Viper
	path  string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_provider", "ollama")
	v.SetDefault("providers.ollama.base_url", "http://localhost:11434")
	v.SetDefault("providers.ollama.model", "qwen3")
	v.SetDefault("providers.ollama.enabled", true)
	v.SetDefault("providers.openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("providers.openrouter.model", "qwen/qwen3-32b")
	v.SetDefault("providers.openrouter.enabled", false)

	v.SetDefault("max_rounds", 10)
	v.SetDefault("max_rounds_stream", 30)
	v.SetDefault("history_window", 20)

	v.SetDefault("confirmation.default_policy", "ask")
	v.SetDefault("confirmation.remember_choices", true)

	v.SetDefault("token_optimization.enabled", true)
	v.SetDefault("token_optimization.filter_old_tool_results", true)
	v.SetDefault("token_optimization.filter_tools", []string{"list_tools", "memory_read_all"})
	v.SetDefault("token_optimization.filter_threshold", 1000)
	v.SetDefault("token_optimization.keep_recent_messages", 5)

	home, _ := os.UserHomeDir()
	v.SetDefault("session_dir", filepath.Join(home, ".toolchat", "sessions"))
	v.SetDefault("memory_path", filepath.Join(home, ".toolchat", "memories.json"))
}

// Load reads configuration from path. A missing file is not an error; the
// defaults apply and a later Save creates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("TOOLCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{viper: v, path: path}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config built purely from defaults, for tests and
// embedded use.
func Default() *Config {
	cfg, _ := Load("")
	return cfg
}

// Provider returns the named provider settings, falling back to the default
// provider when name is empty.
func (c *Config) Provider(name string) (string, ProviderConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if name == "" {
		name = c.DefaultProvider
	}
	pc, ok := c.Providers[name]
	return name, pc, ok
}

// ConfirmationPolicy resolves the effective policy for a tool call:
// per-tool policy > per-category policy > global default.
func (c *Config) ConfirmationPolicy(toolName, category string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if toolName != "" {
		if p, ok := c.Confirmation.ToolPolicies[toolName]; ok && p != "" {
			return p
		}
	}
	if category != "" {
		if p, ok := c.Confirmation.CategoryPolicies[category]; ok && p != "" {
			return p
		}
	}
	if c.Confirmation.DefaultPolicy != "" {
		return c.Confirmation.DefaultPolicy
	}
	return "ask"
}

// SetToolPolicy records a durable per-tool policy. Call Save to persist.
func (c *Config) SetToolPolicy(toolName, policy string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Confirmation.ToolPolicies == nil {
		c.Confirmation.ToolPolicies = make(map[string]string)
	}
	c.Confirmation.ToolPolicies[toolName] = policy
	c.viper.Set("confirmation.tool_policies."+toolName, policy)
}

// Save writes the current configuration back to its file.
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return c.viper.WriteConfigAs(c.path)
}
