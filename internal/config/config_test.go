package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, "ollama", cfg.DefaultProvider)
	assert.Equal(t, 10, cfg.MaxRounds)
	assert.Equal(t, 30, cfg.MaxRoundsStream)
	assert.Equal(t, 20, cfg.HistoryWindow)
	assert.Equal(t, "ask", cfg.Confirmation.DefaultPolicy)
	assert.True(t, cfg.Confirmation.RememberChoices)
	assert.True(t, cfg.TokenOptimization.Enabled)
	assert.Equal(t, 1000, cfg.TokenOptimization.FilterThreshold)
	assert.Contains(t, cfg.TokenOptimization.FilterTools, "list_tools")
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.DefaultProvider)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_provider: openrouter
max_rounds: 3
confirmation:
  default_policy: deny
  tool_policies:
    delete_file: allow
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openrouter", cfg.DefaultProvider)
	assert.Equal(t, 3, cfg.MaxRounds)
	assert.Equal(t, "deny", cfg.Confirmation.DefaultPolicy)
	assert.Equal(t, "allow", cfg.Confirmation.ToolPolicies["delete_file"])
}

func TestConfirmationPolicyPrecedence(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Confirmation.ToolPolicies = map[string]string{"delete_file": "allow"}
	cfg.Confirmation.CategoryPolicies = map[string]string{"file_ops": "deny"}

	assert.Equal(t, "allow", cfg.ConfirmationPolicy("delete_file", "file_ops"))
	assert.Equal(t, "deny", cfg.ConfirmationPolicy("other_tool", "file_ops"))
	assert.Equal(t, "ask", cfg.ConfirmationPolicy("other_tool", "other_category"))
}

func TestSetToolPolicyAndSave(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := Load(path)
	require.NoError(t, err)

	cfg.SetToolPolicy("delete_file", "deny")
	require.NoError(t, cfg.Save())

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "deny", reloaded.ConfirmationPolicy("delete_file", ""))
}

func TestProviderFallback(t *testing.T) {
	t.Parallel()

	cfg := Default()
	name, pc, ok := cfg.Provider("")
	require.True(t, ok)
	assert.Equal(t, "ollama", name)
	assert.True(t, pc.Enabled)

	_, _, ok = cfg.Provider("nonexistent")
	assert.False(t, ok)
}
