package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "interactive", cfg.Permissions.Mode)
	assert.Contains(t, cfg.Permissions.AutoApproveTools, "web_search")
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 120, cfg.Server.RequestTimeoutSec)
	assert.Equal(t, 0.9, cfg.Routing.MinEvalAccuracy)
	assert.False(t, cfg.Learning.Disabled)
}

func TestLoadFileNotFound(t *testing.T) {
	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err, "missing file should fall back to defaults")
	assert.Equal(t, "openai", cfg.Provider)
}

func TestLoadValidYAML(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	body := `
provider: deepseek
model: deepseek-chat
providers:
  deepseek:
    api_key: sk-test
web:
  search_provider: tavily
  search_api_key: tvly-test
routing:
  debug: true
server:
  addr: ":9999"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "deepseek", cfg.Provider)
	assert.Equal(t, "deepseek-chat", cfg.Model)
	assert.Equal(t, "sk-test", cfg.GetProviderConfig("deepseek").APIKey)
	assert.Equal(t, "tavily", cfg.Web.SearchProvider)
	assert.True(t, cfg.Routing.Debug)
	assert.Equal(t, ":9999", cfg.Server.Addr)

	// Defaults survive a partial file.
	assert.Equal(t, "interactive", cfg.Permissions.Mode)
}

func TestLoadInvalidYAML(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TORQ_PROVIDER", "anthropic")
	t.Setenv("TORQ_MODEL", "claude-sonnet-4-20250514")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("TAVILY_API_KEY", "tvly-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Model)
	assert.Equal(t, "sk-ant-test", cfg.GetProviderConfig("anthropic").APIKey)
	assert.Equal(t, "tavily", cfg.Web.SearchProvider)
	assert.Equal(t, "tvly-env", cfg.Web.SearchAPIKey)
}

func TestGetProviderConfigUnknown(t *testing.T) {
	cfg := DefaultConfig()
	pc := cfg.GetProviderConfig("nope")
	require.NotNil(t, pc)
	assert.Empty(t, pc.APIKey)
}

func TestProviderDefaultsEmbedded(t *testing.T) {
	defs := LoadProviderDefaults()
	require.NotEmpty(t, defs)
	assert.NotEmpty(t, defs["deepseek"].BaseURL)
	assert.NotEmpty(t, defs["openai"].DefaultModel)
}
