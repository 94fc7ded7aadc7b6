package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chew-z/bypass-proxy/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config directory at a temp dir and clears key env vars.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, name := range []string{
		"BYPASS_API_KEY", "OPENROUTER_API_KEY", "BYPASS_PORT", "BYPASS_HOST",
		"BYPASS_CHAT_MODELS", "BYPASS_EMBEDDING_MODELS", "BYPASS_LOCAL_BASE_URL",
		"BYPASS_REMOTE_BASE_URL", "BYPASS_UPSTREAM_TIMEOUT", "BYPASS_DEBUG",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, def.RemoteBaseURL, cfg.RemoteBaseURL)
	assert.Equal(t, def.LocalBaseURL, cfg.LocalBaseURL)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 11434, cfg.Port)
	assert.Equal(t, def.Bypass.Chat, cfg.Bypass.Chat)
	assert.Equal(t, def.Bypass.Embeddings, cfg.Bypass.Embeddings)
	assert.Zero(t, cfg.UpstreamTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")
	t.Setenv("BYPASS_PORT", "11500")
	t.Setenv("BYPASS_CHAT_MODELS", "llama3.2:1b,qwen2.5:0.5b")
	t.Setenv("BYPASS_UPSTREAM_TIMEOUT", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-or-test", cfg.APIKey)
	assert.Equal(t, 11500, cfg.Port)
	assert.Equal(t, []string{"llama3.2:1b", "qwen2.5:0.5b"}, cfg.Bypass.Chat)
	assert.Equal(t, 90*time.Second, cfg.UpstreamTimeout)
}

func TestLoad_APIKeyPrecedence(t *testing.T) {
	isolate(t)
	t.Setenv("OPENROUTER_API_KEY", "from-openrouter")
	t.Setenv("BYPASS_API_KEY", "from-bypass")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-bypass", cfg.APIKey)
}

func TestSaveAndLoad(t *testing.T) {
	dir := isolate(t)

	cfg := DefaultConfig()
	cfg.APIKey = "saved-key"
	cfg.Port = 12000
	cfg.UpstreamTimeout = 2 * time.Minute
	cfg.Bypass.Chat = []string{"phi3:mini"}
	require.NoError(t, Save(&cfg))

	_, err := os.Stat(filepath.Join(dir, "bypass-proxy", "config.json"))
	require.NoError(t, err)

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "saved-key", loaded.APIKey)
	assert.Equal(t, 12000, loaded.Port)
	assert.Equal(t, 2*time.Minute, loaded.UpstreamTimeout)
	assert.Equal(t, []string{"phi3:mini"}, loaded.Bypass.Chat)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "bypass-proxy"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bypass-proxy", "config.json"), []byte("{not json"), 0644))

	_, err := Load()
	assert.ErrorContains(t, err, "error reading config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Port = 70000 }, "port must be a valid TCP port"},
		{"zero port", func(c *Config) { c.Port = 0 }, "port must be a valid TCP port, got 0"},
		{"negative port", func(c *Config) { c.Port = -1 }, "port must be a valid TCP port"},
		{"bad scheme", func(c *Config) { c.LocalBaseURL = "ftp://localhost" }, "local_base_url must use http or https"},
		{"no host", func(c *Config) { c.RemoteBaseURL = "https://" }, "remote_base_url must include a host"},
		{"negative timeout", func(c *Config) { c.UpstreamTimeout = -time.Second }, "upstream_timeout must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestBypassTable(t *testing.T) {
	cfg := DefaultConfig()
	table := cfg.BypassTable()

	assert.True(t, table.Allows(api.Chat, "SmolLM2:135m"))
	assert.True(t, table.Allows(api.Embeddings, "nomic-embed-text"))
	assert.False(t, table.Allows(api.Chat, "gpt-4"))

	cfg.Bypass.Chat[0] = "mutated"
	assert.True(t, table.Allows(api.Chat, "nomic-embed-text"))
}
