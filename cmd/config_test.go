package cmd

import (
	"testing"
	"time"

	"github.com/chew-z/bypass-proxy/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigKeys_SetGet(t *testing.T) {
	cfg := config.DefaultConfig()

	tests := []struct {
		key   string
		value string
		want  string
	}{
		{"remote_base_url", "https://example.com/api/v1", "https://example.com/api/v1"},
		{"local_base_url", "http://127.0.0.1:11435", "http://127.0.0.1:11435"},
		{"host", "0.0.0.0", "0.0.0.0"},
		{"port", "8080", "8080"},
		{"upstream_timeout", "90s", "1m30s"},
		{"bypass.chat", " gemma3:1b, ,qwen3:0.6b ", "gemma3:1b,qwen3:0.6b"},
		{"bypass.embeddings", "nomic-embed-text", "nomic-embed-text"},
		{"api_key", "sk-or-123", "sk-or-123"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			entry, ok := configKeys[tt.key]
			require.True(t, ok)
			require.NoError(t, entry.set(&cfg, tt.value))
			assert.Equal(t, tt.want, entry.get(&cfg))
		})
	}

	assert.Equal(t, 90*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, []string{"gemma3:1b", "qwen3:0.6b"}, cfg.Bypass.Chat)
}

func TestConfigKeys_InvalidValues(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Error(t, configKeys["port"].set(&cfg, "abc"))
	assert.Error(t, configKeys["upstream_timeout"].set(&cfg, "soon"))
}

func TestMaskIfAPIKey(t *testing.T) {
	assert.Equal(t, "********", maskIfAPIKey("api_key", "secret"))
	assert.Equal(t, "", maskIfAPIKey("api_key", ""))
	assert.Equal(t, "127.0.0.1", maskIfAPIKey("host", "127.0.0.1"))
}
