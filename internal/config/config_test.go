package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1800*time.Second, cfg.DefaultCacheTTL)
	assert.Equal(t, 1000, cfg.CacheMaxSize)
	assert.Equal(t, 50, cfg.SessionCacheMax)
	assert.Equal(t, 5, cfg.RetrieverMaxResults)
	assert.Equal(t, 2, cfg.RetrieverSpecificMax)
	assert.Equal(t, 1, cfg.RetrieverVerySpecificMax)
	assert.Equal(t, 0.7, cfg.ConfidenceAcceptLLM)
	assert.Equal(t, 0.95, cfg.ConfidenceAcceptRule)
	assert.Equal(t, 500*time.Millisecond, cfg.LLMRewriteTimeout)
}

func TestLoadLayersFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "assistant.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
cache_max_size: 200
catalog_dir: /srv/catalogs
preload_tenants: [butik, magaza]
`), 0o644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("CACHE_MAX_SIZE", "300")
	t.Setenv("LLM_REWRITE_TIMEOUT_MS", "250")
	t.Setenv("SESSION_IDLE_TTL_SECONDS", "60")
	t.Setenv("CONFIDENCE_ACCEPT_LLM", "0.8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 300, cfg.CacheMaxSize, "environment wins over the file")
	assert.Equal(t, "/srv/catalogs", cfg.CatalogDir)
	assert.Equal(t, []string{"butik", "magaza"}, cfg.PreloadTenants)
	assert.Equal(t, 250*time.Millisecond, cfg.LLMRewriteTimeout)
	assert.Equal(t, time.Minute, cfg.SessionIdleTTL)
	assert.Equal(t, 0.8, cfg.ConfidenceAcceptLLM)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("CACHE_MAX_SIZE", "0")
	t.Setenv("CONFIDENCE_ACCEPT_RULE", "1.5")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache_max_size")
	assert.Contains(t, err.Error(), "confidence_accept_rule")
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestPreloadTenantsFromEnv(t *testing.T) {
	t.Setenv("PRELOAD_TENANTS", " butik, ,magaza ")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"butik", "magaza"}, cfg.PreloadTenants)
}

func TestLLMCredentials(t *testing.T) {
	tests := []struct {
		name         string
		cfg          Config
		wantProvider string
		wantKey      string
	}{
		{name: "no keys", cfg: Config{}},
		{name: "first key wins", cfg: Config{OpenAIAPIKey: "o", AnthropicAPIKey: "a"}, wantProvider: "openai", wantKey: "o"},
		{name: "explicit provider", cfg: Config{LLMProvider: "anthropic", OpenAIAPIKey: "o", AnthropicAPIKey: "a"}, wantProvider: "anthropic", wantKey: "a"},
		{name: "explicit provider without key", cfg: Config{LLMProvider: "gemini", OpenAIAPIKey: "o"}},
		{name: "disabled", cfg: Config{LLMProvider: "none", GeminiAPIKey: "g"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, k := tt.cfg.LLMCredentials()
			assert.Equal(t, tt.wantProvider, p)
			assert.Equal(t, tt.wantKey, k)
		})
	}
}
