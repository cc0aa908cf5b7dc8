package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/claimcheck/internal/model"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v, model.DefaultConfig())
	v.SetEnvPrefix("CLAIMCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func TestDecodeConfig_Defaults(t *testing.T) {
	cfg, err := decodeConfig(newTestViper())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)
}

func TestDecodeConfig_EnvOverrides(t *testing.T) {
	t.Setenv("CLAIMCHECK_LLM_PROVIDER", "anthropic")
	t.Setenv("CLAIMCHECK_CACHE_TTL", "48h")
	t.Setenv("CLAIMCHECK_SEARCH_TARGET_RESULTS", "40")
	t.Setenv("CLAIMCHECK_STORE_DRIVER", "redis")

	cfg, err := decodeConfig(newTestViper())
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 48*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 40, cfg.Search.TargetResults)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, 5, cfg.Analysis.Batches)
}

func TestDecodeConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: ollama
  model: llama3.1
analysis:
  languages: [es, pt]
server:
  addr: ":9090"
`), 0o600))

	v := newTestViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := decodeConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3.1", cfg.LLM.Model)
	assert.Equal(t, []string{"es", "pt"}, cfg.Analysis.Languages)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 7*24*time.Hour, cfg.Cache.TTL)
}

func TestDecodeConfig_DomainRates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rate_limiting:
  domains:
    - host: api.search.brave.com
      requests_per_second: 0.01
      burst: 1
    - host: www.googleapis.com
      requests_per_second: 5
`), 0o600))

	v := newTestViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := decodeConfig(v)
	require.NoError(t, err)
	assert.Equal(t, []model.DomainRate{
		{Host: "api.search.brave.com", RequestsPerSecond: 0.01, Burst: 1},
		{Host: "www.googleapis.com", RequestsPerSecond: 5},
	}, cfg.RateLimiting.Domains)
	assert.Equal(t, 10.0, cfg.RateLimiting.RequestsPerSecond)
}

func TestNewLimiter_AppliesDomainRates(t *testing.T) {
	limiter := newLimiter(model.RateLimitingConfig{
		RequestsPerSecond: 100,
		BurstSize:         10,
		Domains: []model.DomainRate{
			{Host: "slow.example.com", RequestsPerSecond: 0.01, Burst: 1},
			{Host: ""},
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, limiter.Wait(ctx, "https://slow.example.com/a"))
	assert.Error(t, limiter.Wait(ctx, "https://slow.example.com/b"), "override should allow one request per 100s")

	for i := 0; i < 3; i++ {
		assert.NoError(t, limiter.Wait(ctx, "https://fast.example.com/"))
	}
}

func TestApplyConventionalEnv(t *testing.T) {
	env := map[string]string{
		"OPENAI_API_KEY":          "sk-openai",
		"ANTHROPIC_API_KEY":       "sk-ant",
		"OPENROUTER_API_KEY":      "sk-or",
		"GOOGLE_SEARCH_API_KEY":   "g-key",
		"GOOGLE_SEARCH_ENGINE_ID": "cx-1",
		"BRAVE_SEARCH_API_KEY":    "b-key",
		"OLLAMA_BASE_URL":         "http://ollama:11434",
	}
	getenv := func(k string) string { return env[k] }

	tests := []struct {
		llm, search  string
		wantLLMKey   string
		wantSearch   string
		wantEngineID string
	}{
		{"openai", "google", "sk-openai", "g-key", "cx-1"},
		{"anthropic", "brave", "sk-ant", "b-key", ""},
		{"openrouter", "google", "sk-or", "g-key", "cx-1"},
		{"ollama", "brave", "", "b-key", ""},
	}
	for _, tt := range tests {
		cfg := model.DefaultConfig()
		cfg.LLM.Provider = tt.llm
		cfg.Search.Provider = tt.search
		applyConventionalEnv(cfg, getenv)

		assert.Equal(t, tt.wantLLMKey, cfg.LLM.APIKey, tt.llm)
		assert.Equal(t, tt.wantSearch, cfg.Search.APIKey, tt.search)
		assert.Equal(t, tt.wantEngineID, cfg.Search.EngineID, tt.search)
	}

	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "ollama"
	applyConventionalEnv(cfg, getenv)
	assert.Equal(t, "http://ollama:11434", cfg.LLM.BaseURL)

	// Explicit config wins
	cfg = model.DefaultConfig()
	cfg.LLM.APIKey = "from-config"
	applyConventionalEnv(cfg, getenv)
	assert.Equal(t, "from-config", cfg.LLM.APIKey)
}

func TestRedacted(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.APIKey = "sk-1234567890abcdef"
	cfg.Search.APIKey = "short"
	cfg.Store.PostgresURL = "postgres://claim:hunter2@db:5432/claimcheck"
	cfg.Store.RedisURL = "redis://cache:6379/0"

	r := redacted(cfg)
	assert.Equal(t, "sk-1****", r.LLM.APIKey)
	assert.Equal(t, "****", r.Search.APIKey)
	assert.Equal(t, "postgres://claim:****@db:5432/claimcheck", r.Store.PostgresURL)
	assert.Equal(t, "redis://cache:6379/0", r.Store.RedisURL)

	// Original untouched
	assert.Equal(t, "sk-1234567890abcdef", cfg.LLM.APIKey)
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# claimcheck configuration"))

	var cfg model.Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, *model.DefaultConfig(), cfg)

	assert.Error(t, writeDefaultConfig(path), "existing file must not be overwritten")
}

func TestDecodeConfig_SecretFromPrefixedEnv(t *testing.T) {
	t.Setenv("CLAIMCHECK_LLM_API_KEY", "sk-env")
	t.Setenv("CLAIMCHECK_STORE_POSTGRES_URL", "postgres://localhost/claimcheck")

	cfg, err := decodeConfig(newTestViper())
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "postgres://localhost/claimcheck", cfg.Store.PostgresURL)
}
