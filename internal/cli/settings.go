package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/claimcheck/internal/model"
)

// optionalKeys are omitted from the marshaled defaults when empty but must
// still resolve from the environment
var optionalKeys = []string{
	"http.http_proxy", "http.https_proxy", "http.no_proxy",
	"search.api_key", "search.engine_id", "search.base_url",
	"llm.api_key", "llm.base_url",
	"store.dir", "store.postgres_url", "store.redis_url",
	"output.language",
}

// setDefaults registers every config key with its default so that env
// variables resolve for keys absent from the config file
func setDefaults(v *viper.Viper, cfg *model.Config) {
	for _, key := range optionalKeys {
		v.SetDefault(key, "")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return
	}
	setDefaultTree(v, "", tree)
}

func setDefaultTree(v *viper.Viper, prefix string, tree map[string]any) {
	for key, value := range tree {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if sub, ok := value.(map[string]any); ok {
			setDefaultTree(v, full, sub)
			continue
		}
		v.SetDefault(full, value)
	}
}

// decodeConfig unmarshals viper state over the defaults
func decodeConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// applyConventionalEnv fills secrets from the provider's usual env vars when
// the config leaves them empty
func applyConventionalEnv(cfg *model.Config, getenv func(string) string) {
	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "openai":
			cfg.LLM.APIKey = getenv("OPENAI_API_KEY")
		case "openrouter":
			cfg.LLM.APIKey = getenv("OPENROUTER_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = getenv("ANTHROPIC_API_KEY")
		}
	}
	if cfg.LLM.BaseURL == "" && strings.EqualFold(cfg.LLM.Provider, "ollama") {
		cfg.LLM.BaseURL = getenv("OLLAMA_BASE_URL")
	}

	switch strings.ToLower(cfg.Search.Provider) {
	case "google", "":
		if cfg.Search.APIKey == "" {
			cfg.Search.APIKey = getenv("GOOGLE_SEARCH_API_KEY")
		}
		if cfg.Search.EngineID == "" {
			cfg.Search.EngineID = getenv("GOOGLE_SEARCH_ENGINE_ID")
		}
	case "brave":
		if cfg.Search.APIKey == "" {
			cfg.Search.APIKey = getenv("BRAVE_SEARCH_API_KEY")
		}
	}

	if cfg.HTTP.HTTPProxy == "" {
		cfg.HTTP.HTTPProxy = getenv("HTTP_PROXY")
	}
	if cfg.HTTP.HTTPSProxy == "" {
		cfg.HTTP.HTTPSProxy = getenv("HTTPS_PROXY")
	}
	if cfg.HTTP.NoProxy == "" {
		cfg.HTTP.NoProxy = getenv("NO_PROXY")
	}
}

// redacted returns a copy of cfg with secrets masked for display
func redacted(cfg *model.Config) *model.Config {
	c := *cfg
	c.LLM.APIKey = mask(c.LLM.APIKey)
	c.Search.APIKey = mask(c.Search.APIKey)
	c.Store.PostgresURL = maskURL(c.Store.PostgresURL)
	c.Store.RedisURL = maskURL(c.Store.RedisURL)
	return &c
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}

// maskURL hides the password part of a connection URL
func maskURL(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return raw
	}
	creds, host, ok := strings.Cut(rest, "@")
	if !ok {
		return raw
	}
	user, _, hasPass := strings.Cut(creds, ":")
	if !hasPass {
		return raw
	}
	return scheme + "://" + user + ":****@" + host
}
