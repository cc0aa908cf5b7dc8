package model

import "time"

// Config is the complete claimcheck configuration
type Config struct {
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Search       SearchConfig       `yaml:"search" mapstructure:"search"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Analysis     AnalysisConfig     `yaml:"analysis" mapstructure:"analysis"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Enrich       EnrichConfig       `yaml:"enrich" mapstructure:"enrich"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// HTTPConfig holds outbound HTTP settings shared by all external calls
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"` // Per external call
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// SearchConfig selects and configures the web search provider
type SearchConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"` // google, brave
	APIKey        string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	EngineID      string `yaml:"engine_id,omitempty" mapstructure:"engine_id"` // Google Programmable Search "cx"
	BaseURL       string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	TargetResults int    `yaml:"target_results" mapstructure:"target_results"`
	Extended      bool   `yaml:"extended" mapstructure:"extended"` // Add suffix query variants
}

// LLMConfig selects and configures the language model provider
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // openai, openrouter, anthropic, ollama
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`
}

// AnalysisConfig tunes the claim analyzer and display post-processing
type AnalysisConfig struct {
	Batches          int      `yaml:"batches" mapstructure:"batches"`
	SnippetMaxChars  int      `yaml:"snippet_max_chars" mapstructure:"snippet_max_chars"`
	DisplayPerStance int      `yaml:"display_per_stance" mapstructure:"display_per_stance"`
	Languages        []string `yaml:"languages" mapstructure:"languages"` // Summary translation targets
}

// CacheConfig configures the result cache
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL           time.Duration `yaml:"ttl" mapstructure:"ttl"`
	MemoryTTL     time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"` // 0 = bootstrap sweep only
}

// StoreConfig selects the durable store behind the cache
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // disk, postgres, redis
	Dir         string `yaml:"dir,omitempty" mapstructure:"dir"`
	PostgresURL string `yaml:"postgres_url,omitempty" mapstructure:"postgres_url"`
	RedisURL    string `yaml:"redis_url,omitempty" mapstructure:"redis_url"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	BodyLimit       string        `yaml:"body_limit" mapstructure:"body_limit"`
	ReadinessCache  time.Duration `yaml:"readiness_cache" mapstructure:"readiness_cache"` // How long /readyz reuses a provider check
}

// ConcurrencyConfig bounds parallel work
type ConcurrencyConfig struct {
	SearchWorkers int `yaml:"search_workers" mapstructure:"search_workers"` // Parallel page fetches
	ClaimWorkers  int `yaml:"claim_workers" mapstructure:"claim_workers"`   // Parallel claims in batch mode
}

// RateLimitingConfig holds per-host outbound rate limits
type RateLimitingConfig struct {
	RequestsPerSecond float64      `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int          `yaml:"burst_size" mapstructure:"burst_size"`
	Domains           []DomainRate `yaml:"domains,omitempty" mapstructure:"domains"` // Per-host overrides
}

// DomainRate overrides the default rate for one host. A list rather than a
// map because viper splits map keys on dots.
type DomainRate struct {
	Host              string  `yaml:"host" mapstructure:"host"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst,omitempty" mapstructure:"burst"`
}

// EnrichConfig controls optional page fetching to extend short snippets
type EnrichConfig struct {
	Enabled       bool `yaml:"enabled" mapstructure:"enabled"`
	MaxSources    int  `yaml:"max_sources" mapstructure:"max_sources"`
	MinSnippet    int  `yaml:"min_snippet" mapstructure:"min_snippet"` // Enrich snippets shorter than this
	RespectRobots bool `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// OutputConfig controls CLI output
type OutputConfig struct {
	Verbose  bool   `yaml:"verbose" mapstructure:"verbose"`
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	Language string `yaml:"language,omitempty" mapstructure:"language"` // Preferred summary language
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "claimcheck/0.1 (+https://github.com/ppiankov/claimcheck)",
			MaxBodyBytes: 2_000_000,
		},
		Search: SearchConfig{
			Provider:      "google",
			TargetResults: 100,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Timeout:     30,
			MaxTokens:   4000,
			Temperature: 0.2,
		},
		Analysis: AnalysisConfig{
			Batches:          5,
			SnippetMaxChars:  500,
			DisplayPerStance: 10,
			Languages:        []string{"es", "fr", "de", "ja", "zh"},
		},
		Cache: CacheConfig{
			Enabled:   true,
			TTL:       7 * 24 * time.Hour,
			MemoryTTL: 10 * time.Minute,
		},
		Store: StoreConfig{
			Driver: "disk",
			Dir:    "~/.claimcheck/cache",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			BodyLimit:       "16K",
			ReadinessCache:  30 * time.Second,
		},
		Concurrency: ConcurrencyConfig{
			SearchWorkers: 10,
			ClaimWorkers:  2,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 10,
			BurstSize:         10,
		},
		Enrich: EnrichConfig{
			Enabled:       false,
			MaxSources:    10,
			MinSnippet:    120,
			RespectRobots: true,
		},
		Output: OutputConfig{
			LogLevel: "info",
		},
	}
}
