package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/claimcheck/internal/analyze"
	"github.com/ppiankov/claimcheck/internal/cache"
	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/pipeline"
	"github.com/ppiankov/claimcheck/internal/retrieve"
	"github.com/ppiankov/claimcheck/internal/search"
	"github.com/ppiankov/claimcheck/internal/util"
	"github.com/ppiankov/claimcheck/internal/worker"
)

// app holds the wired components for one command invocation
type app struct {
	cfg      *model.Config
	logger   *slog.Logger
	cache    *cache.ResultCache // nil when caching is disabled
	llm      llm.Provider
	pipeline *pipeline.Pipeline
}

// buildApp wires search, retrieval, analysis and the cache from cfg
func buildApp(ctx context.Context, cfg *model.Config, logger *slog.Logger) (*app, error) {
	limiter := newLimiter(cfg.RateLimiting)

	searchProvider, err := search.NewProvider(search.Config{
		Provider:   cfg.Search.Provider,
		APIKey:     cfg.Search.APIKey,
		EngineID:   cfg.Search.EngineID,
		BaseURL:    cfg.Search.BaseURL,
		Timeout:    cfg.HTTP.Timeout,
		UserAgent:  cfg.HTTP.UserAgent,
		HTTPProxy:  cfg.HTTP.HTTPProxy,
		HTTPSProxy: cfg.HTTP.HTTPSProxy,
		NoProxy:    cfg.HTTP.NoProxy,
		Limiter:    limiter,
	})
	if err != nil {
		return nil, fmt.Errorf("search provider: %w", err)
	}

	var enricher *retrieve.Enricher
	if cfg.Enrich.Enabled {
		fetcher := retrieve.NewFetcher(retrieve.FetcherConfig{
			Timeout:    cfg.HTTP.Timeout,
			UserAgent:  cfg.HTTP.UserAgent,
			MaxBytes:   cfg.HTTP.MaxBodyBytes,
			HTTPProxy:  cfg.HTTP.HTTPProxy,
			HTTPSProxy: cfg.HTTP.HTTPSProxy,
			NoProxy:    cfg.HTTP.NoProxy,
		})
		var robots *util.RobotsChecker
		if cfg.Enrich.RespectRobots {
			robots = util.NewRobotsChecker(fetcher.HTTPClient(), cfg.HTTP.UserAgent)
		}
		enricher = retrieve.NewEnricher(fetcher, robots, limiter, retrieve.EnrichConfig{
			MaxSources:    cfg.Enrich.MaxSources,
			MinSnippet:    cfg.Enrich.MinSnippet,
			MaxChars:      cfg.Analysis.SnippetMaxChars,
			RespectRobots: cfg.Enrich.RespectRobots,
			Workers:       cfg.Concurrency.SearchWorkers,
		}, logger)
	}

	retriever := retrieve.New(searchProvider, retrieve.Config{
		Workers:         cfg.Concurrency.SearchWorkers,
		SnippetMaxChars: cfg.Analysis.SnippetMaxChars,
	}, enricher, logger)

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg))
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	analyzer := analyze.New(provider, analyze.ConfigFromModel(cfg), logger)

	a := &app{cfg: cfg, logger: logger, llm: provider}

	// A nil *ResultCache must not become a non-nil interface value
	var results pipeline.ResultCache
	if cfg.Cache.Enabled {
		rc, err := openCache(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		a.cache = rc
		results = rc
	}

	a.pipeline = pipeline.New(retriever, analyzer, results, pipeline.ConfigFromModel(cfg), logger)
	return a, nil
}

// newLimiter builds the shared per-host limiter with configured overrides
func newLimiter(cfg model.RateLimitingConfig) *worker.Limiter {
	limiter := worker.NewLimiter(cfg.RequestsPerSecond, cfg.BurstSize)
	for _, d := range cfg.Domains {
		if d.Host == "" {
			continue
		}
		limiter.SetDomainRate(d.Host, d.RequestsPerSecond, d.Burst)
	}
	return limiter
}

// openCache opens the configured durable store behind a result cache
func openCache(ctx context.Context, cfg *model.Config, logger *slog.Logger) (*cache.ResultCache, error) {
	store, err := cache.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}

	opts := []cache.Option{cache.WithLogger(logger)}
	if cfg.Cache.MemoryTTL > 0 {
		opts = append(opts, cache.WithMemory(cache.NewMemoryLayer(cfg.Cache.MemoryTTL)))
	}
	return cache.NewResultCache(store, cfg.Cache.TTL, opts...), nil
}

// sweep runs the startup expiry pass; failures are logged only
func (a *app) sweep(ctx context.Context) {
	if a.cache == nil {
		return
	}
	deleted, err := a.cache.DeleteExpired(ctx)
	if err != nil {
		a.logger.Warn("startup cache sweep failed", "error", err)
		return
	}
	a.logger.Debug("startup cache sweep", "deleted", deleted)
}

// checkLLM checks the language model provider once, bounded by the
// configured call timeout, and logs when it is unreachable
func (a *app) checkLLM(ctx context.Context) bool {
	timeout := time.Duration(a.cfg.LLM.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if !a.llm.IsAvailable(ctx) {
		a.logger.Warn("language model provider unavailable", "provider", a.llm.Name())
		return false
	}
	return true
}

// Close releases the cache store
func (a *app) Close() error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Close()
}
