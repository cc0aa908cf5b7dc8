package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
)

// ResultCache maps normalized claim text to the most recent analysis
// younger than the TTL. Lookups check the memory layer first, then the
// durable store. Stored entries are never mutated.
type ResultCache struct {
	store  Store
	memory *MemoryLayer
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a ResultCache
type Option func(*ResultCache)

// WithMemory puts a memory layer in front of the store
func WithMemory(m *MemoryLayer) Option {
	return func(c *ResultCache) { c.memory = m }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *ResultCache) { c.now = now }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *ResultCache) { c.logger = l }
}

// NewResultCache creates a cache over store with the given freshness window
func NewResultCache(store Store, ttl time.Duration, opts ...Option) *ResultCache {
	c := &ResultCache{
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the freshness window
func (c *ResultCache) TTL() time.Duration {
	return c.ttl
}

// Get returns a copy of the newest fresh result for the claim with Cached
// set. A miss returns an error matching model.ErrNotFound.
func (c *ResultCache) Get(ctx context.Context, claimText string) (*model.AnalysisResult, error) {
	key := Normalize(claimText)
	now := c.now()
	since := now.Add(-c.ttl)

	if c.memory != nil {
		if entry, ok := c.memory.Get(key); ok && !entry.CreatedAt.Before(since) {
			metrics.RecordCacheLookup("memory", "hit")
			return served(entry), nil
		}
		metrics.RecordCacheLookup("memory", "miss")
	}

	entry, err := c.store.Latest(ctx, key, since)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			metrics.RecordCacheLookup("store", "miss")
		} else {
			metrics.RecordCacheLookup("store", "error")
		}
		return nil, err
	}
	metrics.RecordCacheLookup("store", "hit")

	c.remember(entry, entry.CreatedAt.Add(c.ttl).Sub(now))
	return served(entry), nil
}

// Set persists result as a new entry keyed by its normalized claim text.
// The caller's value is copied, so later changes to it do not leak into
// the cache.
func (c *ResultCache) Set(ctx context.Context, result *model.AnalysisResult) error {
	if result == nil || result.ID == "" {
		return fmt.Errorf("result has no id")
	}

	stored := result.Clone()
	stored.Cached = false
	entry := &model.CacheEntry{
		Key:       Normalize(result.ClaimText),
		CreatedAt: c.now().UTC(),
		Result:    stored,
	}
	if err := c.store.Insert(ctx, entry); err != nil {
		return err
	}

	c.remember(entry, c.ttl)
	return nil
}

// GetByID returns a stored result by id regardless of age
func (c *ResultCache) GetByID(ctx context.Context, id string) (*model.AnalysisResult, error) {
	entry, err := c.store.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return served(entry), nil
}

// DeleteExpired removes entries older than the TTL and returns how many
func (c *ResultCache) DeleteExpired(ctx context.Context) (int64, error) {
	deleted, err := c.store.DeleteBefore(ctx, c.now().Add(-c.ttl))
	if err != nil {
		return deleted, fmt.Errorf("delete expired cache entries: %w", err)
	}
	if deleted > 0 {
		metrics.CacheEvictions.Add(float64(deleted))
		c.logger.Info("cache sweep", "deleted", deleted)
	}
	return deleted, nil
}

// StartSweeper runs DeleteExpired every interval until ctx is done
func (c *ResultCache) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := c.DeleteExpired(ctx); err != nil && ctx.Err() == nil {
					c.logger.Warn("cache sweep failed", "error", err)
				}
			}
		}
	}()
}

// Close closes the durable store
func (c *ResultCache) Close() error {
	if c.memory != nil {
		c.memory.Flush()
		metrics.CacheMemoryEntries.Set(0)
	}
	return c.store.Close()
}

// remember puts entry in the memory layer for at most remaining
func (c *ResultCache) remember(entry *model.CacheEntry, remaining time.Duration) {
	if c.memory == nil {
		return
	}
	c.memory.Set(entry, remaining)
	metrics.CacheMemoryEntries.Set(float64(c.memory.Len()))
}

func served(entry *model.CacheEntry) *model.AnalysisResult {
	result := entry.Result.Clone()
	result.Cached = true
	return result
}
