package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Redis key layout
const (
	redisEntryPrefix = "claimcheck:entry:"  // id -> entry JSON
	redisIndexPrefix = "claimcheck:index:"  // cache key hash -> zset of ids by created_at
	redisCreatedSet  = "claimcheck:created" // zset of all ids by created_at
)

// RedisStore keeps entries as JSON strings indexed by per-key sorted sets
// scored by creation time in milliseconds
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects using a redis:// URL
func NewRedisStore(ctx context.Context, rawURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Insert stores the entry and indexes it in one transaction
func (s *RedisStore) Insert(ctx context.Context, entry *model.CacheEntry) error {
	if entry.Result == nil || entry.Result.ID == "" {
		return fmt.Errorf("cache entry has no result id")
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	id := entry.Result.ID
	score := float64(entry.CreatedAt.UnixMilli())
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisEntryPrefix+id, data, 0)
		pipe.ZAdd(ctx, indexKey(entry.Key), redis.Z{Score: score, Member: id})
		pipe.ZAdd(ctx, redisCreatedSet, redis.Z{Score: score, Member: id})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store entry: %w", err)
	}
	return nil
}

// Latest returns the newest entry for key created at or after since
func (s *RedisStore) Latest(ctx context.Context, key string, since time.Time) (*model.CacheEntry, error) {
	ids, err := s.client.ZRevRangeByScore(ctx, indexKey(key), &redis.ZRangeBy{
		Min:   strconv.FormatInt(since.UnixMilli(), 10),
		Max:   "+inf",
		Count: 1,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}
	if len(ids) == 0 {
		return nil, notFound("cache entry")
	}
	return s.get(ctx, ids[0], "cache entry")
}

// ByID returns the entry holding the result with the given id
func (s *RedisStore) ByID(ctx context.Context, id string) (*model.CacheEntry, error) {
	return s.get(ctx, id, "analysis")
}

// DeleteBefore removes entries created before cutoff from all indexes
func (s *RedisStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ids, err := s.client.ZRangeByScore(ctx, redisCreatedSet, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to query expired entries: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := s.client.Pipeline()
	for _, id := range ids {
		entry, err := s.get(ctx, id, "cache entry")
		if err == nil {
			pipe.ZRem(ctx, indexKey(entry.Key), id)
		} else if !errors.Is(err, model.ErrNotFound) {
			return 0, err
		}
		pipe.Del(ctx, redisEntryPrefix+id)
		pipe.ZRem(ctx, redisCreatedSet, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to delete expired entries: %w", err)
	}
	return int64(len(ids)), nil
}

// Close closes the client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) get(ctx context.Context, id, what string) (*model.CacheEntry, error) {
	data, err := s.client.Get(ctx, redisEntryPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(what)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	var entry model.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return &entry, nil
}

func indexKey(key string) string {
	return redisIndexPrefix + CacheKey(key)[len("claimcheck:v1:"):]
}
