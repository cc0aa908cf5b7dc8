package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Store is the durable backing store of the result cache. Entries are
// insert-only; a newer entry for the same key supersedes older ones.
type Store interface {
	// Insert stores a new entry
	Insert(ctx context.Context, entry *model.CacheEntry) error

	// Latest returns the newest entry for key created at or after since
	Latest(ctx context.Context, key string, since time.Time) (*model.CacheEntry, error)

	// ByID returns the entry holding the result with the given id
	ByID(ctx context.Context, id string) (*model.CacheEntry, error)

	// DeleteBefore removes entries created before cutoff
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}

// Normalize returns the lookup key for a claim: lowercased, trimmed and with
// whitespace runs collapsed to single spaces
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// CacheKey hashes a normalized claim into a storage-safe key
func CacheKey(normalized string) string {
	hash := sha256.Sum256([]byte(normalized))
	return "claimcheck:v1:" + hex.EncodeToString(hash[:])
}

// notFound builds the store miss error
func notFound(what string) error {
	return model.NewError(model.KindNotFound, what+" not found", nil)
}

// Open creates the durable store selected by cfg
func Open(ctx context.Context, cfg model.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "disk":
		dir, err := ExpandHome(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return NewDiskStore(dir)

	case "postgres", "postgresql":
		if cfg.PostgresURL == "" {
			return nil, fmt.Errorf("store.postgres_url is required for the postgres driver")
		}
		return NewPostgresStore(ctx, cfg.PostgresURL)

	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("store.redis_url is required for the redis driver")
		}
		return NewRedisStore(ctx, cfg.RedisURL)

	default:
		return nil, fmt.Errorf("unknown store driver: %s (supported: disk, postgres, redis)", cfg.Driver)
	}
}

// ExpandHome resolves a leading "~/" against the user's home directory
func ExpandHome(path string) (string, error) {
	if path == "" {
		path = "~/.claimcheck/cache"
	}
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
