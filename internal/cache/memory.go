package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/claimcheck/internal/model"
)

// MemoryLayer is a short-lived in-process front for the durable store,
// keyed by normalized claim text
type MemoryLayer struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// NewMemoryLayer creates a memory layer holding entries for at most ttl
func NewMemoryLayer(ttl time.Duration) *MemoryLayer {
	return &MemoryLayer{
		cache: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// Get returns the entry cached under key
func (m *MemoryLayer) Get(key string) (*model.CacheEntry, bool) {
	if val, found := m.cache.Get(key); found {
		return val.(*model.CacheEntry), true
	}
	return nil, false
}

// Set caches entry, expiring no later than remaining
func (m *MemoryLayer) Set(entry *model.CacheEntry, remaining time.Duration) {
	ttl := m.ttl
	if remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return
	}
	m.cache.Set(entry.Key, entry, ttl)
}

// Flush drops every entry
func (m *MemoryLayer) Flush() {
	m.cache.Flush()
}

// Len reports the number of cached entries, including expired ones not yet
// cleaned up
func (m *MemoryLayer) Len() int {
	return m.cache.ItemCount()
}
