package version

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/vikrant31/HCUPtools/internal/platform/cache"
	"github.com/vikrant31/HCUPtools/internal/platform/clock"
)

// Cache stores resolved tags and enumerated version lists with the time they
// were stored. Freshness policy lives in the Resolver; the cache only
// records timestamps.
type Cache interface {
	GetTag(key string) (Tag, time.Time, bool)
	PutTag(key string, tag Tag)
	GetList(key string) ([]Tag, time.Time, bool)
	PutList(key string, tags []Tag)
	Delete(key string)
}

type memTagEntry struct {
	tag      Tag
	storedAt time.Time
}

type memListEntry struct {
	tags     []Tag
	storedAt time.Time
}

// MemoryCache is the default in-process Cache, guarded by a mutex so that
// concurrent resolvers can share it.
type MemoryCache struct {
	mu    sync.Mutex
	clock clock.Clock
	tags  map[string]memTagEntry
	lists map[string]memListEntry
}

// NewMemoryCache creates a MemoryCache. A nil clk uses the system clock.
func NewMemoryCache(clk clock.Clock) *MemoryCache {
	if clk == nil {
		clk = clock.System{}
	}
	return &MemoryCache{
		clock: clk,
		tags:  make(map[string]memTagEntry),
		lists: make(map[string]memListEntry),
	}
}

// GetTag implements Cache.
func (c *MemoryCache) GetTag(key string) (Tag, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.tags[key]
	return e.tag, e.storedAt, ok
}

// PutTag implements Cache.
func (c *MemoryCache) PutTag(key string, tag Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags[key] = memTagEntry{tag: tag, storedAt: c.clock.Now()}
}

// GetList implements Cache.
func (c *MemoryCache) GetList(key string) ([]Tag, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lists[key]
	if !ok {
		return nil, time.Time{}, false
	}
	out := make([]Tag, len(e.tags))
	copy(out, e.tags)
	return out, e.storedAt, true
}

// PutList implements Cache.
func (c *MemoryCache) PutList(key string, tags []Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := make([]Tag, len(tags))
	copy(stored, tags)
	c.lists[key] = memListEntry{tags: stored, storedAt: c.clock.Now()}
}

// Delete implements Cache.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tags, key)
	delete(c.lists, key)
}

// StoreCache adapts a cache.Store (filesystem or Redis) to the Cache
// interface, so resolved versions survive process restarts. Entries are
// JSON-encoded; the store's own timestamp carries the stored-at time.
type StoreCache struct {
	store cache.Store
}

// NewStoreCache wraps a byte store as a version cache.
func NewStoreCache(store cache.Store) *StoreCache {
	return &StoreCache{store: store}
}

// GetTag implements Cache.
func (c *StoreCache) GetTag(key string) (Tag, time.Time, bool) {
	data, at, ok := c.store.Get(context.Background(), key)
	if !ok {
		return Tag{}, time.Time{}, false
	}
	var t Tag
	if err := json.Unmarshal(data, &t); err != nil {
		return Tag{}, time.Time{}, false
	}
	return t, at, true
}

// PutTag implements Cache.
func (c *StoreCache) PutTag(key string, tag Tag) {
	if data, err := json.Marshal(tag); err == nil {
		_ = c.store.Put(context.Background(), key, data)
	}
}

// GetList implements Cache.
func (c *StoreCache) GetList(key string) ([]Tag, time.Time, bool) {
	data, at, ok := c.store.Get(context.Background(), key)
	if !ok {
		return nil, time.Time{}, false
	}
	var tags []Tag
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil, time.Time{}, false
	}
	return tags, at, true
}

// PutList implements Cache.
func (c *StoreCache) PutList(key string, tags []Tag) {
	if data, err := json.Marshal(tags); err == nil {
		_ = c.store.Put(context.Background(), key, data)
	}
}

// Delete implements Cache.
func (c *StoreCache) Delete(key string) {
	_ = c.store.Delete(context.Background(), key)
}
