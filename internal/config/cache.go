package config

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Fresh reports whether a value loaded at loadedAt may still be served at now.
type Fresh func(loadedAt, now time.Time) bool

// TTL returns a Fresh comparator that accepts values younger than ttl.
func TTL(ttl time.Duration) Fresh {
	return func(loadedAt, now time.Time) bool {
		return now.Sub(loadedAt) < ttl
	}
}

type cacheEntry struct {
	cfg      *Config
	loadedAt time.Time
}

// Cache serves a loaded Config to concurrent readers and reloads it when the
// freshness comparator rejects the current snapshot. Snapshots are replaced,
// never mutated; readers holding an older *Config keep a consistent view.
type Cache struct {
	load  func() (*Config, error)
	fresh Fresh
	now   func() time.Time

	current atomic.Pointer[cacheEntry]
	reload  sync.Mutex
}

// NewCache constructs a cache around load using the given comparator. A nil
// comparator uses a five second TTL.
func NewCache(load func() (*Config, error), fresh Fresh) *Cache {
	if fresh == nil {
		fresh = TTL(5 * time.Second)
	}
	return &Cache{load: load, fresh: fresh, now: time.Now}
}

// Get returns the cached config, reloading it when stale. When a reload fails
// and an older snapshot exists, the stale snapshot is returned.
func (c *Cache) Get() (*Config, error) {
	if c == nil || c.load == nil {
		return nil, errors.New("config cache not initialized")
	}
	if entry := c.current.Load(); entry != nil && c.fresh(entry.loadedAt, c.now()) {
		return entry.cfg, nil
	}

	c.reload.Lock()
	defer c.reload.Unlock()

	entry := c.current.Load()
	if entry != nil && c.fresh(entry.loadedAt, c.now()) {
		return entry.cfg, nil
	}
	cfg, err := c.load()
	if err != nil {
		if entry != nil {
			return entry.cfg, nil
		}
		return nil, err
	}
	c.current.Store(&cacheEntry{cfg: cfg, loadedAt: c.now()})
	return cfg, nil
}

// Invalidate drops the current snapshot so the next Get reloads.
func (c *Cache) Invalidate() {
	if c == nil {
		return
	}
	c.current.Store(nil)
}
