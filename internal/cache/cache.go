package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ballotbeat/backend/internal/store"
)

// Cache is a read-through TTL cache in front of the snapshot store's Latest.
// It holds one pre-serialized copy of the full result tree; there is no
// per-contest key. Writes never invalidate it, so a fresh snapshot can stay
// invisible to readers for up to one TTL.
type Cache struct {
	store store.Store
	ttl   time.Duration
	now   func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	data      []byte
	updatedAt time.Time
	expiresAt time.Time
}

func New(s store.Store, ttl time.Duration) *Cache {
	return &Cache{store: s, ttl: ttl, now: time.Now}
}

// Latest returns the cached serialized snapshot, refreshing it from the store
// when the TTL has lapsed. Concurrent misses collapse into a single store
// query. Returns nil bytes (and no error) when no snapshot has ever been
// written; store errors propagate and nothing gets cached.
func (c *Cache) Latest(ctx context.Context) ([]byte, error) {
	if data := c.fresh(); data != nil {
		return data, nil
	}

	v, err, _ := c.group.Do("latest", func() (any, error) {
		// A queued caller may find the entry already refreshed.
		if data := c.fresh(); data != nil {
			return data, nil
		}

		view, err := c.store.Latest(ctx)
		if err != nil {
			return nil, err
		}
		if view == nil {
			return []byte(nil), nil
		}

		data, err := json.Marshal(view)
		if err != nil {
			return nil, err
		}
		c.set(data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Invalidate drops the cached entry. Not used on the write path; staleness is
// bounded by the TTL alone.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.data = nil
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

// UpdatedAt returns the last time the cache was refreshed from the store.
func (c *Cache) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}

func (c *Cache) fresh() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil || c.now().After(c.expiresAt) {
		return nil
	}
	out := make([]byte, len(c.data))
	copy(out, c.data)
	return out
}

func (c *Cache) set(data []byte) {
	c.mu.Lock()
	c.data = make([]byte, len(data))
	copy(c.data, data)
	c.updatedAt = c.now()
	c.expiresAt = c.updatedAt.Add(c.ttl)
	c.mu.Unlock()
}
