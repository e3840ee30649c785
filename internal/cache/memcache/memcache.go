// Package memcache is an in-process cache.BytesCache used when no Redis
// is configured. Entries are not shared between processes.
package memcache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

type Cache struct {
	items *ttlcache.Cache[string, entry]
	now   func() time.Time
}

func New() *Cache {
	return NewWithClock(time.Now)
}

// NewWithClock checks expiry against now in addition to the TTL ttlcache
// tracks on the wall clock.
func NewWithClock(now func() time.Time) *Cache {
	return &Cache{
		items: ttlcache.New[string, entry](ttlcache.WithDisableTouchOnHit[string, entry]()),
		now:   now,
	}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	item := c.items.Get(key)
	if item == nil {
		return nil, false, nil
	}
	e := item.Value()
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.items.Delete(key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

// Set stores value; a non-positive ttl never expires.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: append([]byte(nil), value...)}
	libTTL := ttlcache.NoTTL
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
		libTTL = ttl
	}
	c.items.Set(key, e, libTTL)
	return nil
}

func (c *Cache) Del(_ context.Context, key string) error {
	c.items.Delete(key)
	return nil
}

func (c *Cache) Len() int {
	return c.items.Len()
}
