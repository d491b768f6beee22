package oracle

import (
	"sync"
	"time"
)

// ttlCache is a symbol-keyed cache with a fixed TTL. It is an explicit
// object constructed per oracle instance rather than a package-level map, so
// two oracles with different TTLs can coexist in one process.
type ttlCache[T any] struct {
	mu    sync.Mutex
	ttl   time.Duration
	nowFn func() time.Time
	data  map[string]cacheEntry[T]
}

type cacheEntry[T any] struct {
	value    T
	storedAt time.Time
}

func newTTLCache[T any](ttl time.Duration, nowFn func() time.Time) *ttlCache[T] {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &ttlCache[T]{ttl: ttl, nowFn: nowFn, data: make(map[string]cacheEntry[T])}
}

func (c *ttlCache[T]) get(key string) (T, bool) {
	var zero T
	if c.ttl <= 0 {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.data[key]
	if !ok {
		return zero, false
	}
	if c.nowFn().Sub(entry.storedAt) > c.ttl {
		delete(c.data, key)
		return zero, false
	}
	return entry.value, true
}

func (c *ttlCache[T]) set(key string, value T) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = cacheEntry[T]{value: value, storedAt: c.nowFn()}
}

func (c *ttlCache[T]) expire(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}
