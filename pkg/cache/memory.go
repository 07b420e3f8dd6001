package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache is a process-local cache with per-entry TTL.
// Expired entries are dropped lazily on read and by a periodic sweep.
type MemoryCache struct {
	mu         sync.RWMutex
	items      map[string]memoryEntry
	defaultTTL time.Duration
	now        func() time.Time
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewMemoryCache creates a memory cache and starts its sweeper.
func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	mc := &MemoryCache{
		items:      make(map[string]memoryEntry),
		defaultTTL: defaultTTL,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	go mc.sweepLoop(time.Minute)
	return mc
}

func (mc *MemoryCache) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			mc.sweep()
		case <-mc.stop:
			return
		}
	}
}

func (mc *MemoryCache) sweep() int {
	now := mc.now()
	mc.mu.Lock()
	defer mc.mu.Unlock()
	removed := 0
	for k, e := range mc.items {
		if !now.Before(e.expiresAt) {
			delete(mc.items, k)
			removed++
		}
	}
	return removed
}

func (mc *MemoryCache) lookup(key string) (memoryEntry, bool) {
	mc.mu.RLock()
	e, ok := mc.items[key]
	mc.mu.RUnlock()
	if !ok {
		return memoryEntry{}, false
	}
	if !mc.now().Before(e.expiresAt) {
		mc.mu.Lock()
		if cur, still := mc.items[key]; still && cur.expiresAt.Equal(e.expiresAt) {
			delete(mc.items, key)
		}
		mc.mu.Unlock()
		return memoryEntry{}, false
	}
	return e, true
}

func (mc *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := mc.lookup(key)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.data...), nil
}

func (mc *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = mc.defaultTTL
	}
	entry := memoryEntry{
		data:      append([]byte(nil), value...),
		expiresAt: mc.now().Add(ttl),
	}
	mc.mu.Lock()
	mc.items[key] = entry
	mc.mu.Unlock()
	return nil
}

func (mc *MemoryCache) Delete(_ context.Context, key string) error {
	mc.mu.Lock()
	delete(mc.items, key)
	mc.mu.Unlock()
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, key string) (bool, error) {
	_, ok := mc.lookup(key)
	return ok, nil
}

// Len reports the number of stored entries, expired ones included until swept.
func (mc *MemoryCache) Len() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return len(mc.items)
}

func (mc *MemoryCache) Close() error {
	mc.stopOnce.Do(func() { close(mc.stop) })
	return nil
}

func (mc *MemoryCache) Ping(context.Context) error { return nil }
