package cache

import (
	"context"
	"sync"
	"time"

	"kasirharian/backend/internal/domain"
)

// MemoryVATContextCache is the single-instance cache used when redis is not
// configured.
type MemoryVATContextCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     domain.VATContext
	expiresAt time.Time
}

func NewMemoryVATContextCache() *MemoryVATContextCache {
	return &MemoryVATContextCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryVATContextCache) Get(_ context.Context, storeID string) (*domain.VATContext, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[storeID]
	c.mu.RUnlock()
	if !ok || !c.now().Before(entry.expiresAt) {
		return nil, false, nil
	}
	value := entry.value
	return &value, true, nil
}

func (c *MemoryVATContextCache) Set(_ context.Context, storeID string, value *domain.VATContext, ttl time.Duration) error {
	if value == nil || ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[storeID] = memoryEntry{value: *value, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryVATContextCache) Invalidate(_ context.Context, storeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, storeID)
	return nil
}
