package cache

import (
	"context"
	"sync"
	"time"

	"pharmapos/terminal/internal/domain"
)

type entry struct {
	product   domain.Product
	expiresAt time.Time
}

// MemoryProductCache is an in-process cache with per-entry expiry.
type MemoryProductCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryProductCache() *MemoryProductCache {
	return &MemoryProductCache{entries: make(map[string]entry), now: time.Now}
}

func (c *MemoryProductCache) Get(_ context.Context, key string) (*domain.Product, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	product := e.product
	return &product, true, nil
}

func (c *MemoryProductCache) Set(_ context.Context, product domain.Product, ttl time.Duration) error {
	if product.ID == "" {
		return nil
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[IDKey(product.ID)] = entry{product: product, expiresAt: expiresAt}
	if product.Barcode != "" {
		c.entries[BarcodeKey(product.Barcode)] = entry{product: product, expiresAt: expiresAt}
	}
	return nil
}
