package cache

import (
	"context"
	"time"

	"pharmapos/terminal/internal/domain"
)

// ProductCache holds product reference data keyed by id and by barcode.
// Misses are not errors.
type ProductCache interface {
	Get(ctx context.Context, key string) (*domain.Product, bool, error)
	Set(ctx context.Context, product domain.Product, ttl time.Duration) error
}

func IDKey(id string) string {
	return "pharmapos:product:id:" + id
}

func BarcodeKey(barcode string) string {
	return "pharmapos:product:barcode:" + barcode
}

type NoopProductCache struct{}

func (NoopProductCache) Get(_ context.Context, _ string) (*domain.Product, bool, error) {
	return nil, false, nil
}

func (NoopProductCache) Set(_ context.Context, _ domain.Product, _ time.Duration) error {
	return nil
}
