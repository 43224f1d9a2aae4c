package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmapos/terminal/internal/domain"
)

var product = domain.Product{ID: "p1", Name: "Paracetamol 500mg", Barcode: "899100", UnitPrice: decimal.NewFromInt(5000)}

func TestNoopCacheAlwaysMisses(t *testing.T) {
	var c NoopProductCache
	require.NoError(t, c.Set(context.Background(), product, time.Minute))
	got, ok, err := c.Get(context.Background(), IDKey("p1"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestMemoryCacheByIDAndBarcode(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryProductCache()
	require.NoError(t, c.Set(ctx, product, time.Minute))

	got, ok, err := c.Get(ctx, IDKey("p1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Paracetamol 500mg", got.Name)

	got, ok, err = c.Get(ctx, BarcodeKey("899100"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.UnitPrice.Equal(decimal.NewFromInt(5000)))
}

func TestMemoryCacheExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	c := NewMemoryProductCache()
	c.now = func() time.Time { return now }
	require.NoError(t, c.Set(ctx, product, time.Minute))

	now = now.Add(2 * time.Minute)
	_, ok, err := c.Get(ctx, IDKey("p1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisProductCache(t *testing.T) {
	addr := os.Getenv("PHARMAPOS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set PHARMAPOS_TEST_REDIS_ADDR to run redis integration test")
	}
	ctx := context.Background()
	c := NewRedisProductCache(addr, os.Getenv("PHARMAPOS_TEST_REDIS_PASSWORD"), 0)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Ping(ctx))

	require.NoError(t, c.Set(ctx, product, time.Minute))
	got, ok, err := c.Get(ctx, BarcodeKey("899100"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "p1", got.ID)
}
