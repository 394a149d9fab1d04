package cache

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasirharian/backend/internal/domain"
)

func TestMemoryCacheExpiresAndInvalidates(t *testing.T) {
	c := NewMemoryVATContextCache()
	now := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	rate := decimal.NewFromInt(11)
	require.NoError(t, c.Set(ctx, "main-store", &domain.VATContext{StoreID: "main-store", DefaultVATRate: &rate}, time.Minute))

	got, ok, err := c.Get(ctx, "main-store")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.DefaultVATRate.Equal(rate))

	now = now.Add(2 * time.Minute)
	_, ok, _ = c.Get(ctx, "main-store")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "main-store", &domain.VATContext{StoreID: "main-store"}, time.Minute))
	require.NoError(t, c.Invalidate(ctx, "main-store"))
	_, ok, _ = c.Get(ctx, "main-store")
	assert.False(t, ok)
}

func TestNoopCacheNeverHits(t *testing.T) {
	var c VATContextCache = NoopVATContextCache{}
	require.NoError(t, c.Set(context.Background(), "s", &domain.VATContext{}, time.Minute))
	_, ok, err := c.Get(context.Background(), "s")
	assert.NoError(t, err)
	assert.False(t, ok)
}
