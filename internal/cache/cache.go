package cache

import (
	"context"
	"time"

	"kasirharian/backend/internal/domain"
)

// VATContextCache holds the per-store VAT reference data read on every
// price calculation. Writers invalidate after changing configurations.
type VATContextCache interface {
	Get(ctx context.Context, storeID string) (*domain.VATContext, bool, error)
	Set(ctx context.Context, storeID string, value *domain.VATContext, ttl time.Duration) error
	Invalidate(ctx context.Context, storeID string) error
}

type NoopVATContextCache struct{}

func (NoopVATContextCache) Get(_ context.Context, _ string) (*domain.VATContext, bool, error) {
	return nil, false, nil
}

func (NoopVATContextCache) Set(_ context.Context, _ string, _ *domain.VATContext, _ time.Duration) error {
	return nil
}

func (NoopVATContextCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
