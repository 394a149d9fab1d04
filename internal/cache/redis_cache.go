package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"kasirharian/backend/internal/domain"
)

type RedisVATContextCache struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisVATContextCacheWithClient(client *redis.Client) *RedisVATContextCache {
	return &RedisVATContextCache{client: client, keyPrefix: "posday:vat:"}
}

func (c *RedisVATContextCache) Get(ctx context.Context, storeID string) (*domain.VATContext, bool, error) {
	val, err := c.client.Get(ctx, c.keyPrefix+storeID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var vctx domain.VATContext
	if err := json.Unmarshal([]byte(val), &vctx); err != nil {
		return nil, false, err
	}
	return &vctx, true, nil
}

func (c *RedisVATContextCache) Set(ctx context.Context, storeID string, value *domain.VATContext, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.keyPrefix+storeID, payload, ttl).Err()
}

func (c *RedisVATContextCache) Invalidate(ctx context.Context, storeID string) error {
	return c.client.Del(ctx, c.keyPrefix+storeID).Err()
}
