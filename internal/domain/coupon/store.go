// internal/domain/coupon/store.go
package coupon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/your-org/storefront/internal/domain/buyer"
)

// Store keeps the coupon a buyer applied until checkout consumes it
type Store interface {
	Save(ctx context.Context, id buyer.Identity, applied AppliedCoupon) error
	Load(ctx context.Context, id buyer.Identity) (*AppliedCoupon, error)
	Delete(ctx context.Context, id buyer.Identity) error
}

// RedisStore is a Store backed by Redis keys with a TTL
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed coupon store
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func storeKey(id buyer.Identity) string {
	return "applied_coupon:" + id.Key()
}

// Save stores the applied coupon as JSON
func (s *RedisStore) Save(ctx context.Context, id buyer.Identity, applied AppliedCoupon) error {
	payload, err := json.Marshal(applied)
	if err != nil {
		return fmt.Errorf("failed to encode applied coupon: %w", err)
	}
	if err := s.client.Set(ctx, storeKey(id), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store applied coupon: %w", err)
	}
	return nil
}

// Load returns the applied coupon, or nil when none is stored
func (s *RedisStore) Load(ctx context.Context, id buyer.Identity) (*AppliedCoupon, error) {
	raw, err := s.client.Get(ctx, storeKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load applied coupon: %w", err)
	}

	var applied AppliedCoupon
	if err := json.Unmarshal(raw, &applied); err != nil {
		return nil, fmt.Errorf("failed to decode applied coupon: %w", err)
	}
	return &applied, nil
}

// Delete forgets the applied coupon
func (s *RedisStore) Delete(ctx context.Context, id buyer.Identity) error {
	if err := s.client.Del(ctx, storeKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete applied coupon: %w", err)
	}
	return nil
}
