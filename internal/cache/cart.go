package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"storefront-api/internal/domain"
)

var (
	ErrCacheMiss = errors.New("cache miss")
	// ErrStale is returned by Set when the owner's carts changed after the
	// generation was read.
	ErrStale = errors.New("cache entry is stale")
)

// generationTTL outlives any in-flight read by a wide margin.
const generationTTL = 24 * time.Hour

// CartCache stores the cart list of a single owner. Readers take the
// owner's Generation before loading from the database and pass it to Set;
// Delete bumps the generation so a list loaded before a write is never stored.
type CartCache interface {
	Get(ctx context.Context, userID string) ([]domain.Cart, error)
	Generation(ctx context.Context, userID string) (int64, error)
	Set(ctx context.Context, userID string, generation int64, carts []domain.Cart) error
	Delete(ctx context.Context, userID string) error
}

type RedisCartCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisCartCache(client *redis.Client, ttl time.Duration) *RedisCartCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisCartCache{client: client, baseTTL: ttl}
}

func (r *RedisCartCache) Get(ctx context.Context, userID string) ([]domain.Cart, error) {
	data, err := r.client.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var carts []domain.Cart
	if err := json.Unmarshal(data, &carts); err != nil {
		return nil, fmt.Errorf("unmarshal carts failed: %w", err)
	}
	return carts, nil
}

func (r *RedisCartCache) Generation(ctx context.Context, userID string) (int64, error) {
	gen, err := r.client.Get(ctx, generationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation failed: %w", err)
	}
	return gen, nil
}

func (r *RedisCartCache) Set(ctx context.Context, userID string, generation int64, carts []domain.Cart) error {
	if carts == nil {
		carts = []domain.Cart{}
	}
	payload, err := json.Marshal(carts)
	if err != nil {
		return fmt.Errorf("marshal carts failed: %w", err)
	}

	// spread expiry so owners cached together do not all miss at once
	ttl := r.baseTTL + time.Duration(rand.Intn(5))*time.Minute
	genKey := generationKey(userID)
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return ErrStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cartKey(userID), payload, ttl)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStale), errors.Is(err, redis.TxFailedErr):
		return ErrStale
	default:
		return fmt.Errorf("redis set failed: %w", err)
	}
}

func (r *RedisCartCache) Delete(ctx context.Context, userID string) error {
	genKey := generationKey(userID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, cartKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// NopCartCache always misses. Used when redis is not configured.
type NopCartCache struct{}

func (NopCartCache) Get(context.Context, string) ([]domain.Cart, error) { return nil, ErrCacheMiss }

func (NopCartCache) Generation(context.Context, string) (int64, error) { return 0, nil }

func (NopCartCache) Set(context.Context, string, int64, []domain.Cart) error { return nil }

func (NopCartCache) Delete(context.Context, string) error { return nil }

func cartKey(userID string) string {
	return fmt.Sprintf("carts:%s", userID)
}

func generationKey(userID string) string {
	return fmt.Sprintf("carts:gen:%s", userID)
}
