// Package cache keeps rendered product pages in Redis so repeated page
// views skip Postgres until the product changes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// ProductPage is the cached payload of a product page.
type ProductPage struct {
	Product domain.Product  `json:"product"`
	Reviews []domain.Review `json:"reviews"`
}

type RedisCache struct {
	client  redis.UniversalClient
	baseTTL time.Duration
}

func NewRedisCache(client redis.UniversalClient, baseTTL time.Duration) *RedisCache {
	if baseTTL <= 0 {
		baseTTL = 15 * time.Minute
	}
	return &RedisCache{client: client, baseTTL: baseTTL}
}

func (r *RedisCache) Get(ctx context.Context, slug string) (*ProductPage, error) {
	data, err := r.client.Get(ctx, pageKey(slug)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var page ProductPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("unmarshal page failed: %w", err)
	}
	return &page, nil
}

// Set stores the page with the base TTL plus up to five minutes of jitter
// so pages cached together do not expire together.
func (r *RedisCache) Set(ctx context.Context, slug string, page *ProductPage) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("marshal page failed: %w", err)
	}
	ttl := r.baseTTL + time.Duration(rand.IntN(5))*time.Minute
	if err := r.client.Set(ctx, pageKey(slug), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Invalidate drops the cached page of slug.
func (r *RedisCache) Invalidate(ctx context.Context, slug string) error {
	if err := r.client.Del(ctx, pageKey(slug)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func pageKey(slug string) string {
	return "product-page:" + slug
}
