package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fjod/farmfresh/internal/domain"
	"github.com/redis/go-redis/v9"
)

const generationKey = "catalog:gen"

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 10 * time.Minute,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisCache) GetProducts(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, int64, error) {
	gen, err := r.generation(ctx)
	if err != nil {
		return nil, 0, err
	}

	var products []*domain.Product
	if err := r.get(ctx, productsKey(gen, filter), &products); err != nil {
		return nil, gen, err
	}
	return products, gen, nil
}

func (r *RedisCache) SetProducts(
	ctx context.Context,
	gen int64,
	filter domain.ProductFilter,
	products []*domain.Product) error {

	return r.set(ctx, productsKey(gen, filter), products)
}

func (r *RedisCache) GetCategories(ctx context.Context) ([]*domain.Category, int64, error) {
	gen, err := r.generation(ctx)
	if err != nil {
		return nil, 0, err
	}

	var categories []*domain.Category
	if err := r.get(ctx, categoriesKey(gen), &categories); err != nil {
		return nil, gen, err
	}
	return categories, gen, nil
}

func (r *RedisCache) SetCategories(ctx context.Context, gen int64, categories []*domain.Category) error {
	return r.set(ctx, categoriesKey(gen), categories)
}

// Invalidate bumps the generation; stale keys expire on their own TTL.
func (r *RedisCache) Invalidate(ctx context.Context) error {
	if err := r.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("redis incr failed: %w", err)
	}
	return nil
}

func (r *RedisCache) generation(ctx context.Context) (int64, error) {
	gen, err := r.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation failed: %w", err)
	}
	return gen, nil
}

func (r *RedisCache) get(ctx context.Context, key string, dst any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return nil
}

func (r *RedisCache) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}

	jitter := time.Duration(rand.Intn(120)) * time.Second
	ttl := r.baseTTL + jitter
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func productsKey(gen int64, filter domain.ProductFilter) string {
	return fmt.Sprintf("catalog:%d:products:%016x", gen, xxhash.Sum64String(filterFingerprint(filter)))
}

func categoriesKey(gen int64) string {
	return fmt.Sprintf("catalog:%d:categories", gen)
}

// filterFingerprint maps equivalent filters to the same string: search matching is
// case-insensitive and category order does not matter.
func filterFingerprint(filter domain.ProductFilter) string {
	categories := slices.Clone(filter.Categories)
	slices.Sort(categories)
	categories = slices.Compact(categories)
	return strings.ToLower(strings.TrimSpace(filter.Search)) + "\x00" + strings.Join(categories, "\x1f")
}
