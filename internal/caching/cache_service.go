package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"warehousepos/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "wpos:"

type CacheService interface {
	// Product caching
	GetProduct(ctx context.Context, tenantID, productID uuid.UUID) (*models.Product, error)
	SetProduct(ctx context.Context, tenantID uuid.UUID, product *models.Product, ttl time.Duration) error
	DeleteProduct(ctx context.Context, tenantID, productID uuid.UUID) error

	// Portal store lookup
	GetStore(ctx context.Context, slug string) (*models.Store, error)
	SetStore(ctx context.Context, store *models.Store, ttl time.Duration) error
	DeleteStore(ctx context.Context, slug string) error

	// Analytics caching
	GetDashboard(ctx context.Context, tenantID uuid.UUID, key string) (*models.Dashboard, error)
	SetDashboard(ctx context.Context, tenantID uuid.UUID, key string, dashboard *models.Dashboard, ttl time.Duration) error

	// Cache invalidation
	InvalidateTenantCache(ctx context.Context, tenantID uuid.UUID) error

	// Rate limiting
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	SetString(ctx context.Context, key string, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

// NewRedisClient accepts either host:port or a redis:// URL.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		if password != "" {
			opts.Password = password
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), nil
}

func NewRedisCacheService(client *redis.Client) CacheService {
	return &redisCacheService{client: client}
}

func productKey(tenantID, productID uuid.UUID) string {
	return fmt.Sprintf("%sproduct:%s:%s", keyPrefix, tenantID, productID)
}

func storeKey(slug string) string {
	return keyPrefix + "store:" + slug
}

func dashboardKey(tenantID uuid.UUID, key string) string {
	return fmt.Sprintf("%sdashboard:%s:%s", keyPrefix, tenantID, key)
}

func (r *redisCacheService) getJSON(ctx context.Context, key string, dest any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil // cache miss
		}
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (r *redisCacheService) setJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) GetProduct(ctx context.Context, tenantID, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	ok, err := r.getJSON(ctx, productKey(tenantID, productID), &product)
	if !ok {
		return nil, err
	}
	return &product, nil
}

func (r *redisCacheService) SetProduct(ctx context.Context, tenantID uuid.UUID, product *models.Product, ttl time.Duration) error {
	return r.setJSON(ctx, productKey(tenantID, product.ID), product, ttl)
}

func (r *redisCacheService) DeleteProduct(ctx context.Context, tenantID, productID uuid.UUID) error {
	return r.client.Del(ctx, productKey(tenantID, productID)).Err()
}

func (r *redisCacheService) GetStore(ctx context.Context, slug string) (*models.Store, error) {
	var store models.Store
	ok, err := r.getJSON(ctx, storeKey(slug), &store)
	if !ok {
		return nil, err
	}
	return &store, nil
}

func (r *redisCacheService) SetStore(ctx context.Context, store *models.Store, ttl time.Duration) error {
	return r.setJSON(ctx, storeKey(store.Slug), store, ttl)
}

func (r *redisCacheService) DeleteStore(ctx context.Context, slug string) error {
	return r.client.Del(ctx, storeKey(slug)).Err()
}

func (r *redisCacheService) GetDashboard(ctx context.Context, tenantID uuid.UUID, key string) (*models.Dashboard, error) {
	var d models.Dashboard
	ok, err := r.getJSON(ctx, dashboardKey(tenantID, key), &d)
	if !ok {
		return nil, err
	}
	return &d, nil
}

func (r *redisCacheService) SetDashboard(ctx context.Context, tenantID uuid.UUID, key string, dashboard *models.Dashboard, ttl time.Duration) error {
	return r.setJSON(ctx, dashboardKey(tenantID, key), dashboard, ttl)
}

// InvalidateTenantCache drops every product and dashboard entry of a tenant.
func (r *redisCacheService) InvalidateTenantCache(ctx context.Context, tenantID uuid.UUID) error {
	for _, pattern := range []string{
		fmt.Sprintf("%sproduct:%s:*", keyPrefix, tenantID),
		fmt.Sprintf("%sdashboard:%s:*", keyPrefix, tenantID),
	} {
		iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsRateLimited counts one hit against key and reports whether the count is now above limit.
// The window starts at the first hit.
func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	cacheKey := keyPrefix + "ratelimit:" + key
	count, err := r.client.Incr(ctx, cacheKey).Result()
	if err != nil {
		return true, err
	}

	if count == 1 {
		if err := r.client.Expire(ctx, cacheKey, window).Err(); err != nil {
			return true, err
		}
	}

	return count > int64(limit), nil
}

func (r *redisCacheService) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, ttl).Result()
}

func (r *redisCacheService) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisCacheService) GetString(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil // cache miss
		}
		return "", err
	}
	return val, nil
}

func (r *redisCacheService) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
