package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/vgcarvalho/techstore-backend/internal/domain"
	"github.com/vgcarvalho/techstore-backend/internal/observability"
	"github.com/vgcarvalho/techstore-backend/internal/repository"
)

// CatalogCache caches product listing pages in redis. Concurrent misses for
// the same page collapse into a single database load via singleflight.
type CatalogCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	group  singleflight.Group
}

func NewCatalogCache(client redis.UniversalClient, prefix string, ttl time.Duration) *CatalogCache {
	return &CatalogCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *CatalogCache) key(input ListProductsInput) string {
	return fmt.Sprintf("%s:list:%s:p%d:s%d", c.prefix, input.Category, input.Page.Page, input.Page.PageSize)
}

func (c *CatalogCache) List(ctx context.Context, input ListProductsInput, load func() (repository.PageResult[domain.Product], error)) (repository.PageResult[domain.Product], error) {
	key := c.key(input)

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var res repository.PageResult[domain.Product]
		if err := json.Unmarshal(raw, &res); err == nil {
			observability.RecordCatalogCacheEvent(ctx, "hit")
			return res, nil
		}
		// Corrupt entry; fall through to a fresh load.
	}
	observability.RecordCatalogCacheEvent(ctx, "miss")

	v, err, _ := c.group.Do(key, func() (any, error) {
		res, err := load()
		if err != nil {
			return nil, err
		}
		if encoded, err := json.Marshal(res); err == nil {
			// Cache write failures only cost the next request a miss.
			if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
				observability.RecordCatalogCacheEvent(ctx, "store_error")
			}
		}
		return res, nil
	})
	if err != nil {
		return repository.PageResult[domain.Product]{}, err
	}
	return v.(repository.PageResult[domain.Product]), nil
}

// Invalidate drops every cached listing page. Admin writes call this so the
// storefront never serves a stale catalog.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+":list:*", 100).Result()
		if err != nil {
			return fmt.Errorf("scanning catalog cache keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("deleting catalog cache keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
