package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheVersionKey = "activity:version"

// Cache wraps Redis based caching of activity feeds with versioning controls.
// Every write bumps the version, invalidating all cached feeds at once.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func (c *Cache) feedKey(ctx context.Context, userID int64, limit int) (string, error) {
	ver, err := c.version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("activity:feed:%d:%d:%d", userID, limit, ver), nil
}

// FetchFeed loads a cached feed or populates it using the loader.
func (c *Cache) FetchFeed(ctx context.Context, userID int64, limit int, loader func(context.Context) ([]Entry, error)) ([]Entry, error) {
	if loader == nil {
		return nil, errors.New("activity: cache loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	key, err := c.feedKey(ctx, userID, limit)
	if err != nil {
		return loader(ctx)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var entries []Entry
		if err := json.Unmarshal(payload, &entries); err == nil {
			return entries, nil
		}
	} else if err != redis.Nil {
		return loader(ctx)
	}

	entries, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return entries, nil
	}
	_ = c.client.Set(ctx, key, raw, c.ttl).Err()
	return entries, nil
}

// Bump invalidates all cached feeds by incrementing the global version.
func (c *Cache) Bump(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Incr(ctx, cacheVersionKey).Err()
}
