package groups

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/groupscope/dashboard/internal/airtable"
	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyPrefix  = "groupscope:groups:view:"
	allViewsKey     = "*"
	scanBatchSize   = 100
	defaultCacheTTL = 5 * time.Minute
)

// Cache keeps full record snapshots per view.
type Cache interface {
	Load(ctx context.Context, view string) ([]airtable.Record, bool, error)
	Store(ctx context.Context, view string, records []airtable.Record) error
	Invalidate(ctx context.Context) error
}

// NopCache never holds anything.
type NopCache struct{}

func (NopCache) Load(context.Context, string) ([]airtable.Record, bool, error) {
	return nil, false, nil
}

func (NopCache) Store(context.Context, string, []airtable.Record) error {
	return nil
}

func (NopCache) Invalidate(context.Context) error {
	return nil
}

// RedisCache stores view snapshots as JSON with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps client. A non-positive ttl falls back to five minutes.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) key(view string) string {
	if view == "" {
		view = airtable.AllRecordsView
	}
	return cacheKeyPrefix + view
}

// Load returns the cached snapshot for view, if any.
func (c *RedisCache) Load(ctx context.Context, view string) ([]airtable.Record, bool, error) {
	raw, err := c.client.Get(ctx, c.key(view)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var records []airtable.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, false, err
	}
	return records, true, nil
}

// Store saves the snapshot for view.
func (c *RedisCache) Store(ctx context.Context, view string, records []airtable.Record) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(view), payload, c.ttl).Err()
}

// Invalidate drops every view snapshot.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	iterator := c.client.Scan(ctx, 0, cacheKeyPrefix+allViewsKey, scanBatchSize).Iterator()
	keys := make([]string, 0, scanBatchSize)
	for iterator.Next(ctx) {
		keys = append(keys, iterator.Val())
	}
	if err := iterator.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
