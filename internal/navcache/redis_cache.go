// Package navcache caches per-community sidebar snapshots in Redis.
package navcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"agora/api/internal/reorder"
)

const defaultTTL = 5 * time.Minute

// RedisCache stores the snapshot a GET of the sidebar returns. Entries are
// dropped on every write to the community's groups or items.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to redisURL and checks the connection.
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisCacheWithClient(client, ttl), nil
}

func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisCache{
		client: client,
		prefix: "nav:snapshot:",
		ttl:    ttl,
	}
}

func (c *RedisCache) key(communityID string) string {
	return c.prefix + communityID
}

// Get returns the cached snapshot; ok is false on a miss.
func (c *RedisCache) Get(ctx context.Context, communityID string) (reorder.Snapshot, bool, error) {
	raw, err := c.client.Get(ctx, c.key(communityID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return reorder.Snapshot{}, false, nil
	}
	if err != nil {
		return reorder.Snapshot{}, false, fmt.Errorf("get nav snapshot: %w", err)
	}

	var snapshot reorder.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		// A corrupt entry is a miss; the caller rebuilds and overwrites it.
		return reorder.Snapshot{}, false, nil
	}
	return snapshot, true, nil
}

func (c *RedisCache) Set(ctx context.Context, communityID string, snapshot reorder.Snapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal nav snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.key(communityID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("save nav snapshot: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, communityID string) error {
	if err := c.client.Del(ctx, c.key(communityID)).Err(); err != nil {
		return fmt.Errorf("invalidate nav snapshot: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
