// Package redis keeps completed idempotent responses in Redis so replays skip
// the database.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/harvestline/backend/internal/idempotency"
	"github.com/harvestline/backend/pkg/logger"
)

const (
	// DefaultTTL is how long a completed response stays cached
	DefaultTTL = 24 * time.Hour

	// KeyPrefix is the prefix for cached response keys
	KeyPrefix = "idem:"
)

// Cache is a Redis-backed idempotency.ResponseCache
type Cache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *logger.Logger
}

var _ idempotency.ResponseCache = (*Cache)(nil)

// NewCache creates a response cache; a non-positive ttl uses DefaultTTL
func NewCache(client redis.Cmdable, ttl time.Duration, log *logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger.OrDiscard(log).WithComponent("idempotency_cache"),
	}
}

// NewClient connects to Redis at addr, which is either host:port or a
// redis:// URL
func NewClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}
	if password != "" {
		opts.Password = password
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func cacheKey(req idempotency.Request) string {
	return fmt.Sprintf("%s%s:%s:%s", KeyPrefix, req.UserID, req.Scope, req.Key)
}

// Get returns the cached response for req, or nil on a miss
func (c *Cache) Get(ctx context.Context, req idempotency.Request) (*idempotency.CachedResponse, error) {
	val, err := c.client.Get(ctx, cacheKey(req)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("cache miss", "scope", req.Scope, "user_id", req.UserID)
		return nil, nil
	}
	if err != nil {
		c.logger.Error("cache error", "operation", "get", "scope", req.Scope, "error", err)
		return nil, fmt.Errorf("failed to get cached response: %w", err)
	}

	var cached idempotency.CachedResponse
	if err := json.Unmarshal(val, &cached); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached response: %w", err)
	}

	c.logger.Debug("cache hit", "scope", req.Scope, "user_id", req.UserID)
	return &cached, nil
}

// Set stores a completed response
func (c *Cache) Set(ctx context.Context, req idempotency.Request, resp idempotency.CachedResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(req), data, c.ttl).Err(); err != nil {
		c.logger.Error("cache error", "operation", "set", "scope", req.Scope, "error", err)
		return fmt.Errorf("failed to set cached response: %w", err)
	}
	return nil
}

// Health checks the Redis connection
func (c *Cache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
