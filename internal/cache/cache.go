// Package cache wraps an optional redis instance. The only consumer today is
// the webhook relay, which marks processed message IDs so redelivered events
// are not answered twice. With no cache URL configured every operation is a
// no-op and the relay treats all events as fresh.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is nil-safe: a nil *Cache behaves as an always-miss store.
type Cache struct {
	client *redis.Client
	log    *slog.Logger
}

// New connects to the redis at url. An empty url returns nil, which callers
// use as-is.
func New(ctx context.Context, log *slog.Logger, url string) (*Cache, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse cache url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping cache: %w", err)
	}
	return &Cache{
		client: client,
		log:    log.With(slog.String("service", "cache")),
	}, nil
}

// MarkSeen records key with a TTL. Returns true when the key was newly set,
// false when it already existed (a redelivery).
func (c *Cache) MarkSeen(ctx context.Context, key string, ttl time.Duration) bool {
	if c == nil {
		return true
	}
	ok, err := c.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		// Cache trouble must not block message handling.
		c.log.Warn("cache setnx failed", slog.String("key", key), slog.String("error", err.Error()))
		return true
	}
	return ok
}

// Close releases the underlying connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
