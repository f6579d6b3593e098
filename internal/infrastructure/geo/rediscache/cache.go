package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirillkom/complaints-api/internal/core/domain"
)

const (
	DefaultTTL = 24 * time.Hour
	keyPrefix  = "complaints:geo:"
)

// Cache stores resolved locations keyed by client address.
type Cache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func New(client redis.Cmdable, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Open parses a redis:// URL and pings the server.
func Open(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (c *Cache) Get(ctx context.Context, ip string) (*domain.Location, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+ip).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var loc domain.Location
	if err := json.Unmarshal(raw, &loc); err != nil {
		return nil, false, fmt.Errorf("decode cached location: %w", err)
	}
	return &loc, true, nil
}

func (c *Cache) Set(ctx context.Context, ip string, loc domain.Location) error {
	raw, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("encode location: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+ip, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
