package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"noxchatAPI/internal/user"
)

const keyPrefix = "user:public:"

// ProfileCache keeps users looked up by public id in Redis.
type ProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProfileCache(client *redis.Client, ttl time.Duration) *ProfileCache {
	return &ProfileCache{client: client, ttl: ttl}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func key(publicID string) string {
	return keyPrefix + publicID
}

// Get returns the cached user, or nil on a miss.
func (c *ProfileCache) Get(ctx context.Context, publicID string) (*user.User, error) {
	raw, err := c.client.Get(ctx, key(publicID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var u user.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("cache decode: %w", err)
	}
	return &u, nil
}

func (c *ProfileCache) Set(ctx context.Context, u *user.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	return c.client.Set(ctx, key(u.Profile.PublicID), raw, c.ttl).Err()
}

func (c *ProfileCache) Invalidate(ctx context.Context, publicIDs ...string) error {
	if len(publicIDs) == 0 {
		return nil
	}
	keys := make([]string, len(publicIDs))
	for i, id := range publicIDs {
		keys[i] = key(id)
	}
	return c.client.Del(ctx, keys...).Err()
}
