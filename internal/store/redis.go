package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SequenceKey holds the registration counter used for sequential ids.
const SequenceKey = "registrations:seq"

// Redis wraps redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// Close closes the client.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}

// Counter is a persisted atomic sequence backed by INCR. It survives
// restarts and is shared by every replica pointing at the same redis.
type Counter struct {
	client *redis.Client
	key    string
}

// NewCounter returns a counter stored under key.
func NewCounter(client *redis.Client, key string) *Counter {
	if key == "" {
		key = SequenceKey
	}
	return &Counter{client: client, key: key}
}

// Incr returns the next sequence value.
func (c *Counter) Incr(ctx context.Context) (int64, error) {
	return c.client.Incr(ctx, c.key).Result()
}
