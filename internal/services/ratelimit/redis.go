package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "solarman:ratelimit:"

// Redis is a fixed-window counter shared by every instance pointing at the
// same server
type Redis struct {
	client   *redis.Client
	capacity int64
	window   time.Duration
}

// NewRedis connects to the redis server at addr
func NewRedis(addr string, capacity int, window time.Duration) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 2 * time.Second,
		ReadTimeout: time.Second,
	})
	return &Redis{client: client, capacity: int64(capacity), window: window}
}

// Ping checks the connection
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Allow counts a hit for key in the current window. The counter and its TTL
// are read in one round trip; a counter without a TTL, whether fresh or left
// behind by a failed EXPIRE, gets the window armed again.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	k := keyPrefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		ttl = p.TTL(ctx, k)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("counting request for %s: %w", key, err)
	}

	if ttl.Val() < 0 {
		if err := r.client.Expire(ctx, k, r.window).Err(); err != nil {
			return false, fmt.Errorf("setting window for %s: %w", key, err)
		}
	}

	return incr.Val() <= r.capacity, nil
}

// Close closes the client
func (r *Redis) Close() error {
	return r.client.Close()
}
