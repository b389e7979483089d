package rate

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const cachedTTL = 5 * time.Minute

type cached struct {
	inner  Provider
	client *redis.Client
	ttl    time.Duration
}

// NewCached decorates a provider with a redis lookaside cache. Unsupported
// pairs are never cached, so adding a pair upstream takes effect immediately.
func NewCached(inner Provider, client *redis.Client) Provider {
	return &cached{inner: inner, client: client, ttl: cachedTTL}
}

func (c *cached) Rate(ctx context.Context, from, to string) (float64, error) {
	key := "rate:" + pairKey(from, to)

	if raw, err := c.client.Get(ctx, key).Result(); err == nil {
		if r, parseErr := strconv.ParseFloat(raw, 64); parseErr == nil {
			return r, nil
		}
	}

	r, err := c.inner.Rate(ctx, from, to)
	if err != nil {
		return 0, err
	}

	// Best effort; a write failure only costs the next caller a lookup.
	c.client.Set(ctx, key, strconv.FormatFloat(r, 'f', -1, 64), c.ttl)

	return r, nil
}
