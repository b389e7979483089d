package nonce

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/umagate/umagate/internal/clock"
	"github.com/umagate/umagate/internal/protocol"
)

type redisValidator struct {
	client    *redis.Client
	clk       clock.Clock
	retention time.Duration
}

// NewRedisValidator returns a replay validator shared across instances. The
// retention window doubles as the key TTL.
func NewRedisValidator(client *redis.Client, clk clock.Clock, retention time.Duration) protocol.NonceValidator {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &redisValidator{client: client, clk: clk, retention: retention}
}

func (v *redisValidator) CheckAndSave(ctx context.Context, senderDomain, nonce string, timestamp time.Time) error {
	if timestamp.Before(v.clk.Now().Add(-v.retention)) {
		return protocol.ErrReplayedNonce
	}

	key := fmt.Sprintf("nonce:%s:%s", senderDomain, nonce)
	set, err := v.client.SetNX(ctx, key, 1, v.retention).Result()
	if err != nil {
		return err
	}
	if !set {
		return fmt.Errorf("%w: %s", protocol.ErrReplayedNonce, nonce)
	}
	return nil
}
