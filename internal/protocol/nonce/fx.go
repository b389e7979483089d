package nonce

import (
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/umagate/umagate/internal/clock"
	"github.com/umagate/umagate/internal/config"
	"github.com/umagate/umagate/internal/protocol"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the replay validator: redis-backed when REDIS_ADDR is
// configured, in-process otherwise.
var Module = fx.Module("protocol.nonce",
	fx.Provide(FromConfig),
)

func FromConfig(cfg config.Config, clk clock.Clock, log *zap.Logger) protocol.NonceValidator {
	retention := time.Duration(cfg.NonceRetentionHours) * time.Hour

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		log.Info("nonce validator using redis", zap.String("addr", cfg.RedisAddr))
		return NewRedisValidator(client, clk, retention)
	}

	log.Info("nonce validator using process-local store")
	return NewMemoryValidator(clk, retention)
}
