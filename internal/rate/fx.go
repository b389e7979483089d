package rate

import (
	"github.com/redis/go-redis/v9"
	"github.com/umagate/umagate/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the rate Provider: a static table, wrapped in a redis
// lookaside cache when REDIS_ADDR is configured.
var Module = fx.Module("rate",
	fx.Provide(FromConfig),
)

// defaultPairs covers the settlement-unit conversions every deployment needs
// out of the box. Fiat pairs come from tenant currency tables, not here.
var defaultPairs = map[string]float64{
	"SAT/MSAT": 1000,
	"BTC/MSAT": 100_000_000_000,
}

func FromConfig(cfg config.Config, log *zap.Logger) Provider {
	provider := NewStatic(defaultPairs)

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		log.Info("rate provider using redis cache", zap.String("addr", cfg.RedisAddr))
		provider = NewCached(provider, client)
	}

	return provider
}
