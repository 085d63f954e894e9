// Package redisconn provides the shared Redis client and the
// distributed lock client built on it. Both are nil when Redis is not
// configured; callers treat them as optional accelerators, never as the
// correctness guarantee.
package redisconn

import (
	"context"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/digiget/digiget/internal/config"
)

type Result struct {
	fx.Out

	Client *redis.Client
	Locker *redislock.Client
}

func Provide(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) Result {
	if cfg.RedisAddr == "" {
		return Result{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis unreachable, rate limiting and advisory locks disabled", zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return Result{
		Client: client,
		Locker: redislock.New(client),
	}
}

var Module = fx.Module("redisconn",
	fx.Provide(Provide),
)
