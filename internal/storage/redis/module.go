package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/polkiloo/orderflow/internal/config"
	"github.com/polkiloo/orderflow/internal/queue"
)

// Module provides an optional Redis client and the unique job locker built on it.
var Module = fx.Options(
	fx.Provide(newClient, newLocker),
	fx.Invoke(registerLifecycle),
)

type clientParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *zap.Logger
}

// newClient returns nil when Redis is not configured.
func newClient(p clientParams) (*goredis.Client, error) {
	if !p.Config.RedisEnabled() {
		p.Logger.Info("redis disabled, using in-process locks and rate limits")
		return nil, nil
	}
	return New(p.Ctx, p.Config.Redis, p.Logger.Named("redis"))
}

func newLocker(client *goredis.Client) queue.Locker {
	if client == nil {
		return queue.NewMemoryLocker()
	}
	return NewLocker(client)
}

func registerLifecycle(lc fx.Lifecycle, client *goredis.Client) {
	if client == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
}
