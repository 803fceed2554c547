package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/polkiloo/orderflow/internal/config"
)

// connectBackoff bounds the initial PING retries.
var connectBackoff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 10 * time.Second
	return b
}

// New returns a client that answered PING.
func New(ctx context.Context, cfg config.Redis, logger *zap.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		DialTimeout:     3 * time.Second,
		ReadTimeout:     2 * time.Second,
		WriteTimeout:    2 * time.Second,
		PoolSize:        10,
		MinIdleConns:    2,
		MaxRetries:      3,
		MinRetryBackoff: 50 * time.Millisecond,
		MaxRetryBackoff: 500 * time.Millisecond,
	})

	ping := func() error {
		return client.Ping(ctx).Err()
	}
	notify := func(err error, next time.Duration) {
		logger.Warn("redis not ready", zap.String("addr", cfg.Addr), zap.Duration("retry_in", next), zap.Error(err))
	}
	if err := backoff.RetryNotify(ping, backoff.WithContext(connectBackoff(), ctx), notify); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}

	logger.Info("redis connected", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return client, nil
}

// Locker holds unique job locks in Redis so they are shared between processes.
type Locker struct {
	client goredis.Cmdable
}

// NewLocker wraps client.
func NewLocker(client goredis.Cmdable) *Locker {
	return &Locker{client: client}
}

func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339Nano), ttl).Result()
}

func (l *Locker) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, key).Err()
}
