package redis

import (
	"context"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/polkiloo/orderflow/internal/config"
	"github.com/polkiloo/orderflow/internal/queue"
)

func TestNewFailsWhenUnreachable(t *testing.T) {
	prev := connectBackoff
	t.Cleanup(func() { connectBackoff = prev })
	connectBackoff = func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 1)
	}

	_, err := New(context.Background(), config.Redis{Addr: "127.0.0.1:1"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect redis")
}

func TestNewClientDisabled(t *testing.T) {
	client, err := newClient(clientParams{Ctx: context.Background(), Config: &config.Config{}, Logger: zap.NewNop()})
	require.NoError(t, err)
	assert.Nil(t, client)

	_, ok := newLocker(client).(*queue.MemoryLocker)
	assert.True(t, ok, "expected in-memory locker without redis")
}

func TestLockerWrapsClient(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })

	l, ok := newLocker(client).(*Locker)
	require.True(t, ok)

	_, err := l.Acquire(context.Background(), "queue:unique:paypal-payment-1", time.Minute)
	assert.Error(t, err)
	assert.Error(t, l.Release(context.Background(), "queue:unique:paypal-payment-1"))
}
