package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiter combines a local token bucket with an optional per-second counter in
// Redis shared by every instance.
type Limiter struct {
	local  *rate.Limiter
	client redis.Cmdable
	key    string
	limit  int64
	logger *zap.Logger
	now    func() time.Time
}

// New creates a limiter allowing perSecond requests with burst. perSecond <= 0
// disables limiting. A nil client keeps the limit in process.
func New(client redis.Cmdable, key string, perSecond, burst int, logger *zap.Logger) *Limiter {
	l := &Limiter{client: client, key: key, logger: logger, now: time.Now}
	if perSecond > 0 {
		if burst <= 0 {
			burst = 1
		}
		l.local = rate.NewLimiter(rate.Limit(perSecond), burst)
		l.limit = int64(perSecond)
	}
	return l
}

// Wait blocks until a request may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.local == nil {
		return nil
	}
	if err := l.local.Wait(ctx); err != nil {
		return err
	}
	if l.client == nil {
		return nil
	}

	for {
		allowed, retryIn := l.allowGlobal(ctx)
		if allowed {
			return nil
		}
		timer := time.NewTimer(retryIn)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Limiter) allowGlobal(ctx context.Context) (bool, time.Duration) {
	now := l.now()
	window := now.Unix()
	key := l.key + ":" + strconv.FormatInt(window, 10)

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 2*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("redis rate limit unavailable, using local limit", zap.Error(err))
		return true, 0
	}

	if count := incr.Val(); count > l.limit {
		l.logger.Debug("global rate limit reached", zap.String("key", l.key), zap.Int64("count", count))
		next := time.Unix(window+1, 0)
		return false, next.Sub(now)
	}
	return true, 0
}
