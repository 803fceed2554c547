package logger

import (
	"context"
	"errors"
	"syscall"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/polkiloo/orderflow/internal/config"
)

// Module wires zap logger for dependency injection.
var Module = fx.Options(
	fx.Provide(newLogger),
	fx.Invoke(registerLifecycle),
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return New(cfg.Logger)
}

func registerLifecycle(lc fx.Lifecycle, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			// stdout does not support fsync on most platforms.
			if err := logger.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTTY) {
				return err
			}
			return nil
		},
	})
}
