package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/orderflow/internal/adapter/paypal"
	"github.com/polkiloo/orderflow/internal/app"
	"github.com/polkiloo/orderflow/internal/config"
	"github.com/polkiloo/orderflow/internal/events"
	"github.com/polkiloo/orderflow/internal/logger"
	"github.com/polkiloo/orderflow/internal/metrics"
	"github.com/polkiloo/orderflow/internal/pkg/auth"
	"github.com/polkiloo/orderflow/internal/queue"
	"github.com/polkiloo/orderflow/internal/server/http/handlers"
	"github.com/polkiloo/orderflow/internal/server/http/router"
	"github.com/polkiloo/orderflow/internal/storage/postgres"
	redisstore "github.com/polkiloo/orderflow/internal/storage/redis"
	"github.com/polkiloo/orderflow/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		metrics.Module,
		auth.Module,
		postgres.Module,
		redisstore.Module,
		events.Module,
		paypal.Module,
		queue.Module,
		usecase.Module,
		fx.Provide(
			func(f *app.OrderFacade) handlers.OrderFacade { return f },
			func(s *postgres.Storage) handlers.HealthChecker { return s },
		),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
