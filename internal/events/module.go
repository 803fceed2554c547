package events

import (
	"context"

	"github.com/polkiloo/orderflow/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the lifecycle event publisher.
var Module = fx.Options(
	fx.Provide(newPublisher),
	fx.Invoke(registerLifecycle),
)

type publisherParams struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func newPublisher(p publisherParams) Publisher {
	if !p.Config.KafkaEnabled() {
		return Nop{}
	}
	p.Logger.Info("publishing order events to kafka",
		zap.Strings("brokers", p.Config.Kafka.Brokers),
		zap.String("topic", p.Config.Kafka.Topic),
	)
	return NewKafkaPublisher(p.Config.Kafka.Brokers, p.Config.Kafka.Topic, p.Logger.Named("events"))
}

func registerLifecycle(lc fx.Lifecycle, publisher Publisher) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return publisher.Close()
		},
	})
}
