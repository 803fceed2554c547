package queue

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/polkiloo/orderflow/internal/config"
)

// Module provides the job runtime. Its lifecycle is driven by the application.
var Module = fx.Options(
	fx.Provide(
		newRuntime,
		func(r *Runtime) Dispatcher { return r },
	),
)

type runtimeParams struct {
	fx.In

	Config   *config.Config
	Locker   Locker   `optional:"true"`
	Recorder Recorder `optional:"true"`
	Logger   *zap.Logger
}

func newRuntime(p runtimeParams) *Runtime {
	q := p.Config.Queue
	workers := map[string]int{
		Default:    q.DefaultWorkers,
		Orders:     q.OrdersWorkers,
		BulkOrders: q.BulkWorkers,
		PayPal:     q.PaymentsWorkers,
	}
	return NewRuntime(workers, q.Buffer, p.Locker, p.Recorder, p.Logger.Named("queue"))
}
