package metrics

import (
	"go.uber.org/fx"

	"github.com/polkiloo/orderflow/internal/queue"
)

// Module provides the metrics registry and exposes it as the job recorder.
var Module = fx.Provide(
	New,
	func(m *Metrics) queue.Recorder { return m },
)
