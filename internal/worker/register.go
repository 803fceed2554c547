package worker

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/polkiloo/orderflow/internal/config"
	"github.com/polkiloo/orderflow/internal/queue"
	"github.com/polkiloo/orderflow/internal/usecase"
)

// Registrar accepts job handlers.
type Registrar interface {
	Register(kind string, h queue.Handler, p queue.Policy) error
}

// Policies returns the retry policy of every pipeline job.
func Policies(cfg config.Queue) map[string]queue.Policy {
	return map[string]queue.Policy{
		usecase.JobBulkOrders: {
			Queue:   queue.BulkOrders,
			Tries:   cfg.BulkTries,
			Backoff: queue.Fixed(0),
			Timeout: cfg.BulkTimeout,
		},
		usecase.JobProcessOrder: {
			Queue:   queue.Orders,
			Tries:   cfg.ProcessTries,
			Backoff: queue.Fixed(cfg.ProcessBackoff),
			Timeout: cfg.ProcessTimeout,
		},
		usecase.JobCreatePayment: {
			Queue:     queue.PayPal,
			Tries:     cfg.PaymentTries,
			Backoff:   queue.Exponential(cfg.PaymentBackoff, cfg.PaymentMaxBackoff),
			Timeout:   cfg.PaymentTimeout,
			UniqueFor: cfg.PaymentUniqueFor,
		},
	}
}

// Register binds the pipeline handlers to r.
func Register(r Registrar, facade PipelineFacade, cfg config.Queue, logger *zap.Logger) error {
	policies := Policies(cfg)
	handlers := map[string]queue.Handler{
		usecase.JobBulkOrders:    NewBulkOrders(facade, logger.Named("bulk")),
		usecase.JobProcessOrder:  NewProcessOrder(facade, logger.Named("process")),
		usecase.JobCreatePayment: NewCreatePayment(facade, logger.Named("payment")),
	}
	for kind, h := range handlers {
		if err := r.Register(kind, h, policies[kind]); err != nil {
			return fmt.Errorf("register %s: %w", kind, err)
		}
	}
	return nil
}
