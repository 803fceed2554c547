package usecase

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	nanoid "github.com/jaevor/go-nanoid"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/queue"
)

// Job kinds of the order pipeline.
const (
	JobBulkOrders    = "bulk-order-processing"
	JobProcessOrder  = "process-order"
	JobCreatePayment = "create-payment"
)

// OrderJob references one order; handlers re-read the row before acting.
type OrderJob struct {
	OrderID int64 `json:"order_id"`
	UserID  int64 `json:"user_id"`
}

// BulkJob fans a selection of orders out to per-order processing jobs.
type BulkJob struct {
	BatchID  string  `json:"batch_id"`
	OrderIDs []int64 `json:"order_ids"`
	// Retry requeues failed orders to pending before dispatching them.
	Retry bool `json:"retry"`
}

// Scheduler enqueues pipeline jobs with their tags and uniqueness keys.
type Scheduler struct {
	dispatcher queue.Dispatcher
	suffix     func() string
}

// NewScheduler constructs Scheduler.
func NewScheduler(dispatcher queue.Dispatcher) (*Scheduler, error) {
	suffix, err := nanoid.Standard(13)
	if err != nil {
		return nil, fmt.Errorf("nanoid generator: %w", err)
	}
	return &Scheduler{dispatcher: dispatcher, suffix: suffix}, nil
}

// ProcessOrder enqueues the processing job of one order.
func (s *Scheduler) ProcessOrder(ctx context.Context, order *model.Order) (string, error) {
	jobUniqueID := fmt.Sprintf("order-%d-%s", order.ID, s.suffix())
	return s.dispatcher.Dispatch(ctx, JobProcessOrder, OrderJob{OrderID: order.ID, UserID: order.UserID},
		queue.WithTags(
			"order-processing",
			"order:"+strconv.FormatInt(order.ID, 10),
			"user:"+strconv.FormatInt(order.UserID, 10),
			"amount:"+order.Amount.StringFixed(2),
			"job:"+jobUniqueID,
			"queue:"+queue.Orders,
		),
	)
}

// CreatePayment enqueues payment creation, at most one per order at a time.
func (s *Scheduler) CreatePayment(ctx context.Context, order *model.Order) (string, error) {
	return s.dispatcher.Dispatch(ctx, JobCreatePayment, OrderJob{OrderID: order.ID, UserID: order.UserID},
		queue.WithUniqueID(PaymentJobID(order.ID)),
		queue.WithTags(
			"paypal-payment",
			"order:"+strconv.FormatInt(order.ID, 10),
			"user:"+strconv.FormatInt(order.UserID, 10),
			"amount:"+order.Amount.StringFixed(2),
			"queue:"+queue.PayPal,
		),
	)
}

// Bulk enqueues one fan-out job over ids and returns its batch id.
func (s *Scheduler) Bulk(ctx context.Context, ids []int64, retry bool) (string, error) {
	batch := BulkJob{BatchID: "bulk-" + uuid.NewString(), OrderIDs: ids, Retry: retry}
	_, err := s.dispatcher.Dispatch(ctx, JobBulkOrders, batch,
		queue.WithTags(
			"bulk-processing",
			"batch:"+batch.BatchID,
			"total_orders:"+strconv.Itoa(len(ids)),
			"queue:"+queue.BulkOrders,
		),
	)
	if err != nil {
		return "", err
	}
	return batch.BatchID, nil
}

// PaymentJobID is the uniqueness key of an order's payment creation job.
func PaymentJobID(orderID int64) string {
	return fmt.Sprintf("paypal-payment-%d", orderID)
}
