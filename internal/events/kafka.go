package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON keyed by order id, so one order's
// events stay ordered within a partition.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
	logger  *zap.Logger
}

// NewKafkaPublisher creates a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		timeout: 5 * time.Second,
		logger:  logger,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.OrderID, 10)),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event for order %d: %w", event.Type, event.OrderID, err)
	}

	p.logger.Debug("event published", zap.String("type", event.Type), zap.Int64("order_id", event.OrderID))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
