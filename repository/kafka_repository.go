package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"flashsale/sale"
)

// KafkaRepository publishes committed-order events. The writer carries no
// fixed topic; each message routes itself so one writer serves the order
// topic and the DLQ alike.
type KafkaRepository struct {
	Writer     *kafka.Writer
	OrderTopic string
	DLQTopic   string
}

func NewKafkaRepository(brokers []string, orderTopic, dlqTopic string) *KafkaRepository {
	return &KafkaRepository{
		Writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
		},
		OrderTopic: orderTopic,
		DLQTopic:   dlqTopic,
	}
}

// PublishOrder emits one committed reservation, keyed by buyer id so
// replays for the same buyer land on one partition in order.
func (r *KafkaRepository) PublishOrder(ctx context.Context, o sale.Order) error {
	value, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode order event: %w", err)
	}
	return r.Writer.WriteMessages(ctx, kafka.Message{
		Topic: r.OrderTopic,
		Key:   []byte(o.BuyerID),
		Value: value,
	})
}

// PublishToDLQ parks a message the worker could not persist, with the
// failure reason attached as a header.
func (r *KafkaRepository) PublishToDLQ(ctx context.Context, key, value []byte, reason string) error {
	return r.Writer.WriteMessages(ctx, kafka.Message{
		Topic: r.DLQTopic,
		Key:   key,
		Value: value,
		Headers: []kafka.Header{
			{Key: "error_reason", Value: []byte(reason)},
		},
	})
}

func (r *KafkaRepository) Close() error {
	return r.Writer.Close()
}
