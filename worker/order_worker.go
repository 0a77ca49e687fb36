package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	"flashsale/repository"
	"flashsale/sale"
)

var (
	ordersPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sale_orders_persisted_total",
		Help: "Order events durably written to MySQL",
	})
	ordersDeadLettered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sale_orders_dead_lettered_total",
		Help: "Order events moved to the DLQ after exhausting retries",
	})
)

const saveRetries = 3

// OrderWorker drains the order event stream into MySQL. Reservations are
// already committed in the store by the time an event arrives, so the worker
// only ever persists; a poisoned or repeatedly failing event moves to the
// DLQ instead of blocking the partition.
type OrderWorker struct {
	Reader *kafka.Reader
	Orders repository.OrderRepository
	Events repository.EventPublisher

	brokers    []string
	dlqTopic   string
	groupID    string
	retryDelay time.Duration
}

func NewOrderWorker(brokers []string, topic, dlqTopic, groupID string, orders repository.OrderRepository, events repository.EventPublisher) *OrderWorker {
	return &OrderWorker{
		Reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		Orders:     orders,
		Events:     events,
		brokers:    brokers,
		dlqTopic:   dlqTopic,
		groupID:    groupID,
		retryDelay: 2 * time.Second,
	}
}

// Start consumes order events until the context ends.
func (w *OrderWorker) Start(ctx context.Context) {
	slog.Info("order worker started", "group", w.groupID)

	for {
		m, err := w.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("order worker stopped")
				return
			}
			slog.Error("order event read failed", "error", err)
			continue
		}
		w.handleMessage(ctx, m)
	}
}

// handleMessage settles one event: save with bounded retries, treat a
// duplicate key as already settled, dead-letter what will not save. Returns
// true when the order is durably accounted for.
func (w *OrderWorker) handleMessage(ctx context.Context, m kafka.Message) bool {
	var order sale.Order
	if err := json.Unmarshal(m.Value, &order); err != nil {
		// Malformed payloads never heal; no point retrying.
		slog.Error("undecodable order event", "key", string(m.Key), "error", err)
		w.deadLetter(ctx, m, "decode: "+err.Error())
		return false
	}

	var lastErr error
save:
	for i := 0; i < saveRetries; i++ {
		saved, err := w.Orders.SaveOrder(ctx, order)
		if err == nil {
			if saved {
				ordersPersisted.Inc()
				slog.Info("order persisted", "order_id", order.OrderID, "buyer_id", order.BuyerID)
			} else {
				slog.Warn("order already persisted, skipping", "order_id", order.OrderID)
			}
			return true
		}

		lastErr = err
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			slog.Warn("order already persisted, skipping", "order_id", order.OrderID)
			return true
		}

		slog.Error("order save failed",
			"order_id", order.OrderID, "attempt", i+1, "of", saveRetries, "error", err)
		if i < saveRetries-1 {
			select {
			case <-time.After(w.retryDelay):
			case <-ctx.Done():
				lastErr = ctx.Err()
				break save
			}
		}
	}

	slog.Error("order save exhausted retries, dead-lettering",
		"order_id", order.OrderID, "error", lastErr)
	w.deadLetter(ctx, m, lastErr.Error())
	return false
}

func (w *OrderWorker) deadLetter(ctx context.Context, m kafka.Message, reason string) {
	ordersDeadLettered.Inc()
	if err := w.Events.PublishToDLQ(ctx, m.Key, m.Value, reason); err != nil {
		slog.Error("dlq publish failed, event lost from stream",
			"key", string(m.Key), "error", err)
	}
}

// ProcessDLQ replays the dead-letter topic through the normal settle path
// and reports how many events were recovered. The recovery reader keeps its
// own group id so redrives resume where the last one stopped; it exits once
// the topic stays quiet past the read timeout.
func (w *OrderWorker) ProcessDLQ(ctx context.Context) (int, error) {
	slog.Info("dlq redrive started", "topic", w.dlqTopic)

	dlqReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     w.brokers,
		Topic:       w.dlqTopic,
		GroupID:     w.groupID + "-recovery",
		StartOffset: kafka.FirstOffset,
	})
	defer dlqReader.Close()

	recovered := 0
	for {
		readCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		m, err := dlqReader.ReadMessage(readCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return recovered, ctx.Err()
			}
			slog.Info("dlq redrive finished", "recovered", recovered)
			return recovered, nil
		}

		if w.handleMessage(ctx, m) {
			recovered++
		}
	}
}

func (w *OrderWorker) Close() error {
	return w.Reader.Close()
}
