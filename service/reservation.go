package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"flashsale/clock"
	"flashsale/metrics"
	"flashsale/repository"
	"flashsale/sale"
)

const (
	defaultMaxAttempts = 5
	defaultBackoffBase = 5 * time.Millisecond
)

// SaleService drives the reservation protocol against the shared store and
// publishes an order event for every committed reservation. A single store
// attempt either lands a terminal outcome or fails with sale.ErrContention;
// only contention is retried here, with jittered backoff, up to the attempt
// bound. Exhausting the bound reports Busy instead of an error so callers
// can tell "try again" apart from "something broke".
type SaleService struct {
	store  repository.SaleStore
	events repository.EventPublisher
	clock  clock.Clock

	maxAttempts int
	backoffBase time.Duration
}

type Option func(*SaleService)

// WithMaxAttempts bounds how many times a reservation is retried after
// losing the optimistic commit.
func WithMaxAttempts(n int) Option {
	return func(s *SaleService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithBackoffBase sets the delay scale for contention retries.
func WithBackoffBase(d time.Duration) Option {
	return func(s *SaleService) {
		if d > 0 {
			s.backoffBase = d
		}
	}
}

// NewSaleService wires the engine. events may be nil when no broker is
// configured; committed reservations then live only in the store.
func NewSaleService(store repository.SaleStore, events repository.EventPublisher, clk clock.Clock, opts ...Option) *SaleService {
	s := &SaleService{
		store:       store,
		events:      events,
		clock:       clk,
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reserve claims one unit of stock for buyerID. The returned Result carries
// the business outcome; an error means the store itself failed or the
// context ended mid-retry.
func (s *SaleService) Reserve(ctx context.Context, buyerID string) (sale.Result, error) {
	metrics.ReserveRequests.Inc()
	timer := prometheus.NewTimer(metrics.ReserveDuration)
	defer timer.ObserveDuration()

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		res, err := s.store.Reserve(ctx, buyerID, s.clock.Now())
		if errors.Is(err, sale.ErrContention) {
			metrics.ContentionRetries.Inc()
			slog.Debug("reservation commit lost to concurrent write",
				"buyer_id", buyerID, "attempt", attempt+1)
			if err := s.backoff(ctx, attempt); err != nil {
				return sale.Result{}, err
			}
			continue
		}
		if err != nil {
			return sale.Result{}, fmt.Errorf("reserve: %w", err)
		}

		metrics.ReserveOutcomes.WithLabelValues(res.Outcome.String()).Inc()
		if res.Outcome == sale.OutcomeReserved {
			metrics.StockLevel.Set(float64(res.Remaining))
			slog.Info("unit reserved",
				"buyer_id", buyerID, "order_id", res.OrderID, "remaining", res.Remaining)
			s.publishOrder(ctx, res.Order)
		}
		return res, nil
	}

	metrics.ReserveOutcomes.WithLabelValues(sale.OutcomeBusy.String()).Inc()
	slog.Warn("reservation attempts exhausted",
		"buyer_id", buyerID, "attempts", s.maxAttempts)
	return sale.Result{Outcome: sale.OutcomeBusy}, nil
}

// backoff waits base * (1 + jitter) * (1 + attempt) before the next try,
// or returns early when the context ends.
func (s *SaleService) backoff(ctx context.Context, attempt int) error {
	d := time.Duration(float64(s.backoffBase) * (1 + rand.Float64()) * float64(1+attempt))
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// publishOrder emits the committed order record. A publish failure never
// unwinds the reservation: the receipt and order log in the store stay the
// source of truth, and the failure is surfaced for reconciliation instead.
func (s *SaleService) publishOrder(ctx context.Context, o *sale.Order) {
	if s.events == nil || o == nil {
		return
	}
	if err := s.events.PublishOrder(ctx, *o); err != nil {
		metrics.OrderEventFailures.Inc()
		slog.Error("order event publish failed",
			"order_id", o.OrderID, "buyer_id", o.BuyerID, "error", err)
	}
}
