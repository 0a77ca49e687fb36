package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReserveRequests counts every reservation request reaching the engine.
	ReserveRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sale_reserve_requests_total",
		Help: "Total number of reservation requests",
	})

	// ReserveOutcomes counts terminal engine outcomes by kind.
	ReserveOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sale_reserve_outcomes_total",
		Help: "Reservation outcomes by terminal result",
	}, []string{"outcome"})

	// ContentionRetries counts commit rejections that led to a retry.
	ContentionRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sale_reserve_contention_retries_total",
		Help: "Conditional commits rejected by concurrent writers and retried",
	})

	// ReserveDuration observes end-to-end reservation latency.
	ReserveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sale_reserve_duration_seconds",
		Help:    "Reservation latency including contention retries",
		Buckets: prometheus.DefBuckets,
	})

	// StockLevel mirrors the live stock counter, clamped at zero.
	StockLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sale_stock_level",
		Help: "Current stock level in the shared store",
	})

	// OrderEventFailures counts committed reservations whose event could
	// not be published. The reservation itself stands; the store's order
	// log remains the record to reconcile from.
	OrderEventFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sale_order_event_failures_total",
		Help: "Order events that failed to publish after a committed reservation",
	})
)
