package repository

import (
	"context"
	"time"

	"flashsale/sale"
)

/*
 * SaleStore is the shared transactional store the reservation engine runs
 * against. Reserve executes ONE watch/stage/commit attempt of the purchase
 * protocol on an isolated transactional session; a rejected commit surfaces
 * as sale.ErrContention and the caller owns the retry loop. All reads are
 * fresh; nothing is cached between requests.
 */

type SaleStore interface {
	// Seed writes the sale config record and initializes the stock counter
	// if absent, so restarts never resurrect stock already sold.
	Seed(ctx context.Context, cfg sale.Config) error

	// Reserve runs one attempt of the reservation protocol for buyerID at
	// the given instant.
	Reserve(ctx context.Context, buyerID string, now time.Time) (sale.Result, error)

	// SaleConfig reads the config record.
	SaleConfig(ctx context.Context) (sale.Config, error)

	// Stock reads the live counter.
	Stock(ctx context.Context) (int64, error)

	// Lookup reads the buyer's receipt slot.
	Lookup(ctx context.Context, buyerID string) (sale.Purchase, error)
}

/*
 * OrderRepository persists committed orders in the relational store. It is
 * fed by the event worker, never by the engine, and no invariant-enforcing
 * logic reads it.
 */

type OrderRepository interface {
	// SaveOrder inserts the order idempotently; false means a row for it
	// already existed.
	SaveOrder(ctx context.Context, o sale.Order) (bool, error)

	// HasOrder reports whether a durable order exists for the buyer.
	HasOrder(ctx context.Context, buyerID string) (bool, error)
}

// EventPublisher emits committed-order events and dead letters.
type EventPublisher interface {
	PublishOrder(ctx context.Context, o sale.Order) error
	PublishToDLQ(ctx context.Context, key, value []byte, reason string) error
}
