package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"flashsale/sale"
)

// configKey holds the JSON sale config record. Stock, receipts and the
// order log are keyed per product so a future sale run starts clean.
const configKey = "sale:config"

// RedisRepository implements SaleStore on Redis. Every Reserve call runs
// WATCH/MULTI/EXEC on a connection checked out of the client's pool for the
// duration of the attempt, so concurrent attempts never share a watch set.
type RedisRepository struct {
	Client *redis.Client

	productID string
	stockKey  string
	ordersKey string
}

func NewRedisRepository(client *redis.Client, productID string) *RedisRepository {
	return &RedisRepository{
		Client:    client,
		productID: productID,
		stockKey:  "sale:stock:" + productID,
		ordersKey: "sale:orders:" + productID,
	}
}

func (r *RedisRepository) receiptKey(buyerID string) string {
	return "sale:receipt:" + r.productID + ":" + buyerID
}

// Seed writes the config record and initializes the stock counter. The
// counter uses SETNX: restarting a live sale must not refill sold stock.
func (r *RedisRepository) Seed(ctx context.Context, cfg sale.Config) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode sale config: %w", err)
	}
	if err := r.Client.Set(ctx, configKey, payload, 0).Err(); err != nil {
		return fmt.Errorf("write sale config: %w", err)
	}
	if err := r.Client.SetNX(ctx, r.stockKey, cfg.InitialStock, 0).Err(); err != nil {
		return fmt.Errorf("init stock counter: %w", err)
	}
	return nil
}

// Reserve runs one attempt of the purchase protocol:
//
//	WATCH stock + this buyer's receipt slot
//	window check, duplicate check, stock check (abort on any terminal answer)
//	MULTI: DECR stock, SET receipt, RPUSH order log; EXEC
//
// A concurrent write to either watched key rejects the EXEC and surfaces as
// sale.ErrContention. Terminal business outcomes come back as values.
func (r *RedisRepository) Reserve(ctx context.Context, buyerID string, now time.Time) (sale.Result, error) {
	var result sale.Result
	receiptKey := r.receiptKey(buyerID)

	err := r.Client.Watch(ctx, func(tx *redis.Tx) error {
		cfg, err := readSaleConfig(ctx, tx)
		if err != nil {
			return err
		}

		// Re-checked every attempt so a window that opens or closes
		// mid-retry-loop is honored.
		if !cfg.InWindow(now) {
			result = sale.Result{Outcome: sale.OutcomeWindowClosed}
			return nil
		}

		existing, err := tx.Get(ctx, receiptKey).Result()
		switch {
		case err == nil:
			result = sale.Result{Outcome: sale.OutcomeAlreadyReserved, OrderID: existing}
			return nil
		case !errors.Is(err, redis.Nil):
			return fmt.Errorf("read receipt: %w", err)
		}

		raw, err := tx.Get(ctx, r.stockKey).Result()
		if errors.Is(err, redis.Nil) {
			result = sale.Result{Outcome: sale.OutcomeSoldOut}
			return nil
		}
		if err != nil {
			return fmt.Errorf("read stock: %w", err)
		}
		stock, convErr := strconv.ParseInt(raw, 10, 64)
		if convErr != nil || stock <= 0 {
			result = sale.Result{Outcome: sale.OutcomeSoldOut}
			return nil
		}

		order := sale.Order{
			OrderID:     sale.NewOrderID(now, buyerID),
			BuyerID:     buyerID,
			ProductID:   r.productID,
			PurchasedAt: now,
		}
		entry, err := json.Marshal(order)
		if err != nil {
			return fmt.Errorf("encode order: %w", err)
		}

		var decr *redis.IntCmd
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			decr = pipe.Decr(ctx, r.stockKey)
			pipe.Set(ctx, receiptKey, order.OrderID, 0)
			pipe.RPush(ctx, r.ordersKey, entry)
			return nil
		}); err != nil {
			return err
		}

		remaining := decr.Val()
		if remaining < 0 {
			// Two commits interleaved past the stock check. True session
			// isolation makes this unreachable; compensate and report
			// sold out rather than trusting the broken state.
			if rbErr := r.rollbackOversell(ctx, receiptKey); rbErr != nil {
				return fmt.Errorf("compensate oversold reservation: %w", rbErr)
			}
			result = sale.Result{Outcome: sale.OutcomeSoldOut}
			return nil
		}

		result = sale.Result{
			Outcome:   sale.OutcomeReserved,
			OrderID:   order.OrderID,
			Remaining: remaining,
			Order:     &order,
		}
		return nil
	}, r.stockKey, receiptKey)

	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return sale.Result{}, sale.ErrContention
		}
		return sale.Result{}, err
	}
	return result, nil
}

// rollbackOversell undoes an oversold commit: the unit goes back, the
// receipt comes out. The order log entry stays; it is audit-only and
// records that the defensive path fired.
func (r *RedisRepository) rollbackOversell(ctx context.Context, receiptKey string) error {
	_, err := r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, r.stockKey)
		pipe.Del(ctx, receiptKey)
		return nil
	})
	return err
}

// SaleConfig reads the config record fresh.
func (r *RedisRepository) SaleConfig(ctx context.Context) (sale.Config, error) {
	return readSaleConfig(ctx, r.Client)
}

func readSaleConfig(ctx context.Context, c redis.Cmdable) (sale.Config, error) {
	raw, err := c.Get(ctx, configKey).Result()
	if errors.Is(err, redis.Nil) {
		return sale.Config{}, sale.ErrNotConfigured
	}
	if err != nil {
		return sale.Config{}, fmt.Errorf("read sale config: %w", err)
	}
	var cfg sale.Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return sale.Config{}, fmt.Errorf("decode sale config: %w", err)
	}
	return cfg, nil
}

// Stock reads the live counter. A missing key reads as zero.
func (r *RedisRepository) Stock(ctx context.Context) (int64, error) {
	val, err := r.Client.Get(ctx, r.stockKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read stock: %w", err)
	}
	return val, nil
}

// Lookup reads the buyer's receipt slot. A single-key read is atomic, so no
// transaction is needed.
func (r *RedisRepository) Lookup(ctx context.Context, buyerID string) (sale.Purchase, error) {
	orderID, err := r.Client.Get(ctx, r.receiptKey(buyerID)).Result()
	if errors.Is(err, redis.Nil) {
		return sale.Purchase{}, nil
	}
	if err != nil {
		return sale.Purchase{}, fmt.Errorf("read receipt: %w", err)
	}
	return sale.Purchase{Purchased: true, OrderID: orderID}, nil
}

// Orders returns the append-only order log in commit order. Audit and
// debugging only.
func (r *RedisRepository) Orders(ctx context.Context) ([]sale.Order, error) {
	entries, err := r.Client.LRange(ctx, r.ordersKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read order log: %w", err)
	}
	orders := make([]sale.Order, 0, len(entries))
	for _, entry := range entries {
		var o sale.Order
		if err := json.Unmarshal([]byte(entry), &o); err != nil {
			return nil, fmt.Errorf("decode order log entry: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}
