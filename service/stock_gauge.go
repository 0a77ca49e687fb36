package service

import (
	"context"
	"log/slog"
	"time"

	"flashsale/metrics"
)

// StartStockGauge samples the shared stock counter on a fixed interval and
// mirrors it into the stock gauge, so the metric tracks depletion caused by
// other instances too, not just reservations served here.
func (s *SaleService) StartStockGauge(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("stock gauge sampler started", "interval", interval)

	for {
		select {
		case <-ticker.C:
			stock, err := s.store.Stock(ctx)
			if err != nil {
				slog.Warn("stock sample failed", "error", err)
				continue
			}
			if stock < 0 {
				stock = 0
			}
			metrics.StockLevel.Set(float64(stock))
		case <-ctx.Done():
			slog.Info("stock gauge sampler stopped")
			return
		}
	}
}
