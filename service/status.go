package service

import (
	"context"

	"flashsale/sale"
)

// Status reads the sale configuration and live stock and derives the
// current phase at this instant.
func (s *SaleService) Status(ctx context.Context) (sale.Status, error) {
	cfg, err := s.store.SaleConfig(ctx)
	if err != nil {
		return sale.Status{}, err
	}
	stock, err := s.store.Stock(ctx)
	if err != nil {
		return sale.Status{}, err
	}
	return sale.NewStatus(cfg, stock, s.clock.Now()), nil
}

// Lookup reports whether buyerID holds a committed reservation.
func (s *SaleService) Lookup(ctx context.Context, buyerID string) (sale.Purchase, error) {
	return s.store.Lookup(ctx, buyerID)
}
