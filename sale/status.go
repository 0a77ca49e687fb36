package sale

import "time"

// Phase is the sale lifecycle state derived from time and stock on every
// read. It is never stored; only Config and the stock counter are.
type Phase string

const (
	PhaseUpcoming Phase = "upcoming"
	PhaseEnded    Phase = "ended"
	PhaseSoldOut  Phase = "sold_out"
	PhaseActive   Phase = "active"
)

// Status is the public view of the sale at one instant.
type Status struct {
	Phase       Phase     `json:"phase"`
	ProductID   string    `json:"product_id"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Stock       int64     `json:"stock"`
	Sold        int64     `json:"sold"`
}

// ResolvePhase recomputes the phase from the config, the live counter and
// the current time. Precedence when several conditions hold: upcoming,
// then ended, then sold_out, then active.
func ResolvePhase(cfg Config, stock int64, now time.Time) Phase {
	switch {
	case now.Before(cfg.StartsAt):
		return PhaseUpcoming
	case now.After(cfg.EndsAt):
		return PhaseEnded
	case stock <= 0:
		return PhaseSoldOut
	default:
		return PhaseActive
	}
}

// NewStatus derives the full status view. The reported stock is clamped at
// zero so a transient negative counter never leaks to clients.
func NewStatus(cfg Config, stock int64, now time.Time) Status {
	remaining := stock
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Phase:       ResolvePhase(cfg, stock, now),
		ProductID:   cfg.ProductID,
		Description: cfg.Description,
		StartsAt:    cfg.StartsAt,
		EndsAt:      cfg.EndsAt,
		Stock:       remaining,
		Sold:        cfg.InitialStock - remaining,
	}
}
