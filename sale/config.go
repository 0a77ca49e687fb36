package sale

import "time"

// Config describes one sale run: a single product, a fixed stock and the
// window during which purchases are accepted. It is written to the store
// once at bootstrap and re-read on every request, never cached in-process.
type Config struct {
	ProductID    string    `json:"product_id"`
	Description  string    `json:"description"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	InitialStock int64     `json:"initial_stock"`
}

// InWindow reports whether now falls inside [StartsAt, EndsAt].
func (c Config) InWindow(now time.Time) bool {
	return !now.Before(c.StartsAt) && !now.After(c.EndsAt)
}
