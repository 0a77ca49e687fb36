package sale

import "errors"

var (
	// ErrContention marks a conditional commit rejected because a watched
	// key changed. Transient: the engine retries it with backoff.
	ErrContention = errors.New("reservation commit rejected by concurrent write")
	// ErrNotConfigured means no sale config record exists in the store.
	ErrNotConfigured = errors.New("sale not configured")
	// ErrInvalidBuyer marks a buyer id rejected before the engine runs.
	ErrInvalidBuyer = errors.New("invalid buyer id")
)
