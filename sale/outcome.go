package sale

// Outcome enumerates every way a reservation attempt can resolve. Business
// outcomes are values, not errors: the engine reports them verbatim and
// never retries them.
type Outcome int

const (
	// OutcomeReserved means one unit was claimed and a receipt written.
	OutcomeReserved Outcome = iota + 1
	// OutcomeAlreadyReserved means this buyer already holds a receipt.
	OutcomeAlreadyReserved
	// OutcomeSoldOut means no stock was left at decision time.
	OutcomeSoldOut
	// OutcomeWindowClosed means the attempt fell outside the sale window.
	OutcomeWindowClosed
	// OutcomeBusy means every attempt lost the commit race; retry later.
	OutcomeBusy
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReserved:
		return "reserved"
	case OutcomeAlreadyReserved:
		return "already_reserved"
	case OutcomeSoldOut:
		return "sold_out"
	case OutcomeWindowClosed:
		return "window_closed"
	case OutcomeBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// Result is what a reservation attempt resolves to. OrderID is set for
// Reserved and AlreadyReserved; Remaining and Order only for Reserved.
// Order is the exact record appended to the store's order log, so event
// publication carries the committed timestamp rather than a re-stamp.
type Result struct {
	Outcome   Outcome
	OrderID   string
	Remaining int64
	Order     *Order
}

// Purchase is the read-only answer to "has this buyer already bought one".
type Purchase struct {
	Purchased bool   `json:"purchased"`
	OrderID   string `json:"order_id,omitempty"`
}
