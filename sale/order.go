package sale

import (
	"fmt"
	"time"
)

// Order is one committed reservation. The same shape is appended to the
// store's order log, published to Kafka and persisted by the worker.
type Order struct {
	OrderID     string    `json:"order_id"`
	BuyerID     string    `json:"buyer_id"`
	ProductID   string    `json:"product_id"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// NewOrderID builds the order identifier for one attempt. The attempt
// timestamp plus the buyer id is unique: at most one receipt can ever
// commit per buyer.
func NewOrderID(now time.Time, buyerID string) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), buyerID)
}
