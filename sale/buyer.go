package sale

import (
	"fmt"
	"strings"
)

// MinBuyerIDLen is the shortest buyer identity accepted at the boundary.
const MinBuyerIDLen = 3

// ValidateBuyerID trims the raw identity and rejects anything shorter than
// MinBuyerIDLen. The engine assumes its input already passed this check.
func ValidateBuyerID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if len(id) < MinBuyerIDLen {
		return "", fmt.Errorf("%w: need at least %d characters", ErrInvalidBuyer, MinBuyerIDLen)
	}
	return id, nil
}
