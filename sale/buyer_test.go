package sale

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateBuyerID(t *testing.T) {
	t.Parallel()

	t.Run("accepts and trims valid ids", func(t *testing.T) {
		id, err := ValidateBuyerID("  buyer-42  ")
		require.NoError(t, err)
		require.Equal(t, "buyer-42", id)
	})

	t.Run("rejects short or empty ids", func(t *testing.T) {
		for _, raw := range []string{"", "  ", "ab", " a "} {
			_, err := ValidateBuyerID(raw)
			require.ErrorIs(t, err, ErrInvalidBuyer, "input %q", raw)
		}
	})

	t.Run("minimum length after trimming", func(t *testing.T) {
		id, err := ValidateBuyerID(" abc ")
		require.NoError(t, err)
		require.Equal(t, "abc", id)
	})
}

func TestNewOrderID(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "1772366400000-buyer-1", NewOrderID(at, "buyer-1"))
}
