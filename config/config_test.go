package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Addr)
	require.Equal(t, "localhost:6379", cfg.RedisAddr)
	require.Equal(t, 64, cfg.RedisPoolSize)
	require.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "drop-2026", cfg.ProductID)
	require.Equal(t, int64(1000), cfg.InitialStock)
	require.Equal(t, 5, cfg.MaxAttempts)
	require.Equal(t, 5*time.Millisecond, cfg.BackoffBase)
	require.Equal(t, 3*time.Second, cfg.ReserveBudget)
	require.True(t, cfg.StartsAt.IsZero())
	require.True(t, cfg.EndsAt.IsZero())
}

func TestParseFromEnvironment(t *testing.T) {
	t.Setenv("SALE_ADDR", ":9000")
	t.Setenv("SALE_KAFKA_BROKERS", "broker-1:9092,broker-2:9092")
	t.Setenv("SALE_STARTS_AT", "2026-03-01T12:00:00Z")
	t.Setenv("SALE_ENDS_AT", "2026-03-01T14:00:00Z")
	t.Setenv("SALE_INITIAL_STOCK", "50")
	t.Setenv("SALE_STORE_TIMEOUT", "750ms")

	cfg, err := Parse()
	require.NoError(t, err)

	require.Equal(t, ":9000", cfg.Addr)
	require.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), cfg.StartsAt.UTC())
	require.Equal(t, time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC), cfg.EndsAt.UTC())
	require.Equal(t, int64(50), cfg.InitialStock)
	require.Equal(t, 750*time.Millisecond, cfg.StoreTimeout)
}

func TestParseRejectsMalformedValues(t *testing.T) {
	t.Setenv("SALE_RESERVE_BACKOFF_BASE", "not-a-duration")

	_, err := Parse()
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "parse env:"))
}

func TestSaleWindowFallbacks(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("zero window opens now for a day", func(t *testing.T) {
		cfg := Config{ProductID: "p", InitialStock: 10}
		s := cfg.Sale(now)
		require.True(t, s.StartsAt.Equal(now))
		require.True(t, s.EndsAt.Equal(now.Add(24*time.Hour)))
	})

	t.Run("explicit window is kept", func(t *testing.T) {
		cfg := Config{
			ProductID:    "p",
			StartsAt:     now.Add(time.Hour),
			EndsAt:       now.Add(2 * time.Hour),
			InitialStock: 10,
		}
		s := cfg.Sale(now)
		require.True(t, s.StartsAt.Equal(now.Add(time.Hour)))
		require.True(t, s.EndsAt.Equal(now.Add(2*time.Hour)))
	})
}
