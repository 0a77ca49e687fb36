package sale

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func saleConfig(start, end time.Time) Config {
	return Config{
		ProductID:    "drop-2026",
		Description:  "limited drop",
		StartsAt:     start,
		EndsAt:       end,
		InitialStock: 100,
	}
}

func TestResolvePhase(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	cfg := saleConfig(start, end)

	tests := []struct {
		name  string
		now   time.Time
		stock int64
		want  Phase
	}{
		{"before window", start.Add(-time.Minute), 100, PhaseUpcoming},
		{"before window overrides zero stock", start.Add(-time.Minute), 0, PhaseUpcoming},
		{"after window", end.Add(time.Second), 100, PhaseEnded},
		{"after window overrides zero stock", end.Add(time.Second), 0, PhaseEnded},
		{"in window with stock", start.Add(time.Minute), 1, PhaseActive},
		{"in window zero stock", start.Add(time.Minute), 0, PhaseSoldOut},
		{"in window negative stock", start.Add(time.Minute), -1, PhaseSoldOut},
		{"exactly at start", start, 5, PhaseActive},
		{"exactly at end", end, 5, PhaseActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ResolvePhase(cfg, tt.stock, tt.now))
		})
	}
}

func TestNewStatus(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	cfg := saleConfig(start, end)
	now := start.Add(time.Minute)

	t.Run("derives sold from remaining stock", func(t *testing.T) {
		st := NewStatus(cfg, 40, now)
		require.Equal(t, PhaseActive, st.Phase)
		require.Equal(t, int64(40), st.Stock)
		require.Equal(t, int64(60), st.Sold)
		require.Equal(t, cfg.ProductID, st.ProductID)
		require.Equal(t, cfg.Description, st.Description)
		require.True(t, st.StartsAt.Equal(start))
		require.True(t, st.EndsAt.Equal(end))
	})

	t.Run("clamps negative stock to zero", func(t *testing.T) {
		st := NewStatus(cfg, -2, now)
		require.Equal(t, PhaseSoldOut, st.Phase)
		require.Equal(t, int64(0), st.Stock)
		require.Equal(t, int64(100), st.Sold)
	})
}

func TestConfigInWindow(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	cfg := saleConfig(start, end)

	require.False(t, cfg.InWindow(start.Add(-time.Nanosecond)))
	require.True(t, cfg.InWindow(start))
	require.True(t, cfg.InWindow(start.Add(30*time.Minute)))
	require.True(t, cfg.InWindow(end))
	require.False(t, cfg.InWindow(end.Add(time.Nanosecond)))
}
