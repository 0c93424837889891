package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFlipRecordDerivedProfit(t *testing.T) {
	flip := FlipRecord{
		Quantity:     100,
		AvgBuyPrice:  1000,
		AvgSellPrice: 1100,
		Tax:          1000,
	}

	// 110000 - 100000 - 1000
	assert.InDelta(t, 9000, flip.DerivedProfit(), 0.001)
}

func TestFlipRecordDurationFlooredAtOneMinute(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		opened   time.Time
		closed   time.Time
		expected float64
	}{
		{"normal hold", now.Add(-2 * time.Hour), now, 120},
		{"instant flip floors to 1", now, now, 1},
		{"closed before opened floors to 1", now, now.Add(-time.Minute), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flip := FlipRecord{OpenedAt: tt.opened, ClosedAt: tt.closed}
			assert.InDelta(t, tt.expected, flip.FlipDurationMinutes(), 0.01)
		})
	}
}

func TestFlipRecordComputedFieldsGuardZeroDenominators(t *testing.T) {
	flip := FlipRecord{
		Quantity:     0,
		AvgBuyPrice:  0,
		AvgSellPrice: 50,
		Profit:       500,
		OpenedAt:     time.Now(),
		ClosedAt:     time.Now(),
	}

	// None of these may produce NaN or Inf
	values := []float64{
		flip.ProfitVelocity(),
		flip.MarginPercent(),
		flip.ProfitPerItem(),
		flip.TotalValue(),
	}
	for _, v := range values {
		assert.False(t, v != v, "computed field produced NaN")
		assert.False(t, v > 1e308 || v < -1e308, "computed field produced Inf")
	}
}

func TestFlipRecordProfitVelocity(t *testing.T) {
	now := time.Now()
	flip := FlipRecord{
		Profit:   6000,
		OpenedAt: now.Add(-3 * time.Hour),
		ClosedAt: now,
	}

	assert.InDelta(t, 2000, flip.ProfitVelocity(), 0.1)
}
