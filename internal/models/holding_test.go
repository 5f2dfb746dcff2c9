package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestHoldingMerge(t *testing.T) {
	earlier := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	later := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("weighted average cost", func(t *testing.T) {
		h := &Holding{
			Symbol:  "AAPL",
			Shares:  decimal.NewFromInt(10),
			AvgCost: decimal.NewFromInt(100),
			AddedAt: earlier,
		}
		h.Merge(decimal.NewFromInt(10), decimal.NewFromInt(200), later)

		assert.True(t, decimal.NewFromInt(20).Equal(h.Shares), "shares: %s", h.Shares)
		assert.True(t, decimal.NewFromInt(150).Equal(h.AvgCost), "avg cost: %s", h.AvgCost)
	})

	t.Run("keeps the earlier acquisition date", func(t *testing.T) {
		h := &Holding{Shares: decimal.NewFromInt(1), AvgCost: decimal.NewFromInt(10), AddedAt: later}
		h.Merge(decimal.NewFromInt(1), decimal.NewFromInt(20), earlier)
		assert.Equal(t, earlier, h.AddedAt)

		h2 := &Holding{Shares: decimal.NewFromInt(1), AvgCost: decimal.NewFromInt(10), AddedAt: earlier}
		h2.Merge(decimal.NewFromInt(1), decimal.NewFromInt(20), later)
		assert.Equal(t, earlier, h2.AddedAt)
	})

	t.Run("uneven lot sizes weight correctly", func(t *testing.T) {
		h := &Holding{Shares: decimal.NewFromInt(30), AvgCost: decimal.NewFromInt(10), AddedAt: earlier}
		h.Merge(decimal.NewFromInt(10), decimal.NewFromInt(50), later)

		// (30*10 + 10*50) / 40 = 20
		assert.True(t, decimal.NewFromInt(20).Equal(h.AvgCost), "avg cost: %s", h.AvgCost)
	})
}

func TestCanonicalSymbol(t *testing.T) {
	assert.Equal(t, "AAPL", CanonicalSymbol(" aapl "))
	assert.Equal(t, "BRK.B", CanonicalSymbol("brk.b"))
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("")
	assert.NoError(t, err)
	assert.Equal(t, RangeAll, r)

	r, err = ParseRange("1m")
	assert.NoError(t, err)
	assert.Equal(t, RangeMonth, r)

	_, err = ParseRange("2y")
	assert.Error(t, err)
}
