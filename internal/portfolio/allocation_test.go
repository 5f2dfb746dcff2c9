package portfolio

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeAllocation(t *testing.T) {
	t.Run("percentages sum to 100 and sort descending", func(t *testing.T) {
		got := ComputeAllocation([]HoldingValue{
			{Symbol: "AAPL", Value: decimal.NewFromInt(1000), Resolved: true},
			{Symbol: "MSFT", Value: decimal.NewFromInt(3000), Resolved: true},
			{Symbol: "NVDA", Value: decimal.NewFromInt(1000), Resolved: true},
		})
		require.Len(t, got, 3)

		assert.Equal(t, "MSFT", got[0].Symbol)
		assert.True(t, decimal.NewFromInt(60).Equal(got[0].Percentage), "MSFT: %s", got[0].Percentage)

		sum := decimal.Zero
		for _, slice := range got {
			sum = sum.Add(slice.Percentage)
		}
		diff := sum.Sub(decimal.NewFromInt(100)).Abs()
		assert.True(t, diff.LessThan(decimal.NewFromFloat(1e-9)), "sum: %s", sum)
	})

	t.Run("unresolved and non-positive values are excluded before percentages", func(t *testing.T) {
		got := ComputeAllocation([]HoldingValue{
			{Symbol: "AAPL", Value: decimal.NewFromInt(500), Resolved: true},
			{Symbol: "FAIL", Value: decimal.NewFromInt(500), Resolved: false},
			{Symbol: "ZERO", Value: decimal.Zero, Resolved: true},
			{Symbol: "MSFT", Value: decimal.NewFromInt(500), Resolved: true},
		})
		require.Len(t, got, 2)
		assert.True(t, decimal.NewFromInt(50).Equal(got[0].Percentage))
		assert.True(t, decimal.NewFromInt(50).Equal(got[1].Percentage))
	})

	t.Run("zero total yields an empty sequence", func(t *testing.T) {
		got := ComputeAllocation([]HoldingValue{
			{Symbol: "FAIL", Value: decimal.NewFromInt(100), Resolved: false},
			{Symbol: "ZERO", Value: decimal.Zero, Resolved: true},
		})
		require.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("colors cycle through the palette by position", func(t *testing.T) {
		values := make([]HoldingValue, len(palette)+2)
		for i := range values {
			values[i] = HoldingValue{
				Symbol:   string(rune('A' + i)),
				Value:    decimal.NewFromInt(int64(1000 - i)),
				Resolved: true,
			}
		}

		got := ComputeAllocation(values)
		require.Len(t, got, len(palette)+2)
		assert.Equal(t, palette[0], got[0].Color)
		assert.Equal(t, palette[0], got[len(palette)].Color, "palette wraps around")
		assert.Equal(t, palette[1], got[len(palette)+1].Color)
	})
}
