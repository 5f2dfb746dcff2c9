package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/quantfolio/portfolio-service/internal/models"
)

// palette cycles across allocation slices in descending-value order. Colors
// follow position, not symbol identity: the same holding can change color
// between renders when another symbol's quote fails. Allocation is
// presentation-only, so that is acceptable.
var palette = []string{
	"#4F46E5", "#0EA5E9", "#10B981", "#F59E0B", "#EF4444",
	"#8B5CF6", "#14B8A6", "#F97316", "#EC4899", "#84CC16",
}

var hundred = decimal.NewFromInt(100)

// HoldingValue pairs a holding's symbol with its current market value.
// Resolved is false when the quote lookup failed.
type HoldingValue struct {
	Symbol   string
	Value    decimal.Decimal
	Resolved bool
}

// ComputeAllocation derives the percentage breakdown across holdings from
// their instantaneous values. Unresolved and non-positive values are dropped
// before percentages are computed, so the remaining slices always sum to 100.
// Returns an empty slice when nothing has positive value.
func ComputeAllocation(values []HoldingValue) []models.AllocationSlice {
	included := make([]HoldingValue, 0, len(values))
	total := decimal.Zero
	for _, v := range values {
		if !v.Resolved || !v.Value.IsPositive() {
			continue
		}
		included = append(included, v)
		total = total.Add(v.Value)
	}

	if !total.IsPositive() {
		return []models.AllocationSlice{}
	}

	sort.SliceStable(included, func(i, j int) bool {
		return included[i].Value.GreaterThan(included[j].Value)
	})

	slices := make([]models.AllocationSlice, 0, len(included))
	for i, v := range included {
		slices = append(slices, models.AllocationSlice{
			Symbol:     v.Symbol,
			Value:      v.Value,
			Percentage: v.Value.Mul(hundred).Div(total),
			Color:      palette[i%len(palette)],
		})
	}
	return slices
}
