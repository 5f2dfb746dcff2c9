package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Range names a trailing window for the history chart
type Range string

const (
	RangeWeek     Range = "1w"
	RangeMonth    Range = "1m"
	RangeQuarter  Range = "3m"
	RangeHalfYear Range = "6m"
	RangeYear     Range = "1y"
	RangeAll      Range = "all"
)

// ParseRange validates a range string from the API, defaulting to all time
func ParseRange(s string) (Range, error) {
	if s == "" {
		return RangeAll, nil
	}
	switch r := Range(s); r {
	case RangeWeek, RangeMonth, RangeQuarter, RangeHalfYear, RangeYear, RangeAll:
		return r, nil
	}
	return "", fmt.Errorf("unknown range %q", s)
}

// Floor returns the earliest date the range covers, anchored at now.
// The all-time range has no floor of its own and returns earliest.
func (r Range) Floor(now, earliest time.Time) time.Time {
	switch r {
	case RangeWeek:
		return now.AddDate(0, 0, -7)
	case RangeMonth:
		return now.AddDate(0, -1, 0)
	case RangeQuarter:
		return now.AddDate(0, -3, 0)
	case RangeHalfYear:
		return now.AddDate(0, -6, 0)
	case RangeYear:
		return now.AddDate(-1, 0, 0)
	default:
		return earliest
	}
}

// PortfolioHistoryPoint is one day's aggregate portfolio value. Derived, never persisted.
type PortfolioHistoryPoint struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// HistorySnapshot is the published result of the most recent history refresh
type HistorySnapshot struct {
	Data          []PortfolioHistoryPoint `json:"data"`
	FailedSymbols []string                `json:"failed_symbols,omitempty"`
	Error         string                  `json:"error,omitempty"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

// AllocationSlice is one holding's share of the portfolio's current value
type AllocationSlice struct {
	Symbol     string          `json:"symbol"`
	Value      decimal.Decimal `json:"value"`
	Percentage decimal.Decimal `json:"percentage"`
	Color      string          `json:"color"`
}
