package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DayFormat is the canonical calendar-day form used for price dates
const DayFormat = "2006-01-02"

// DailyPricePoint represents one day's OHLCV data for a symbol from one provider
type DailyPricePoint struct {
	ID        int             `json:"id"`
	Symbol    string          `json:"symbol"`
	Provider  string          `json:"provider"`
	Date      time.Time       `json:"date"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Day returns the point's date in canonical YYYY-MM-DD form
func (p *DailyPricePoint) Day() string {
	return p.Date.Format(DayFormat)
}

// SyncMetadata tracks the last full refresh of a (symbol, provider) series.
// expected_count is compared against the stored row count to detect partial
// writes or external tampering.
type SyncMetadata struct {
	Symbol        string    `json:"symbol"`
	Provider      string    `json:"provider"`
	LastSync      time.Time `json:"last_sync"`
	ExpectedCount int       `json:"expected_count"`
}

// Quote is a current-moment snapshot for a symbol
type Quote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Open          decimal.Decimal `json:"open"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	Timestamp     time.Time       `json:"timestamp"`
}

// SymbolMatch is one result from a symbol search
type SymbolMatch struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Type   string `json:"type"`
}
