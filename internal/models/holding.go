package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction type constants
const (
	TxTypeBuy  = "BUY"
	TxTypeSell = "SELL"
)

// Portfolio groups a set of holdings under one name
type Portfolio struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	BaseCurrency string    `json:"base_currency"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Holding represents a position in one symbol within one portfolio
type Holding struct {
	ID          int             `json:"id"`
	PortfolioID uuid.UUID       `json:"portfolio_id"`
	Symbol      string          `json:"symbol"`
	Shares      decimal.Decimal `json:"shares"`
	AvgCost     decimal.Decimal `json:"avg_cost"`
	AddedAt     time.Time       `json:"added_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Merge folds an additional purchase of the same symbol into the holding.
// The cost basis becomes the share-weighted average of both lots and the
// acquisition date keeps the earlier of the two timestamps.
func (h *Holding) Merge(shares, price decimal.Decimal, addedAt time.Time) {
	total := h.Shares.Add(shares)
	if total.IsPositive() {
		h.AvgCost = h.Shares.Mul(h.AvgCost).Add(shares.Mul(price)).Div(total)
	}
	h.Shares = total
	if addedAt.Before(h.AddedAt) {
		h.AddedAt = addedAt
	}
}

// HoldingTransaction records one buy or sell against a portfolio
type HoldingTransaction struct {
	ID          int             `json:"id"`
	PortfolioID uuid.UUID       `json:"portfolio_id"`
	Symbol      string          `json:"symbol"`
	TxType      string          `json:"tx_type"`
	Shares      decimal.Decimal `json:"shares"`
	Price       decimal.Decimal `json:"price"`
	ExecutedAt  time.Time       `json:"executed_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

// WatchlistEntry represents a symbol the user is watching
type WatchlistEntry struct {
	Symbol    string    `json:"symbol"`
	Enabled   bool      `json:"enabled"`
	Notes     string    `json:"notes,omitempty"`
	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanonicalSymbol normalizes a ticker for storage and comparison
func CanonicalSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
