// Package marketdata defines the external price-provider boundary and the
// clients that implement it.
package marketdata

import (
	"context"
	"errors"

	"github.com/quantfolio/portfolio-service/internal/models"
)

// Provider failure kinds. Callers classify with errors.Is; anything not
// matching one of these is a network or unknown failure. The history
// pipeline treats every kind the same way: the symbol failed, move on.
var (
	ErrInvalidAPIKey  = errors.New("marketdata: invalid API key")
	ErrRateLimited    = errors.New("marketdata: rate limit exceeded")
	ErrSymbolNotFound = errors.New("marketdata: symbol not found")
)

// Provider is the external market-data source consumed by the core
type Provider interface {
	// Name identifies the provider in cache keys and sync metadata.
	Name() string

	// GetQuote returns the current-moment snapshot for a symbol.
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)

	// GetHistoricalData returns daily close-granularity history for a symbol,
	// ascending by date. Providers may return more than the requested range;
	// they never return less when more is available.
	GetHistoricalData(ctx context.Context, symbol string, rng models.Range) ([]*models.DailyPricePoint, error)

	// SearchSymbols returns symbols matching a free-text query.
	SearchSymbols(ctx context.Context, query string) ([]models.SymbolMatch, error)
}
