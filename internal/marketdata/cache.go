package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantfolio/portfolio-service/internal/models"
)

// QuoteTTL bounds how long a current-price quote is served from Redis.
// Quotes move constantly; everything slower-moving lives in the SQL cache.
const QuoteTTL = 10 * time.Minute

// CachedProvider wraps a Provider with a Redis cache for quotes. Historical
// data and search pass straight through; only GetQuote is cached. Redis
// failures degrade to a direct provider call rather than surfacing.
type CachedProvider struct {
	Provider
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

// NewCachedProvider wraps a provider with a Redis quote cache
func NewCachedProvider(p Provider, rdb *redis.Client) *CachedProvider {
	return &CachedProvider{
		Provider: p,
		rdb:      rdb,
		ttl:      QuoteTTL,
		log:      slog.Default().With("component", "quote-cache"),
	}
}

// GetQuote returns a cached quote when fresh, falling back to the provider
func (c *CachedProvider) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	key := quoteKey(symbol)

	cached, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		var quote models.Quote
		if err := json.Unmarshal([]byte(cached), &quote); err == nil {
			return &quote, nil
		}
		c.log.Warn("discarding malformed cached quote", "symbol", symbol)
	} else if err != redis.Nil {
		c.log.Warn("quote cache read failed", "symbol", symbol, "error", err)
	}

	quote, err := c.Provider.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(quote); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.Warn("quote cache write failed", "symbol", symbol, "error", err)
		}
	}
	return quote, nil
}

func quoteKey(symbol string) string {
	return fmt.Sprintf("quote:%s", models.CanonicalSymbol(symbol))
}
