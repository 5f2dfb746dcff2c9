package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quantfolio/portfolio-service/internal/marketdata"
	"github.com/quantfolio/portfolio-service/internal/models"
)

// ErrSuperseded is returned by a refresh that lost to a newer invocation for
// the same portfolio. Its partial work is discarded and nothing is published.
var ErrSuperseded = errors.New("portfolio: refresh superseded by a newer request")

// PriceStore is the persistent price cache consumed by the history service
type PriceStore interface {
	GetPriceSeries(symbol, provider string, from, to time.Time) ([]*models.DailyPricePoint, error)
	ReplacePriceSeries(symbol, provider string, points []*models.DailyPricePoint) error
}

// refreshState tracks the in-flight and published refresh for one portfolio
type refreshState struct {
	generation uint64
	cancel     context.CancelFunc
	published  *models.HistorySnapshot
}

// HistoryService reconciles cached per-symbol price series with the external
// provider and publishes the aggregated portfolio value history. Refresh
// state is kept per portfolio: only the most recent invocation for a given
// portfolio may publish its snapshot. Each refresh takes a new generation
// number, and older in-flight refreshes for the same portfolio notice they
// are stale before every per-symbol step and before the final publish.
// Cancelling the superseded invocation's context is best effort; correctness
// rests on the generation compare alone.
type HistoryService struct {
	store    PriceStore
	provider marketdata.Provider
	log      *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	states map[uuid.UUID]*refreshState
}

// NewHistoryService creates a history service over a price store and provider
func NewHistoryService(store PriceStore, provider marketdata.Provider) *HistoryService {
	return &HistoryService{
		store:    store,
		provider: provider,
		log:      slog.Default().With("component", "history"),
		now:      time.Now,
		states:   make(map[uuid.UUID]*refreshState),
	}
}

// Refresh recomputes the value history for a portfolio's holding set over the
// given range. Symbols are processed sequentially, in the order they first
// appear in the holdings list; one symbol's provider failure never blocks the
// rest. Returns ErrSuperseded if a newer refresh for the same portfolio
// started while this one ran.
func (s *HistoryService) Refresh(ctx context.Context, portfolioID uuid.UUID, holdings []*models.Holding, rng models.Range) (*models.HistorySnapshot, error) {
	gen, ctx := s.begin(ctx, portfolioID)

	if len(holdings) == 0 {
		snap := &models.HistorySnapshot{Data: nil, UpdatedAt: s.now()}
		if !s.publish(portfolioID, gen, snap) {
			return nil, ErrSuperseded
		}
		return snap, nil
	}

	if err := validateHoldings(holdings); err != nil {
		snap := &models.HistorySnapshot{Error: err.Error(), UpdatedAt: s.now()}
		if !s.publish(portfolioID, gen, snap) {
			return nil, ErrSuperseded
		}
		return snap, nil
	}

	// The required cache window runs from the oldest acquisition to today.
	from := dayStart(holdings[0].AddedAt)
	symbols := make([]string, 0, len(holdings))
	seen := make(map[string]struct{}, len(holdings))
	for _, h := range holdings {
		if d := dayStart(h.AddedAt); d.Before(from) {
			from = d
		}
		if _, ok := seen[h.Symbol]; !ok {
			seen[h.Symbol] = struct{}{}
			symbols = append(symbols, h.Symbol)
		}
	}
	to := s.now()

	prices := make(map[string][]*models.DailyPricePoint, len(symbols))
	var failed []string
	for _, symbol := range symbols {
		if !s.current(portfolioID, gen) {
			return nil, ErrSuperseded
		}

		points, err := s.resolveSeries(ctx, symbol, from, to)
		if err != nil {
			s.log.Warn("symbol refresh failed", "symbol", symbol, "error", err)
			failed = append(failed, symbol)
			continue
		}
		prices[symbol] = points
	}

	snap := &models.HistorySnapshot{
		Data:          ComputeHistory(holdings, prices, rng, to),
		FailedSymbols: failed,
		UpdatedAt:     s.now(),
	}
	if !s.publish(portfolioID, gen, snap) {
		return nil, ErrSuperseded
	}
	return snap, nil
}

// resolveSeries returns usable price points for the window, refreshing the
// cache from the provider when the cached series is missing, stale, or
// starts too late. The refetch always asks for the provider's maximal
// history regardless of the requested chart range, so one fetch satisfies
// every later window and a short-range refresh never shrinks the cached
// series.
func (s *HistoryService) resolveSeries(ctx context.Context, symbol string, from, to time.Time) ([]*models.DailyPricePoint, error) {
	cached, err := s.store.GetPriceSeries(symbol, s.provider.Name(), from, to)
	if err != nil {
		// Treat an unreadable cache like a miss and go to the provider.
		s.log.Warn("cache read failed", "symbol", symbol, "error", err)
	} else if Usable(cached, from, to) {
		return cached, nil
	}

	fetched, err := s.provider.GetHistoricalData(ctx, symbol, models.RangeAll)
	if err != nil {
		return nil, err
	}

	if err := s.store.ReplacePriceSeries(symbol, s.provider.Name(), fetched); err != nil {
		return nil, fmt.Errorf("failed to persist fetched series: %w", err)
	}

	return clip(fetched, from, to), nil
}

// EnsureSeries warms the cache for one symbol, fetching from the provider
// only when the cached trailing year is not usable. Used by the background
// consumer; it never touches published snapshots or the generation counters.
func (s *HistoryService) EnsureSeries(ctx context.Context, symbol string) error {
	symbol = models.CanonicalSymbol(symbol)
	to := s.now()
	from := to.AddDate(-1, 0, 0)

	cached, err := s.store.GetPriceSeries(symbol, s.provider.Name(), from, to)
	if err == nil && Usable(cached, from, to) {
		return nil
	}

	fetched, err := s.provider.GetHistoricalData(ctx, symbol, models.RangeAll)
	if err != nil {
		return fmt.Errorf("failed to fetch series for %s: %w", symbol, err)
	}
	if err := s.store.ReplacePriceSeries(symbol, s.provider.Name(), fetched); err != nil {
		return fmt.Errorf("failed to persist series for %s: %w", symbol, err)
	}
	return nil
}

// Snapshot returns the most recently published history state for a
// portfolio, or nil if nothing has been published for it yet
func (s *HistoryService) Snapshot(portfolioID uuid.UUID) *models.HistorySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[portfolioID]; ok {
		return st.published
	}
	return nil
}

// begin registers a new invocation for a portfolio: it takes the portfolio's
// next generation number and cancels the context of whichever invocation
// held it before.
func (s *HistoryService) begin(ctx context.Context, portfolioID uuid.UUID) (uint64, context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.states[portfolioID]
	if st == nil {
		st = &refreshState{}
		s.states[portfolioID] = st
	}

	if st.cancel != nil {
		st.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	st.cancel = cancel

	st.generation++
	return st.generation, ctx
}

func (s *HistoryService) current(portfolioID uuid.UUID, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[portfolioID]
	return ok && st.generation == gen
}

// publish installs the snapshot if the invocation is still current for its
// portfolio
func (s *HistoryService) publish(portfolioID uuid.UUID, gen uint64, snap *models.HistorySnapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[portfolioID]
	if !ok || st.generation != gen {
		return false
	}
	st.published = snap
	return true
}

func validateHoldings(holdings []*models.Holding) error {
	for _, h := range holdings {
		if h.Symbol == "" {
			return fmt.Errorf("holding %d has no symbol", h.ID)
		}
		if !h.Shares.IsPositive() {
			return fmt.Errorf("holding %s has non-positive shares", h.Symbol)
		}
	}
	return nil
}

func clip(points []*models.DailyPricePoint, from, to time.Time) []*models.DailyPricePoint {
	from, to = dayStart(from), dayStart(to)
	clipped := make([]*models.DailyPricePoint, 0, len(points))
	for _, p := range points {
		if p.Date.Before(from) || p.Date.After(to) {
			continue
		}
		clipped = append(clipped, p)
	}
	return clipped
}
