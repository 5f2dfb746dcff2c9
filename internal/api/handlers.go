package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/quantfolio/portfolio-service/internal/database"
	"github.com/quantfolio/portfolio-service/internal/kafka"
	"github.com/quantfolio/portfolio-service/internal/marketdata"
	"github.com/quantfolio/portfolio-service/internal/models"
	"github.com/quantfolio/portfolio-service/internal/portfolio"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	db       *database.DB
	history  *portfolio.HistoryService
	provider marketdata.Provider
	producer *kafka.Producer
}

// NewHandler creates a new Handler
func NewHandler(db *database.DB, history *portfolio.HistoryService, provider marketdata.Provider, producer *kafka.Producer) *Handler {
	return &Handler{
		db:       db,
		history:  history,
		provider: provider,
		producer: producer,
	}
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ListPortfolios handles GET /portfolios
func (h *Handler) ListPortfolios(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.db.ListPortfolios()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, portfolios)
}

// CreatePortfolio handles POST /portfolios
func (h *Handler) CreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string `json:"name"`
		BaseCurrency string `json:"base_currency"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	p := &models.Portfolio{
		Name:         req.Name,
		BaseCurrency: req.BaseCurrency,
	}
	if err := h.db.CreatePortfolio(p); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, p)
}

// GetPortfolio handles GET /portfolios/{id}
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	p, err := h.db.GetPortfolio(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, p)
}

// RenamePortfolio handles PUT /portfolios/{id}
func (h *Handler) RenamePortfolio(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	if err := h.db.RenamePortfolio(id, req.Name); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	p, err := h.db.GetPortfolio(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, p)
}

// DeletePortfolio handles DELETE /portfolios/{id}
func (h *Handler) DeletePortfolio(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	if err := h.db.DeletePortfolio(id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListHoldings handles GET /portfolios/{id}/holdings
func (h *Handler) ListHoldings(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	holdings, err := h.db.GetHoldingsByPortfolio(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, holdings)
}

// AddHolding handles POST /portfolios/{id}/holdings
func (h *Handler) AddHolding(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	var req struct {
		Symbol  string          `json:"symbol"`
		Shares  decimal.Decimal `json:"shares"`
		AvgCost decimal.Decimal `json:"avg_cost"`
		AddedAt string          `json:"added_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}

	addedAt := time.Now().UTC()
	if req.AddedAt != "" {
		parsed, err := time.Parse(models.DayFormat, req.AddedAt)
		if err != nil {
			http.Error(w, "added_at must be formatted as YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		addedAt = parsed
	}

	holding := &models.Holding{
		PortfolioID: id,
		Symbol:      req.Symbol,
		Shares:      req.Shares,
		AvgCost:     req.AvgCost,
		AddedAt:     addedAt,
	}
	if err := h.db.AddHolding(holding); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Publish Kafka event so the consumer can warm the price cache
	if h.producer != nil {
		if err := h.producer.PublishHoldingAdded(r.Context(), holding); err != nil {
			// Log error but don't fail the request
		}
	}

	respondJSON(w, http.StatusCreated, holding)
}

// UpdateHolding handles PUT /portfolios/{id}/holdings/{holdingID}
func (h *Handler) UpdateHolding(w http.ResponseWriter, r *http.Request) {
	holdingID, ok := h.holdingID(w, r)
	if !ok {
		return
	}

	var req struct {
		Shares  decimal.Decimal `json:"shares"`
		AvgCost decimal.Decimal `json:"avg_cost"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	holding, err := h.db.UpdateHolding(holdingID, req.Shares, req.AvgCost)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h.producer != nil {
		if err := h.producer.PublishHoldingUpdated(r.Context(), holding); err != nil {
			// Log error but don't fail the request
		}
	}

	respondJSON(w, http.StatusOK, holding)
}

// DeleteHolding handles DELETE /portfolios/{id}/holdings/{holdingID}
func (h *Handler) DeleteHolding(w http.ResponseWriter, r *http.Request) {
	holdingID, ok := h.holdingID(w, r)
	if !ok {
		return
	}

	holding, err := h.db.DeleteHolding(holdingID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	if h.producer != nil {
		if err := h.producer.PublishHoldingRemoved(r.Context(), holding.PortfolioID.String(), holding.Symbol); err != nil {
			// Log error but don't fail the request
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListTransactions handles GET /portfolios/{id}/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	txs, err := h.db.GetTransactionsByPortfolio(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, txs)
}

// GetHistory handles GET /portfolios/{id}/history?range=1m
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	rng, err := models.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	holdings, err := h.db.GetHoldingsByPortfolio(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	snap, err := h.history.Refresh(r.Context(), id, holdings, rng)
	if err != nil {
		if errors.Is(err, portfolio.ErrSuperseded) {
			// A newer refresh for this portfolio won the race; hand back
			// whatever it published.
			if current := h.history.Snapshot(id); current != nil {
				respondJSON(w, http.StatusOK, current)
				return
			}
			http.Error(w, "refresh superseded by a newer request", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

// GetAllocation handles GET /portfolios/{id}/allocation
func (h *Handler) GetAllocation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	holdings, err := h.db.GetHoldingsByPortfolio(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	values := make([]portfolio.HoldingValue, 0, len(holdings))
	for _, holding := range holdings {
		hv := portfolio.HoldingValue{Symbol: holding.Symbol}
		quote, err := h.provider.GetQuote(r.Context(), holding.Symbol)
		if err == nil {
			hv.Value = holding.Shares.Mul(quote.Price)
			hv.Resolved = true
		}
		values = append(values, hv)
	}

	respondJSON(w, http.StatusOK, portfolio.ComputeAllocation(values))
}

// GetQuote handles GET /quotes/{symbol}
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	quote, err := h.provider.GetQuote(r.Context(), symbol)
	if err != nil {
		http.Error(w, err.Error(), providerStatus(err))
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// SearchSymbols handles GET /search?q=apple
func (h *Handler) SearchSymbols(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "q is required", http.StatusBadRequest)
		return
	}

	matches, err := h.provider.SearchSymbols(r.Context(), query)
	if err != nil {
		http.Error(w, err.Error(), providerStatus(err))
		return
	}

	respondJSON(w, http.StatusOK, matches)
}

// GetWatchlist handles GET /watchlist
func (h *Handler) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.db.GetWatchlist()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, entries)
}

// AddWatchlistEntry handles POST /watchlist
func (h *Handler) AddWatchlistEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string `json:"symbol"`
		Notes  string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}

	entry := &models.WatchlistEntry{
		Symbol:  req.Symbol,
		Enabled: true,
		Notes:   req.Notes,
	}
	if err := h.db.UpsertWatchlistEntry(entry); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, entry)
}

// RemoveWatchlistEntry handles DELETE /watchlist/{symbol}
func (h *Handler) RemoveWatchlistEntry(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	if err := h.db.DeleteWatchlistEntry(symbol); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// VerifyCacheIntegrity handles GET /cache/integrity
func (h *Handler) VerifyCacheIntegrity(w http.ResponseWriter, r *http.Request) {
	mismatched, err := h.db.VerifyIntegrity()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"healthy":            len(mismatched) == 0,
		"mismatched_symbols": mismatched,
	})
}

func (h *Handler) portfolioID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid portfolio id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) holdingID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["holdingID"])
	if err != nil {
		http.Error(w, "invalid holding id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// providerStatus maps market data errors onto HTTP status codes
func providerStatus(err error) int {
	switch {
	case errors.Is(err, marketdata.ErrSymbolNotFound):
		return http.StatusNotFound
	case errors.Is(err, marketdata.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, marketdata.ErrInvalidAPIKey):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
