package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Portfolio routes
	api.HandleFunc("/portfolios", handler.ListPortfolios).Methods("GET")
	api.HandleFunc("/portfolios", handler.CreatePortfolio).Methods("POST")
	api.HandleFunc("/portfolios/{id}", handler.GetPortfolio).Methods("GET")
	api.HandleFunc("/portfolios/{id}", handler.RenamePortfolio).Methods("PUT")
	api.HandleFunc("/portfolios/{id}", handler.DeletePortfolio).Methods("DELETE")

	// Holding routes
	api.HandleFunc("/portfolios/{id}/holdings", handler.ListHoldings).Methods("GET")
	api.HandleFunc("/portfolios/{id}/holdings", handler.AddHolding).Methods("POST")
	api.HandleFunc("/portfolios/{id}/holdings/{holdingID}", handler.UpdateHolding).Methods("PUT")
	api.HandleFunc("/portfolios/{id}/holdings/{holdingID}", handler.DeleteHolding).Methods("DELETE")
	api.HandleFunc("/portfolios/{id}/transactions", handler.ListTransactions).Methods("GET")

	// Valuation routes
	api.HandleFunc("/portfolios/{id}/history", handler.GetHistory).Methods("GET")
	api.HandleFunc("/portfolios/{id}/allocation", handler.GetAllocation).Methods("GET")

	// Market data routes
	api.HandleFunc("/quotes/{symbol}", handler.GetQuote).Methods("GET")
	api.HandleFunc("/search", handler.SearchSymbols).Methods("GET")

	// Watchlist routes
	api.HandleFunc("/watchlist", handler.GetWatchlist).Methods("GET")
	api.HandleFunc("/watchlist", handler.AddWatchlistEntry).Methods("POST")
	api.HandleFunc("/watchlist/{symbol}", handler.RemoveWatchlistEntry).Methods("DELETE")

	// Cache maintenance
	api.HandleFunc("/cache/integrity", handler.VerifyCacheIntegrity).Methods("GET")

	return r
}
