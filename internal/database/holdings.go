package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quantfolio/portfolio-service/internal/models"
)

// AddHolding adds a position to a portfolio. If the portfolio already holds
// the symbol, the two lots merge: shares are summed, the cost basis becomes
// the share-weighted average, and added_at keeps the earlier date. The merge
// and the buy journal entry commit in one transaction.
func (db *DB) AddHolding(h *models.Holding) error {
	h.Symbol = models.CanonicalSymbol(h.Symbol)
	if !h.Shares.IsPositive() {
		return fmt.Errorf("shares must be positive, got %s", h.Shares)
	}
	if !h.AvgCost.IsPositive() {
		return fmt.Errorf("avg cost must be positive, got %s", h.AvgCost)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	addShares, addPrice := h.Shares, h.AvgCost

	var existing models.Holding
	err = tx.QueryRow(`
		SELECT id, portfolio_id, symbol, shares, avg_cost, added_at, created_at, updated_at
		FROM holdings
		WHERE portfolio_id = $1 AND symbol = $2
		FOR UPDATE
	`, h.PortfolioID, h.Symbol).Scan(
		&existing.ID, &existing.PortfolioID, &existing.Symbol,
		&existing.Shares, &existing.AvgCost, &existing.AddedAt,
		&existing.CreatedAt, &existing.UpdatedAt,
	)

	switch {
	case err == sql.ErrNoRows:
		err = tx.QueryRow(`
			INSERT INTO holdings (portfolio_id, symbol, shares, avg_cost, added_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, h.PortfolioID, h.Symbol, h.Shares, h.AvgCost, h.AddedAt, now, now).Scan(&h.ID)
		if err != nil {
			return fmt.Errorf("failed to insert holding: %w", err)
		}
		h.CreatedAt = now
		h.UpdatedAt = now
	case err != nil:
		return fmt.Errorf("failed to look up holding: %w", err)
	default:
		existing.Merge(h.Shares, h.AvgCost, h.AddedAt)
		_, err = tx.Exec(`
			UPDATE holdings SET shares = $1, avg_cost = $2, added_at = $3, updated_at = $4
			WHERE id = $5
		`, existing.Shares, existing.AvgCost, existing.AddedAt, now, existing.ID)
		if err != nil {
			return fmt.Errorf("failed to merge holding: %w", err)
		}
		existing.UpdatedAt = now
		*h = existing
	}

	if _, err := tx.Exec(`
		INSERT INTO holding_transactions (portfolio_id, symbol, tx_type, shares, price, executed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, h.PortfolioID, h.Symbol, models.TxTypeBuy, addShares, addPrice, now, now); err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetHoldingByID retrieves a single holding
func (db *DB) GetHoldingByID(id int) (*models.Holding, error) {
	var h models.Holding
	err := db.conn.QueryRow(`
		SELECT id, portfolio_id, symbol, shares, avg_cost, added_at, created_at, updated_at
		FROM holdings
		WHERE id = $1
	`, id).Scan(
		&h.ID, &h.PortfolioID, &h.Symbol, &h.Shares, &h.AvgCost,
		&h.AddedAt, &h.CreatedAt, &h.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("holding not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return &h, nil
}

// GetHoldingsByPortfolio retrieves all holdings in a portfolio in the order
// they were first added. The stable order matters: the history refresh
// processes symbols in this sequence.
func (db *DB) GetHoldingsByPortfolio(portfolioID uuid.UUID) ([]*models.Holding, error) {
	rows, err := db.conn.Query(`
		SELECT id, portfolio_id, symbol, shares, avg_cost, added_at, created_at, updated_at
		FROM holdings
		WHERE portfolio_id = $1
		ORDER BY created_at ASC, id ASC
	`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to get holdings: %w", err)
	}
	defer rows.Close()

	var holdings []*models.Holding
	for rows.Next() {
		var h models.Holding
		err := rows.Scan(
			&h.ID, &h.PortfolioID, &h.Symbol, &h.Shares, &h.AvgCost,
			&h.AddedAt, &h.CreatedAt, &h.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, &h)
	}
	return holdings, rows.Err()
}

// UpdateHolding changes a holding's share count and cost basis. Reducing the
// share count records a sell in the transaction journal.
func (db *DB) UpdateHolding(id int, shares, avgCost decimal.Decimal) (*models.Holding, error) {
	if !shares.IsPositive() {
		return nil, fmt.Errorf("shares must be positive, got %s", shares)
	}
	if !avgCost.IsPositive() {
		return nil, fmt.Errorf("avg cost must be positive, got %s", avgCost)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var h models.Holding
	err = tx.QueryRow(`
		SELECT id, portfolio_id, symbol, shares, avg_cost, added_at, created_at, updated_at
		FROM holdings
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(
		&h.ID, &h.PortfolioID, &h.Symbol, &h.Shares, &h.AvgCost,
		&h.AddedAt, &h.CreatedAt, &h.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("holding not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up holding: %w", err)
	}

	now := time.Now()
	if shares.LessThan(h.Shares) {
		if _, err := tx.Exec(`
			INSERT INTO holding_transactions (portfolio_id, symbol, tx_type, shares, price, executed_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, h.PortfolioID, h.Symbol, models.TxTypeSell, h.Shares.Sub(shares), h.AvgCost, now, now); err != nil {
			return nil, fmt.Errorf("failed to record transaction: %w", err)
		}
	}

	if _, err := tx.Exec(`
		UPDATE holdings SET shares = $1, avg_cost = $2, updated_at = $3 WHERE id = $4
	`, shares, avgCost, now, id); err != nil {
		return nil, fmt.Errorf("failed to update holding: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	h.Shares = shares
	h.AvgCost = avgCost
	h.UpdatedAt = now
	return &h, nil
}

// DeleteHolding removes a holding and records the closing sell
func (db *DB) DeleteHolding(id int) (*models.Holding, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var h models.Holding
	err = tx.QueryRow(`
		SELECT id, portfolio_id, symbol, shares, avg_cost, added_at, created_at, updated_at
		FROM holdings
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(
		&h.ID, &h.PortfolioID, &h.Symbol, &h.Shares, &h.AvgCost,
		&h.AddedAt, &h.CreatedAt, &h.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("holding not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up holding: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM holdings WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to delete holding: %w", err)
	}

	now := time.Now()
	if _, err := tx.Exec(`
		INSERT INTO holding_transactions (portfolio_id, symbol, tx_type, shares, price, executed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, h.PortfolioID, h.Symbol, models.TxTypeSell, h.Shares, h.AvgCost, now, now); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &h, nil
}

// GetTransactionsByPortfolio retrieves the buy/sell journal for a portfolio
func (db *DB) GetTransactionsByPortfolio(portfolioID uuid.UUID) ([]*models.HoldingTransaction, error) {
	rows, err := db.conn.Query(`
		SELECT id, portfolio_id, symbol, tx_type, shares, price, executed_at, created_at
		FROM holding_transactions
		WHERE portfolio_id = $1
		ORDER BY executed_at DESC
	`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var txs []*models.HoldingTransaction
	for rows.Next() {
		var t models.HoldingTransaction
		err := rows.Scan(
			&t.ID, &t.PortfolioID, &t.Symbol, &t.TxType,
			&t.Shares, &t.Price, &t.ExecutedAt, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, &t)
	}
	return txs, rows.Err()
}
