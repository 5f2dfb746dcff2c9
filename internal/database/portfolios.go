package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quantfolio/portfolio-service/internal/models"
)

// CreatePortfolio inserts a new portfolio
func (db *DB) CreatePortfolio(p *models.Portfolio) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.BaseCurrency == "" {
		p.BaseCurrency = "USD"
	}
	now := time.Now()

	_, err := db.conn.Exec(`
		INSERT INTO portfolios (id, name, base_currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, p.ID, p.Name, p.BaseCurrency, now, now)

	if err != nil {
		return fmt.Errorf("failed to create portfolio: %w", err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// GetPortfolio retrieves a portfolio by ID
func (db *DB) GetPortfolio(id uuid.UUID) (*models.Portfolio, error) {
	var p models.Portfolio
	err := db.conn.QueryRow(`
		SELECT id, name, base_currency, created_at, updated_at
		FROM portfolios
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.BaseCurrency, &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("portfolio not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}
	return &p, nil
}

// ListPortfolios retrieves all portfolios ordered by creation time
func (db *DB) ListPortfolios() ([]*models.Portfolio, error) {
	rows, err := db.conn.Query(`
		SELECT id, name, base_currency, created_at, updated_at
		FROM portfolios
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []*models.Portfolio
	for rows.Next() {
		var p models.Portfolio
		if err := rows.Scan(&p.ID, &p.Name, &p.BaseCurrency, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, &p)
	}
	return portfolios, rows.Err()
}

// RenamePortfolio updates a portfolio's name
func (db *DB) RenamePortfolio(id uuid.UUID, name string) error {
	result, err := db.conn.Exec(`
		UPDATE portfolios SET name = $1, updated_at = $2 WHERE id = $3
	`, name, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to rename portfolio: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("portfolio not found: %s", id)
	}
	return nil
}

// DeletePortfolio removes a portfolio and everything owned by it. The cascade
// is an explicit multi-step delete inside one transaction, not a database
// foreign-key cascade.
func (db *DB) DeletePortfolio(id uuid.UUID) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM holding_transactions WHERE portfolio_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete portfolio transactions: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM holdings WHERE portfolio_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete portfolio holdings: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM portfolios WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("portfolio not found: %s", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
