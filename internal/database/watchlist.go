package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/quantfolio/portfolio-service/internal/models"
)

// UpsertWatchlistEntry adds a symbol to the watchlist, updating it in place
// if it is already present
func (db *DB) UpsertWatchlistEntry(e *models.WatchlistEntry) error {
	e.Symbol = models.CanonicalSymbol(e.Symbol)
	now := time.Now()

	_, err := db.conn.Exec(`
		INSERT INTO watchlist (symbol, enabled, notes, added_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (symbol) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
	`, e.Symbol, e.Enabled, e.Notes, now, now)

	if err != nil {
		return fmt.Errorf("failed to upsert watchlist entry: %w", err)
	}
	e.AddedAt = now
	e.UpdatedAt = now
	return nil
}

// GetWatchlist retrieves all watchlist entries ordered by symbol
func (db *DB) GetWatchlist() ([]*models.WatchlistEntry, error) {
	rows, err := db.conn.Query(`
		SELECT symbol, enabled, notes, added_at, updated_at
		FROM watchlist
		ORDER BY symbol ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get watchlist: %w", err)
	}
	defer rows.Close()

	var entries []*models.WatchlistEntry
	for rows.Next() {
		var e models.WatchlistEntry
		var notes sql.NullString
		if err := rows.Scan(&e.Symbol, &e.Enabled, &notes, &e.AddedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist entry: %w", err)
		}
		if notes.Valid {
			e.Notes = notes.String
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// DeleteWatchlistEntry removes a symbol from the watchlist
func (db *DB) DeleteWatchlistEntry(symbol string) error {
	result, err := db.conn.Exec(
		`DELETE FROM watchlist WHERE symbol = $1`,
		models.CanonicalSymbol(symbol),
	)
	if err != nil {
		return fmt.Errorf("failed to delete watchlist entry: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("watchlist entry not found: %s", symbol)
	}
	return nil
}
