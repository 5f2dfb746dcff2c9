package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/quantfolio/portfolio-service/internal/models"
)

// GetPriceSeries retrieves cached price points for a symbol and provider
// within the closed interval [from, to], ordered ascending by date
func (db *DB) GetPriceSeries(symbol, provider string, from, to time.Time) ([]*models.DailyPricePoint, error) {
	query := `
		SELECT id, symbol, provider, date, open, high, low, close, volume, created_at
		FROM price_data_daily
		WHERE symbol = $1 AND provider = $2 AND date >= $3 AND date <= $4
		ORDER BY date ASC
	`
	rows, err := db.conn.Query(query, symbol, provider, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get price series: %w", err)
	}
	defer rows.Close()

	var points []*models.DailyPricePoint
	for rows.Next() {
		var p models.DailyPricePoint
		var volume sql.NullInt64

		err := rows.Scan(
			&p.ID, &p.Symbol, &p.Provider, &p.Date, &p.Open, &p.High, &p.Low, &p.Close, &volume, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}

		if volume.Valid {
			p.Volume = volume.Int64
		}
		points = append(points, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read price series: %w", err)
	}

	return points, nil
}

// ReplacePriceSeries swaps the full cached series for a (symbol, provider)
// pair in a single transaction: all prior points are deleted, the new set is
// inserted, and the sync metadata is upserted with the new expected count.
// Readers never observe a partially replaced series.
func (db *DB) ReplacePriceSeries(symbol, provider string, points []*models.DailyPricePoint) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM price_data_daily WHERE symbol = $1 AND provider = $2`,
		symbol, provider,
	); err != nil {
		return fmt.Errorf("failed to delete existing price series: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO price_data_daily (symbol, provider, date, open, high, low, close, volume, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, p := range points {
		_, err := stmt.Exec(symbol, provider, p.Date, p.Open, p.High, p.Low, p.Close, p.Volume, now)
		if err != nil {
			return fmt.Errorf("failed to insert price point for %s on %s: %w", symbol, p.Day(), err)
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO sync_metadata (symbol, provider, last_sync, expected_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (symbol, provider) DO UPDATE SET
			last_sync = EXCLUDED.last_sync,
			expected_count = EXCLUDED.expected_count
	`, symbol, provider, now, len(points)); err != nil {
		return fmt.Errorf("failed to upsert sync metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetSyncMetadata retrieves the sync record for a (symbol, provider) pair
func (db *DB) GetSyncMetadata(symbol, provider string) (*models.SyncMetadata, error) {
	query := `
		SELECT symbol, provider, last_sync, expected_count
		FROM sync_metadata
		WHERE symbol = $1 AND provider = $2
	`
	var m models.SyncMetadata
	err := db.conn.QueryRow(query, symbol, provider).Scan(
		&m.Symbol, &m.Provider, &m.LastSync, &m.ExpectedCount,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no sync metadata for %s/%s", symbol, provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync metadata: %w", err)
	}
	return &m, nil
}

// VerifyIntegrity returns the symbols whose stored point count disagrees with
// the expected count recorded at sync time. A mismatch signals a partial
// write or external tampering; nothing is repaired here.
func (db *DB) VerifyIntegrity() ([]string, error) {
	query := `
		SELECT DISTINCT m.symbol
		FROM sync_metadata m
		LEFT JOIN (
			SELECT symbol, provider, COUNT(*) AS actual
			FROM price_data_daily
			GROUP BY symbol, provider
		) p ON p.symbol = m.symbol AND p.provider = m.provider
		WHERE COALESCE(p.actual, 0) <> m.expected_count
		ORDER BY m.symbol
	`
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to verify cache integrity: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read integrity results: %w", err)
	}

	return symbols, nil
}
