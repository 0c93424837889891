package flips

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/flipsight/flipsight/internal/database"
	"github.com/flipsight/flipsight/internal/domain"
)

// Repository persists flip records, import batches and daily aggregates in
// the flips database.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository creates a flips repository.
func NewRepository(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "flips_repository").Logger(),
	}
}

// Batch describes one recorded import.
type Batch struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Filename  string    `json:"filename"`
	Imported  int       `json:"imported"`
	Skipped   int       `json:"skipped"`
	CreatedAt time.Time `json:"created_at"`
}

// DailyStat is one pre-aggregated day of flipping.
type DailyStat struct {
	Date     string  `json:"date"`
	Profit   float64 `json:"profit"`
	Tax      float64 `json:"tax"`
	Flips    int     `json:"flips"`
	Quantity int     `json:"quantity"`
	AvgROI   float64 `json:"avg_roi"`
}

// Summary holds lifetime aggregates over all stored flips.
type Summary struct {
	TotalProfit   float64 `json:"total_profit"`
	TotalTax      float64 `json:"total_tax"`
	TotalFlips    int     `json:"total_flips"`
	TotalQuantity int     `json:"total_quantity"`
	AvgROI        float64 `json:"avg_roi"`
	Accounts      int     `json:"accounts"`
	Items         int     `json:"items"`
	FirstFlip     string  `json:"first_flip,omitempty"`
	LastFlip      string  `json:"last_flip,omitempty"`
}

// InsertBatch stores an import batch and its records atomically.
func (r *Repository) InsertBatch(ctx context.Context, batch Batch, records []domain.FlipRecord) error {
	return database.WithTransaction(r.db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO import_batches (id, source, filename, imported, skipped, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			batch.ID, batch.Source, batch.Filename, batch.Imported, batch.Skipped,
			batch.CreatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("failed to insert import batch: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO flips (account, item_id, item_name, quantity, avg_buy_price,
			                    avg_sell_price, tax, profit, roi, opened_at, closed_at, import_batch)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare flip insert: %w", err)
		}
		defer stmt.Close()

		for _, f := range records {
			_, err := stmt.ExecContext(ctx,
				f.Account, f.ItemID, f.ItemName, f.Quantity, f.AvgBuyPrice,
				f.AvgSellPrice, f.Tax, f.Profit, f.ROI,
				f.OpenedAt.UTC().Format(time.RFC3339),
				f.ClosedAt.UTC().Format(time.RFC3339),
				batch.ID)
			if err != nil {
				return fmt.Errorf("failed to insert flip: %w", err)
			}
		}
		return nil
	})
}

// All returns every stored flip, oldest close first.
func (r *Repository) All(ctx context.Context) ([]domain.FlipRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account, item_id, item_name, quantity, avg_buy_price,
		        avg_sell_price, tax, profit, roi, opened_at, closed_at, import_batch
		 FROM flips ORDER BY closed_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query flips: %w", err)
	}
	defer rows.Close()

	return scanFlips(rows)
}

// Between returns flips whose close time falls in [from, to).
func (r *Repository) Between(ctx context.Context, from, to time.Time) ([]domain.FlipRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account, item_id, item_name, quantity, avg_buy_price,
		        avg_sell_price, tax, profit, roi, opened_at, closed_at, import_batch
		 FROM flips WHERE closed_at >= ? AND closed_at < ? ORDER BY closed_at`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to query flips: %w", err)
	}
	defer rows.Close()

	return scanFlips(rows)
}

func scanFlips(rows *sql.Rows) ([]domain.FlipRecord, error) {
	var flips []domain.FlipRecord
	for rows.Next() {
		var f domain.FlipRecord
		var openedAt, closedAt string
		if err := rows.Scan(&f.ID, &f.Account, &f.ItemID, &f.ItemName, &f.Quantity,
			&f.AvgBuyPrice, &f.AvgSellPrice, &f.Tax, &f.Profit, &f.ROI,
			&openedAt, &closedAt, &f.ImportBatch); err != nil {
			return nil, fmt.Errorf("failed to scan flip: %w", err)
		}
		f.OpenedAt, _ = time.Parse(time.RFC3339, openedAt)
		f.ClosedAt, _ = time.Parse(time.RFC3339, closedAt)
		flips = append(flips, f)
	}
	return flips, rows.Err()
}

// HasBatchForFile reports whether a file was already imported, so rescans
// do not duplicate data.
func (r *Repository) HasBatchForFile(ctx context.Context, filename string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM import_batches WHERE filename = ?`, filename).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check import batch: %w", err)
	}
	return count > 0, nil
}

// Batches lists recorded imports, newest first.
func (r *Repository) Batches(ctx context.Context) ([]Batch, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, source, filename, imported, skipped, created_at
		 FROM import_batches ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query import batches: %w", err)
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		var b Batch
		var createdAt string
		if err := rows.Scan(&b.ID, &b.Source, &b.Filename, &b.Imported, &b.Skipped, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan import batch: %w", err)
		}
		b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// DeleteAll wipes all flips and batches, for replace-mode imports.
func (r *Repository) DeleteAll(ctx context.Context) error {
	return database.WithTransaction(r.db.Conn(), func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM flips`,
			`DELETE FROM import_batches`,
			`DELETE FROM daily_stats`,
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to clear table: %w", err)
			}
		}
		return nil
	})
}

// Summary computes lifetime aggregates in SQL.
func (r *Repository) Summary(ctx context.Context) (*Summary, error) {
	var s Summary
	var firstFlip, lastFlip sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(profit), 0), COALESCE(SUM(tax), 0), COUNT(*),
		        COALESCE(SUM(quantity), 0), COALESCE(AVG(roi), 0),
		        COUNT(DISTINCT account), COUNT(DISTINCT item_name),
		        MIN(closed_at), MAX(closed_at)
		 FROM flips`).Scan(
		&s.TotalProfit, &s.TotalTax, &s.TotalFlips, &s.TotalQuantity,
		&s.AvgROI, &s.Accounts, &s.Items, &firstFlip, &lastFlip)
	if err != nil {
		return nil, fmt.Errorf("failed to compute summary: %w", err)
	}
	s.FirstFlip = firstFlip.String
	s.LastFlip = lastFlip.String
	return &s, nil
}

// RebuildDailyStats recomputes the daily_stats table from scratch.
func (r *Repository) RebuildDailyStats(ctx context.Context) error {
	return database.WithTransaction(r.db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM daily_stats`); err != nil {
			return fmt.Errorf("failed to clear daily stats: %w", err)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO daily_stats (date, profit, tax, flips, quantity, avg_roi)
			 SELECT date(closed_at), SUM(profit), SUM(tax), COUNT(*), SUM(quantity), AVG(roi)
			 FROM flips GROUP BY date(closed_at)`)
		if err != nil {
			return fmt.Errorf("failed to rebuild daily stats: %w", err)
		}
		return nil
	})
}

// DailyStats returns the pre-aggregated per-day rows, oldest first.
// Zero from/to bounds are open-ended.
func (r *Repository) DailyStats(ctx context.Context, from, to time.Time) ([]DailyStat, error) {
	query := `SELECT date, profit, tax, flips, quantity, avg_roi FROM daily_stats`
	var args []interface{}
	switch {
	case !from.IsZero() && !to.IsZero():
		query += ` WHERE date >= ? AND date < ?`
		args = append(args, from.Format("2006-01-02"), to.Format("2006-01-02"))
	case !from.IsZero():
		query += ` WHERE date >= ?`
		args = append(args, from.Format("2006-01-02"))
	case !to.IsZero():
		query += ` WHERE date < ?`
		args = append(args, to.Format("2006-01-02"))
	}
	query += ` ORDER BY date`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []DailyStat
	for rows.Next() {
		var d DailyStat
		if err := rows.Scan(&d.Date, &d.Profit, &d.Tax, &d.Flips, &d.Quantity, &d.AvgROI); err != nil {
			return nil, fmt.Errorf("failed to scan daily stat: %w", err)
		}
		stats = append(stats, d)
	}
	return stats, rows.Err()
}
