package stocks

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockpulse/stockpulse/internal/database"
	"github.com/stockpulse/stockpulse/internal/domain"
)

// dateLayout is how bar dates are stored (one bar per calendar day).
const dateLayout = "2006-01-02"

// PriceRepository handles the stock_prices table in market.db.
type PriceRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPriceRepository creates a price repository.
func NewPriceRepository(db *sql.DB, log zerolog.Logger) *PriceRepository {
	return &PriceRepository{
		db:  db,
		log: log.With().Str("repository", "stock_prices").Logger(),
	}
}

// InsertBars stores bars for a stock inside one transaction. Bars whose
// (stock_id, date) already exists are skipped, so re-syncing the same range
// is idempotent. Returns the number of newly inserted bars.
func (r *PriceRepository) InsertBars(ctx context.Context, stockID int64, bars []domain.PriceBar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	inserted := 0
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO stock_prices
			(stock_id, date, open, high, low, close, volume, synthetic)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, b := range bars {
			res, err := stmt.ExecContext(ctx,
				stockID, b.Date.Format(dateLayout),
				b.Open, b.High, b.Low, b.Close, b.Volume, b.Synthetic,
			)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n > 0 {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert bars for stock %d: %w", stockID, err)
	}

	return inserted, nil
}

// History returns up to limit bars ordered oldest first.
func (r *PriceRepository) History(ctx context.Context, stockID int64, limit int) ([]domain.PriceBar, error) {
	if limit <= 0 {
		limit = 365
	}

	// Newest-first window flipped to chronological order
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, open, high, low, close, volume, synthetic FROM (
			SELECT date, open, high, low, close, volume, synthetic
			FROM stock_prices WHERE stock_id = ?
			ORDER BY date DESC LIMIT ?
		) ORDER BY date ASC`, stockID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history for stock %d: %w", stockID, err)
	}
	defer rows.Close()

	var bars []domain.PriceBar
	for rows.Next() {
		var b domain.PriceBar
		var date string
		if err := rows.Scan(&date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.Synthetic); err != nil {
			return nil, fmt.Errorf("failed to scan price bar: %w", err)
		}
		b.Date, _ = time.Parse(dateLayout, date)
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// RecentCloses returns up to limit closing prices ordered oldest first.
func (r *PriceRepository) RecentCloses(ctx context.Context, stockID int64, limit int) ([]float64, error) {
	bars, err := r.History(ctx, stockID, limit)
	if err != nil {
		return nil, err
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes, nil
}

// LatestDate returns the date of the newest stored bar, nil when the stock
// has no bars yet.
func (r *PriceRepository) LatestDate(ctx context.Context, stockID int64) (*time.Time, error) {
	var date sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT MAX(date) FROM stock_prices WHERE stock_id = ?", stockID,
	).Scan(&date)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest bar date for stock %d: %w", stockID, err)
	}
	if !date.Valid {
		return nil, nil
	}

	t, err := time.Parse(dateLayout, date.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bar date %q: %w", date.String, err)
	}
	return &t, nil
}

// Count returns the number of stored bars for a stock.
func (r *PriceRepository) Count(ctx context.Context, stockID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM stock_prices WHERE stock_id = ?", stockID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count bars for stock %d: %w", stockID, err)
	}
	return n, nil
}
