package analysis

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockpulse/stockpulse/internal/database"
	"github.com/stockpulse/stockpulse/internal/domain"
)

const timeLayout = "2006-01-02 15:04:05"

// Repository handles the ai_analysis table in analysis.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates an analysis repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "analysis").Logger(),
	}
}

// Replace stores a record, removing any prior records of the same type for
// the stock in the same transaction. At most one row per (stock, type)
// survives.
func (r *Repository) Replace(ctx context.Context, rec *domain.AnalysisRecord) error {
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM ai_analysis WHERE stock_id = ? AND analysis_type = ?",
			rec.StockID, string(rec.Type),
		); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO ai_analysis (stock_id, analysis_type, content, confidence, created_at, valid_until)
			VALUES (?, ?, ?, ?, ?, ?)`,
			rec.StockID, string(rec.Type), rec.Content, rec.Confidence,
			rec.CreatedAt.UTC().Format(timeLayout),
			rec.ValidUntil.UTC().Format(timeLayout),
		)
		if err != nil {
			return err
		}

		rec.ID, _ = res.LastInsertId()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace %s analysis for stock %d: %w", rec.Type, rec.StockID, err)
	}
	return nil
}

// GetLatestValid returns the newest unexpired record of the given type,
// (nil, nil) when none exists.
func (r *Repository) GetLatestValid(ctx context.Context, stockID int64, at domain.AnalysisType) (*domain.AnalysisRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, stock_id, analysis_type, content, confidence, created_at, valid_until
		FROM ai_analysis
		WHERE stock_id = ? AND analysis_type = ? AND valid_until > ?
		ORDER BY created_at DESC LIMIT 1`,
		stockID, string(at), time.Now().UTC().Format(timeLayout),
	)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s analysis for stock %d: %w", at, stockID, err)
	}
	return rec, nil
}

// ListValid returns every unexpired record for a stock, newest first.
func (r *Repository) ListValid(ctx context.Context, stockID int64) ([]domain.AnalysisRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, stock_id, analysis_type, content, confidence, created_at, valid_until
		FROM ai_analysis
		WHERE stock_id = ? AND valid_until > ?
		ORDER BY created_at DESC`,
		stockID, time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses for stock %d: %w", stockID, err)
	}
	defer rows.Close()

	var out []domain.AnalysisRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis record: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// DeleteExpired removes records past their validity window and returns how
// many were deleted.
func (r *Repository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM ai_analysis WHERE valid_until <= ?",
		time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired analyses: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func scanRecord(row interface{ Scan(...any) error }) (*domain.AnalysisRecord, error) {
	var rec domain.AnalysisRecord
	var at, createdAt, validUntil string

	err := row.Scan(&rec.ID, &rec.StockID, &at, &rec.Content, &rec.Confidence, &createdAt, &validUntil)
	if err != nil {
		return nil, err
	}

	rec.Type = domain.AnalysisType(at)
	rec.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	rec.ValidUntil, _ = time.Parse(timeLayout, validUntil)
	return &rec, nil
}
