// Package recommendations stores and serves scored recommendations.
package recommendations

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockpulse/stockpulse/internal/database"
	"github.com/stockpulse/stockpulse/internal/domain"
)

const timeLayout = "2006-01-02 15:04:05"

// Repository handles the stock_recommendations table in analysis.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a recommendations repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "recommendations").Logger(),
	}
}

const recColumns = `id, stock_id, symbol, total_score,
	technical_score, fundamental_score, sentiment_score, momentum_score,
	label, risk_level, confidence, reasoning, created_at, expires_at`

// Upsert replaces any prior recommendation for the stock with rec, in one
// transaction. At most one row per stock survives.
func (r *Repository) Upsert(ctx context.Context, rec *domain.Recommendation) error {
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM stock_recommendations WHERE stock_id = ?", rec.StockID,
		); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO stock_recommendations
			(stock_id, symbol, total_score,
			 technical_score, fundamental_score, sentiment_score, momentum_score,
			 label, risk_level, confidence, reasoning, created_at, expires_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.StockID, strings.ToUpper(rec.Symbol), rec.TotalScore,
			rec.Scores.Technical, rec.Scores.Fundamental, rec.Scores.Sentiment, rec.Scores.Momentum,
			string(rec.Label), string(rec.RiskLevel), rec.Confidence, rec.Reasoning,
			rec.CreatedAt.UTC().Format(timeLayout),
			rec.ExpiresAt.UTC().Format(timeLayout),
		)
		if err != nil {
			return err
		}

		rec.ID, _ = res.LastInsertId()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert recommendation for %s: %w", rec.Symbol, err)
	}
	return nil
}

// GetBySymbol returns the unexpired recommendation for a symbol,
// (nil, nil) when none exists. Expired rows stay in storage until the
// cleanup job removes them but are never returned.
func (r *Repository) GetBySymbol(ctx context.Context, symbol string) (*domain.Recommendation, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM stock_recommendations WHERE symbol = ? AND expires_at > ?", recColumns)

	rec, err := scanRecommendation(r.db.QueryRowContext(ctx, query,
		strings.ToUpper(symbol), time.Now().UTC().Format(timeLayout)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendation for %s: %w", symbol, err)
	}
	return rec, nil
}

// Query returns unexpired recommendations with total_score >= minScore,
// optionally restricted to the given risk levels, ordered by score
// descending. Expiry and risk filtering happen in SQL.
func (r *Repository) Query(ctx context.Context, minScore float64, riskLevels []domain.RiskLevel, limit int) ([]domain.Recommendation, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(
		"SELECT %s FROM stock_recommendations WHERE total_score >= ? AND expires_at > ?", recColumns)
	args := []any{minScore, time.Now().UTC().Format(timeLayout)}

	if len(riskLevels) > 0 {
		placeholders := make([]string, len(riskLevels))
		for i, rl := range riskLevels {
			placeholders[i] = "?"
			args = append(args, string(rl))
		}
		query += fmt.Sprintf(" AND risk_level IN (%s)", strings.Join(placeholders, ", "))
	}

	query += " ORDER BY total_score DESC LIMIT ?"
	args = append(args, limit)

	return r.queryRecommendations(ctx, query, args...)
}

// TopN returns the n highest-scoring unexpired recommendations.
func (r *Repository) TopN(ctx context.Context, n int) ([]domain.Recommendation, error) {
	if n <= 0 {
		n = 10
	}
	query := fmt.Sprintf(`SELECT %s FROM stock_recommendations
		WHERE expires_at > ? ORDER BY total_score DESC LIMIT ?`, recColumns)
	return r.queryRecommendations(ctx, query, time.Now().UTC().Format(timeLayout), n)
}

// DeleteExpired removes rows past their expiry and returns the count.
func (r *Repository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM stock_recommendations WHERE expires_at <= ?",
		time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired recommendations: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *Repository) queryRecommendations(ctx context.Context, query string, args ...any) ([]domain.Recommendation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	var out []domain.Recommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func scanRecommendation(row interface{ Scan(...any) error }) (*domain.Recommendation, error) {
	var rec domain.Recommendation
	var label, risk, createdAt, expiresAt string

	err := row.Scan(
		&rec.ID, &rec.StockID, &rec.Symbol, &rec.TotalScore,
		&rec.Scores.Technical, &rec.Scores.Fundamental, &rec.Scores.Sentiment, &rec.Scores.Momentum,
		&label, &risk, &rec.Confidence, &rec.Reasoning, &createdAt, &expiresAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Label = domain.RecommendationLabel(label)
	rec.RiskLevel = domain.RiskLevel(risk)
	rec.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	rec.ExpiresAt, _ = time.Parse(timeLayout, expiresAt)
	return &rec, nil
}
