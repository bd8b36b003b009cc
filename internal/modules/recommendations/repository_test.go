package recommendations

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpulse/stockpulse/internal/database"
	"github.com/stockpulse/stockpulse/internal/domain"
)

func newAnalysisDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path: fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		Name: "analysis",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	return db.Conn()
}

func rec(stockID int64, symbol string, score float64, risk domain.RiskLevel, ttl time.Duration) *domain.Recommendation {
	now := time.Now().UTC()
	return &domain.Recommendation{
		StockID:    stockID,
		Symbol:     symbol,
		TotalScore: score,
		Scores:     domain.ComponentScores{Technical: score, Fundamental: score, Sentiment: score, Momentum: score},
		Label:      domain.LabelHold,
		RiskLevel:  risk,
		Confidence: 0.6,
		Reasoning:  "test",
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
}

func TestUpsertIdempotence(t *testing.T) {
	repo := NewRepository(newAnalysisDB(t), zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, rec(1, "AAPL", 0.6, domain.RiskMedium, time.Hour)))
	require.NoError(t, repo.Upsert(ctx, rec(1, "AAPL", 0.7, domain.RiskMedium, 2*time.Hour)))

	got, err := repo.GetBySymbol(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 0.7, got.TotalScore, 1e-9, "latest write wins")

	// Exactly one row, including the replaced one
	all, err := repo.Query(ctx, 0, nil, 100)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetBySymbolHidesExpired(t *testing.T) {
	repo := NewRepository(newAnalysisDB(t), zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, rec(1, "AAPL", 0.6, domain.RiskMedium, -time.Hour)))

	got, err := repo.GetBySymbol(ctx, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, got, "expired rows are invisible while still stored")
}

func TestQueryFiltersScoreRiskAndExpiry(t *testing.T) {
	repo := NewRepository(newAnalysisDB(t), zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, rec(1, "AAPL", 0.85, domain.RiskMedium, time.Hour)))
	require.NoError(t, repo.Upsert(ctx, rec(2, "MSFT", 0.40, domain.RiskHigh, time.Hour)))
	require.NoError(t, repo.Upsert(ctx, rec(3, "GOOG", 0.70, domain.RiskMedium, -time.Hour)))
	require.NoError(t, repo.Upsert(ctx, rec(4, "TSLA", 0.35, domain.RiskHigh, time.Hour)))

	// Score floor only
	recs, err := repo.Query(ctx, 0.5, nil, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1, "GOOG is expired, MSFT and TSLA score too low")
	assert.Equal(t, "AAPL", recs[0].Symbol)

	// Risk filter excludes medium
	recs, err = repo.Query(ctx, 0, []domain.RiskLevel{domain.RiskHigh}, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "MSFT", recs[0].Symbol, "ordered by score descending")
	assert.Equal(t, "TSLA", recs[1].Symbol)
}

func TestTopNOrdersByScore(t *testing.T) {
	repo := NewRepository(newAnalysisDB(t), zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, rec(1, "AAPL", 0.6, domain.RiskMedium, time.Hour)))
	require.NoError(t, repo.Upsert(ctx, rec(2, "MSFT", 0.9, domain.RiskMedium, time.Hour)))
	require.NoError(t, repo.Upsert(ctx, rec(3, "GOOG", 0.8, domain.RiskMedium, -time.Hour)))

	recs, err := repo.TopN(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "MSFT", recs[0].Symbol)
	assert.Equal(t, "AAPL", recs[1].Symbol, "expired GOOG skipped")
}

func TestDeleteExpired(t *testing.T) {
	repo := NewRepository(newAnalysisDB(t), zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, rec(1, "AAPL", 0.6, domain.RiskMedium, -time.Hour)))
	require.NoError(t, repo.Upsert(ctx, rec(2, "MSFT", 0.6, domain.RiskMedium, time.Hour)))

	n, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestComponentScoresRoundTrip(t *testing.T) {
	repo := NewRepository(newAnalysisDB(t), zerolog.Nop())
	ctx := context.Background()

	in := rec(1, "AAPL", 0.84, domain.RiskMedium, time.Hour)
	in.Scores = domain.ComponentScores{Technical: 0.8, Fundamental: 0.8, Sentiment: 0.9, Momentum: 1.0}
	in.Label = domain.LabelStrongBuy
	require.NoError(t, repo.Upsert(ctx, in))

	got, err := repo.GetBySymbol(ctx, "aapl")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, in.Scores, got.Scores)
	assert.Equal(t, domain.LabelStrongBuy, got.Label)
	assert.Equal(t, "test", got.Reasoning)
}
