package analysis

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

func record(stockID int64, at domain.AnalysisType, validFor time.Duration) *domain.AnalysisRecord {
	now := time.Now().UTC()
	return &domain.AnalysisRecord{
		StockID:    stockID,
		Type:       at,
		Content:    `{"commentary":"steady"}`,
		Confidence: 0.7,
		CreatedAt:  now,
		ValidUntil: now.Add(validFor),
	}
}

func TestReplaceKeepsOneRowPerType(t *testing.T) {
	repo := NewRepository(newAnalysisDB(t), zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.Replace(ctx, record(1, domain.AnalysisTechnical, time.Hour)))
	require.NoError(t, repo.Replace(ctx, record(1, domain.AnalysisTechnical, 2*time.Hour)))
	require.NoError(t, repo.Replace(ctx, record(1, domain.AnalysisSentiment, time.Hour)))

	records, err := repo.ListValid(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, records, 2, "one technical plus one sentiment")
}

func TestGetLatestValidSkipsExpired(t *testing.T) {
	repo := NewRepository(newAnalysisDB(t), zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.Replace(ctx, record(1, domain.AnalysisTechnical, -time.Hour)))

	rec, err := repo.GetLatestValid(ctx, 1, domain.AnalysisTechnical)
	require.NoError(t, err)
	assert.Nil(t, rec, "expired records are invisible")

	require.NoError(t, repo.Replace(ctx, record(1, domain.AnalysisTechnical, time.Hour)))
	rec, err = repo.GetLatestValid(ctx, 1, domain.AnalysisTechnical)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, domain.AnalysisTechnical, rec.Type)
	assert.Equal(t, `{"commentary":"steady"}`, rec.Content)
}

func TestGetLatestValidMissingReturnsNil(t *testing.T) {
	repo := NewRepository(newAnalysisDB(t), zerolog.Nop())

	rec, err := repo.GetLatestValid(context.Background(), 99, domain.AnalysisSentiment)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestDeleteExpired(t *testing.T) {
	repo := NewRepository(newAnalysisDB(t), zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.Replace(ctx, record(1, domain.AnalysisTechnical, -time.Hour)))
	require.NoError(t, repo.Replace(ctx, record(2, domain.AnalysisTechnical, time.Hour)))

	deleted, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	// The live record survives
	rec, err := repo.GetLatestValid(ctx, 2, domain.AnalysisTechnical)
	require.NoError(t, err)
	assert.NotNil(t, rec)
}
