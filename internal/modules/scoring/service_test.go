package scoring

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpulse/stockpulse/internal/domain"
)

type fakeStockReader struct {
	stocks map[string]*domain.Stock
}

func (f *fakeStockReader) GetBySymbol(_ context.Context, symbol string) (*domain.Stock, error) {
	return f.stocks[symbol], nil
}

type fakeAnalysisReader struct {
	records map[domain.AnalysisType]string // raw content per type
}

func (f *fakeAnalysisReader) GetLatestValid(_ context.Context, stockID int64, at domain.AnalysisType) (*domain.AnalysisRecord, error) {
	content, ok := f.records[at]
	if !ok {
		return nil, nil
	}
	return &domain.AnalysisRecord{
		StockID:    stockID,
		Type:       at,
		Content:    content,
		ValidUntil: time.Now().Add(time.Hour),
	}, nil
}

type fakePriceReader struct {
	closes []float64
}

func (f *fakePriceReader) RecentCloses(_ context.Context, _ int64, limit int) ([]float64, error) {
	if len(f.closes) > limit {
		return f.closes[len(f.closes)-limit:], nil
	}
	return f.closes, nil
}

func newTestService(stocks *fakeStockReader, analyses *fakeAnalysisReader, prices *fakePriceReader) *Service {
	return NewService(stocks, analyses, prices, 24*time.Hour, zerolog.Nop())
}

func TestScoreUnknownSymbol(t *testing.T) {
	svc := newTestService(
		&fakeStockReader{stocks: map[string]*domain.Stock{}},
		&fakeAnalysisReader{},
		&fakePriceReader{},
	)

	rec, err := svc.Score(context.Background(), "NOPE")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, rec)
}

func TestScoreAllDefaultsIsHold(t *testing.T) {
	// Known stock with no analyses and no price history: every component
	// defaults to 0.5 and the verdict is hold/medium
	svc := newTestService(
		&fakeStockReader{stocks: map[string]*domain.Stock{
			"AAPL": {ID: 1, Symbol: "AAPL"},
		}},
		&fakeAnalysisReader{records: map[domain.AnalysisType]string{}},
		&fakePriceReader{},
	)

	rec, err := svc.Score(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.InDelta(t, 0.5, rec.TotalScore, 1e-9)
	assert.Equal(t, domain.LabelHold, rec.Label)
	assert.Equal(t, domain.RiskMedium, rec.RiskLevel)
	assert.InDelta(t, 0.6, rec.Confidence, 1e-9)
	assert.Equal(t, domain.ComponentScores{Technical: 0.5, Fundamental: 0.5, Sentiment: 0.5, Momentum: 0.5}, rec.Scores)
}

func TestScoreUsesStoredAnalyses(t *testing.T) {
	tech, err := json.Marshal(domain.TechnicalPayload{RSI: f(25)})
	require.NoError(t, err)
	fund, err := json.Marshal(domain.FundamentalPayload{PERatio: f(8)})
	require.NoError(t, err)
	sent, err := json.Marshal(domain.SentimentPayload{Score: f(0.5), NewsVolume: "high"})
	require.NoError(t, err)

	closes := make([]float64, 30)
	closes[0] = 100
	for i := 1; i < len(closes); i++ {
		closes[i] = closes[i-1] * 1.01
	}

	svc := newTestService(
		&fakeStockReader{stocks: map[string]*domain.Stock{
			"AAPL": {ID: 1, Symbol: "AAPL"},
		}},
		&fakeAnalysisReader{records: map[domain.AnalysisType]string{
			domain.AnalysisTechnical:   string(tech),
			domain.AnalysisFundamental: string(fund),
			domain.AnalysisSentiment:   string(sent),
		}},
		&fakePriceReader{closes: closes},
	)

	rec, err := svc.Score(context.Background(), "AAPL")
	require.NoError(t, err)

	// technical 0.8, fundamental 0.8, sentiment 0.9, momentum 1.0
	assert.InDelta(t, 0.8, rec.Scores.Technical, 1e-9)
	assert.InDelta(t, 0.8, rec.Scores.Fundamental, 1e-9)
	assert.InDelta(t, 0.9, rec.Scores.Sentiment, 1e-9)
	assert.InDelta(t, 1.0, rec.Scores.Momentum, 1e-9)

	// 0.3*0.8 + 0.4*0.8 + 0.2*0.9 + 0.1*1.0 = 0.84
	assert.InDelta(t, 0.84, rec.TotalScore, 1e-9)
	assert.Equal(t, domain.LabelStrongBuy, rec.Label)
	assert.NotEmpty(t, rec.Reasoning)
	assert.True(t, rec.ExpiresAt.After(rec.CreatedAt))
}

func TestScoreUnparseableAnalysisFailsSoft(t *testing.T) {
	svc := newTestService(
		&fakeStockReader{stocks: map[string]*domain.Stock{
			"AAPL": {ID: 1, Symbol: "AAPL"},
		}},
		&fakeAnalysisReader{records: map[domain.AnalysisType]string{
			domain.AnalysisTechnical: `{"rsi": "not a number"`,
		}},
		&fakePriceReader{},
	)

	rec, err := svc.Score(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, rec.Scores.Technical, 1e-9)
}
