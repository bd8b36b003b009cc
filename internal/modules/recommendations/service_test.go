package recommendations

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpulse/stockpulse/internal/domain"
)

type fakeScorer struct {
	calls atomic.Int64
	delay time.Duration
	err   error
}

func (s *fakeScorer) Score(_ context.Context, symbol string) (*domain.Recommendation, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	now := time.Now().UTC()
	return &domain.Recommendation{
		StockID:    1,
		Symbol:     symbol,
		TotalScore: 0.5,
		Label:      domain.LabelHold,
		RiskLevel:  domain.RiskMedium,
		Confidence: 0.6,
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
	}, nil
}

func TestGetScoresOnMiss(t *testing.T) {
	scorer := &fakeScorer{}
	svc := NewService(NewRepository(newAnalysisDB(t), zerolog.Nop()), scorer, zerolog.Nop())
	ctx := context.Background()

	rec, err := svc.Get(ctx, "aapl", false)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", rec.Symbol)
	assert.Equal(t, int64(1), scorer.calls.Load())

	// Valid recommendation is served from storage
	_, err = svc.Get(ctx, "AAPL", false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), scorer.calls.Load())
}

func TestGetForceRecomputes(t *testing.T) {
	scorer := &fakeScorer{}
	svc := NewService(NewRepository(newAnalysisDB(t), zerolog.Nop()), scorer, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Get(ctx, "AAPL", false)
	require.NoError(t, err)
	_, err = svc.Get(ctx, "AAPL", true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), scorer.calls.Load())
}

func TestGetPropagatesScorerError(t *testing.T) {
	scorer := &fakeScorer{err: domain.ErrNotFound}
	svc := NewService(NewRepository(newAnalysisDB(t), zerolog.Nop()), scorer, zerolog.Nop())

	_, err := svc.Get(context.Background(), "NOPE", false)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConcurrentGetScoresOnce(t *testing.T) {
	// Slow scorer plus concurrent misses: the symbol lock plus the
	// post-lock recheck must collapse them into one scoring run
	scorer := &fakeScorer{delay: 20 * time.Millisecond}
	svc := NewService(NewRepository(newAnalysisDB(t), zerolog.Nop()), scorer, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Get(context.Background(), "AAPL", false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), scorer.calls.Load())
}
