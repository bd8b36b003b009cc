package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stockpulse/stockpulse/internal/domain"
)

func f(v float64) *float64 { return &v }

func TestScoreTechnicalNilPayload(t *testing.T) {
	assert.Equal(t, 0.5, ScoreTechnical(nil))
}

func TestScoreTechnicalEmptyPayload(t *testing.T) {
	assert.Equal(t, 0.5, ScoreTechnical(&domain.TechnicalPayload{Commentary: "quiet"}))
}

func TestScoreTechnicalAllBullishClampsToOne(t *testing.T) {
	// Oversold RSI, positive histogram, confirmed uptrend, mild gain:
	// 0.5 + 0.3 + 0.15 + 0.2 + 0.15 = 1.3, clamped to 1.0
	p := &domain.TechnicalPayload{
		RSI:                f(25),
		MACD:               &domain.MACDValues{Histogram: 0.5},
		MA5:                f(105),
		MA20:               f(100),
		CurrentPrice:       f(110),
		PriceChangePercent: f(3),
	}
	assert.InDelta(t, 1.0, ScoreTechnical(p), 1e-9)
}

func TestScoreTechnicalRSIBands(t *testing.T) {
	assert.InDelta(t, 0.8, ScoreTechnical(&domain.TechnicalPayload{RSI: f(25)}), 1e-9)
	assert.InDelta(t, 0.7, ScoreTechnical(&domain.TechnicalPayload{RSI: f(30)}), 1e-9)
	assert.InDelta(t, 0.7, ScoreTechnical(&domain.TechnicalPayload{RSI: f(70)}), 1e-9)
	assert.InDelta(t, 0.3, ScoreTechnical(&domain.TechnicalPayload{RSI: f(75)}), 1e-9)
}

func TestScoreTechnicalPriceChangeBands(t *testing.T) {
	assert.InDelta(t, 0.65, ScoreTechnical(&domain.TechnicalPayload{PriceChangePercent: f(3)}), 1e-9)
	assert.InDelta(t, 0.65, ScoreTechnical(&domain.TechnicalPayload{PriceChangePercent: f(5)}), 1e-9)
	assert.InDelta(t, 0.6, ScoreTechnical(&domain.TechnicalPayload{PriceChangePercent: f(7)}), 1e-9)
	assert.InDelta(t, 0.55, ScoreTechnical(&domain.TechnicalPayload{PriceChangePercent: f(-3)}), 1e-9)
	assert.InDelta(t, 0.55, ScoreTechnical(&domain.TechnicalPayload{PriceChangePercent: f(-5)}), 1e-9)
	assert.InDelta(t, 0.4, ScoreTechnical(&domain.TechnicalPayload{PriceChangePercent: f(-8)}), 1e-9)
}

func TestScoreTechnicalDowntrend(t *testing.T) {
	p := &domain.TechnicalPayload{
		MA5:          f(95),
		MA20:         f(100),
		CurrentPrice: f(90),
	}
	assert.InDelta(t, 0.3, ScoreTechnical(p), 1e-9)
}

func TestScoreTechnicalTrendRequiresAllThreeInputs(t *testing.T) {
	// Missing current price: no trend nudge either way
	p := &domain.TechnicalPayload{MA5: f(105), MA20: f(100)}
	assert.InDelta(t, 0.5, ScoreTechnical(p), 1e-9)
}

func TestScoreFundamentalNilPayload(t *testing.T) {
	assert.Equal(t, 0.5, ScoreFundamental(nil))
}

func TestScoreFundamentalPEBands(t *testing.T) {
	assert.InDelta(t, 0.8, ScoreFundamental(&domain.FundamentalPayload{PERatio: f(8)}), 1e-9)
	assert.InDelta(t, 0.7, ScoreFundamental(&domain.FundamentalPayload{PERatio: f(10)}), 1e-9)
	assert.InDelta(t, 0.7, ScoreFundamental(&domain.FundamentalPayload{PERatio: f(25)}), 1e-9)
	assert.InDelta(t, 0.4, ScoreFundamental(&domain.FundamentalPayload{PERatio: f(40)}), 1e-9)
}

func TestScoreFundamentalBetaBands(t *testing.T) {
	assert.InDelta(t, 0.65, ScoreFundamental(&domain.FundamentalPayload{Beta: f(0.5)}), 1e-9)
	assert.InDelta(t, 0.6, ScoreFundamental(&domain.FundamentalPayload{Beta: f(1.0)}), 1e-9)
	assert.InDelta(t, 0.4, ScoreFundamental(&domain.FundamentalPayload{Beta: f(1.8)}), 1e-9)
	// Between 1.2 and 1.5: no nudge
	assert.InDelta(t, 0.5, ScoreFundamental(&domain.FundamentalPayload{Beta: f(1.3)}), 1e-9)
}

func TestScoreFundamentalDividendAndCap(t *testing.T) {
	assert.InDelta(t, 0.65, ScoreFundamental(&domain.FundamentalPayload{DividendYield: f(0.03)}), 1e-9)
	assert.InDelta(t, 0.55, ScoreFundamental(&domain.FundamentalPayload{DividendYield: f(0.01)}), 1e-9)
	assert.InDelta(t, 0.5, ScoreFundamental(&domain.FundamentalPayload{DividendYield: f(0)}), 1e-9)

	assert.InDelta(t, 0.6, ScoreFundamental(&domain.FundamentalPayload{MarketCap: f(2e11)}), 1e-9)
	assert.InDelta(t, 0.55, ScoreFundamental(&domain.FundamentalPayload{MarketCap: f(5e10)}), 1e-9)
	assert.InDelta(t, 0.5, ScoreFundamental(&domain.FundamentalPayload{MarketCap: f(1e9)}), 1e-9)
}

func TestScoreFundamentalValueStockClamps(t *testing.T) {
	// 0.5 + 0.3 + 0.15 + 0.15 + 0.1 = 1.2, clamped
	p := &domain.FundamentalPayload{
		PERatio:       f(8),
		Beta:          f(0.6),
		DividendYield: f(0.04),
		MarketCap:     f(3e11),
	}
	assert.InDelta(t, 1.0, ScoreFundamental(p), 1e-9)
}

func TestScoreSentimentMissingScore(t *testing.T) {
	assert.Equal(t, 0.5, ScoreSentiment(nil))
	assert.Equal(t, 0.5, ScoreSentiment(&domain.SentimentPayload{NewsVolume: "high"}))
}

func TestScoreSentimentMapping(t *testing.T) {
	// Neutral sentiment, medium volume: (0+1)/2 * 1.0 = 0.5
	assert.InDelta(t, 0.5, ScoreSentiment(&domain.SentimentPayload{Score: f(0), NewsVolume: "medium"}), 1e-9)
	// Strongly positive, high volume: (0.8+1)/2 * 1.2 = 1.08, clamped
	assert.InDelta(t, 1.0, ScoreSentiment(&domain.SentimentPayload{Score: f(0.8), NewsVolume: "high"}), 1e-9)
	// Negative, low volume: (-0.5+1)/2 * 0.7 = 0.175
	assert.InDelta(t, 0.175, ScoreSentiment(&domain.SentimentPayload{Score: f(-0.5), NewsVolume: "low"}), 1e-9)
	// Unknown volume counts as medium
	assert.InDelta(t, 0.75, ScoreSentiment(&domain.SentimentPayload{Score: f(0.5), NewsVolume: "frantic"}), 1e-9)
}

func TestScoreMomentumShortHistory(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	assert.Equal(t, 0.5, ScoreMomentum(closes))
	assert.Equal(t, 0.5, ScoreMomentum(nil))
}

func TestScoreMomentumStrongRally(t *testing.T) {
	// 30 bars rising 1% a day: both 1w and 1m returns exceed their
	// thresholds, 0.5 + 0.2 + 0.3 = 1.0
	closes := make([]float64, 30)
	closes[0] = 100
	for i := 1; i < len(closes); i++ {
		closes[i] = closes[i-1] * 1.01
	}
	assert.InDelta(t, 1.0, ScoreMomentum(closes), 1e-9)
}

func TestScoreMomentumDecline(t *testing.T) {
	// Steady 1% daily decline: 0.5 - 0.1 - 0.2 = 0.2
	closes := make([]float64, 30)
	closes[0] = 100
	for i := 1; i < len(closes); i++ {
		closes[i] = closes[i-1] * 0.99
	}
	assert.InDelta(t, 0.2, ScoreMomentum(closes), 1e-9)
}

func TestScoreMomentumFlat(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	assert.InDelta(t, 0.5, ScoreMomentum(closes), 1e-9)
}

func TestComputeMomentumReturnsWindows(t *testing.T) {
	// 12 closes: 1w and 2w available, 1m not
	closes := make([]float64, 12)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	rets := ComputeMomentumReturns(closes)

	assert.NotNil(t, rets.OneWeek)
	assert.NotNil(t, rets.TwoWeeks)
	assert.Nil(t, rets.OneMonth)
	assert.InDelta(t, 5.0/106.0, *rets.OneWeek, 1e-9)
}
