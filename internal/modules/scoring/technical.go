// Package scoring implements the rule-based recommendation engine: four
// component scorers plus a weighted aggregator. Scorers are pure functions
// over typed payloads; a missing input contributes no nudge and the score
// stays at the neutral 0.5 baseline.
package scoring

import "github.com/stockpulse/stockpulse/internal/domain"

const baseScore = 0.5

// clamp bounds a score to [0, 1].
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ScoreTechnical scores a technical payload. Nil payload or nil fields
// leave the corresponding nudge unapplied.
func ScoreTechnical(p *domain.TechnicalPayload) float64 {
	score := baseScore
	if p == nil {
		return score
	}

	if p.RSI != nil {
		switch rsi := *p.RSI; {
		case rsi < 30:
			score += 0.3 // oversold
		case rsi <= 70:
			score += 0.2 // healthy range
		default:
			score -= 0.2 // overbought
		}
	}

	if p.MACD != nil && p.MACD.Histogram > 0 {
		score += 0.15
	}

	if p.MA5 != nil && p.MA20 != nil && p.CurrentPrice != nil {
		ma5, ma20, price := *p.MA5, *p.MA20, *p.CurrentPrice
		switch {
		case ma5 > ma20 && price > ma5:
			score += 0.2 // uptrend confirmed
		case ma5 < ma20 && price < ma5:
			score -= 0.2 // downtrend confirmed
		}
	}

	if p.PriceChangePercent != nil {
		switch chg := *p.PriceChangePercent; {
		case chg > 5:
			score += 0.1 // strong move, possibly overextended
		case chg > 0:
			score += 0.15
		case chg >= -5 && chg < 0:
			score += 0.05 // mild dip
		case chg < -5:
			score -= 0.1
		}
	}

	return clamp(score)
}
