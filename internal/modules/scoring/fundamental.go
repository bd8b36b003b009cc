package scoring

import "github.com/stockpulse/stockpulse/internal/domain"

// ScoreFundamental scores a fundamental payload. Absent metrics contribute
// nothing; the score never drops below the neutral baseline on missing data.
func ScoreFundamental(p *domain.FundamentalPayload) float64 {
	score := baseScore
	if p == nil {
		return score
	}

	if p.PERatio != nil {
		switch pe := *p.PERatio; {
		case pe < 10:
			score += 0.3 // deep value
		case pe <= 25:
			score += 0.2
		default:
			score -= 0.1 // expensive
		}
	}

	if p.Beta != nil {
		switch beta := *p.Beta; {
		case beta < 0.8:
			score += 0.15 // defensive
		case beta <= 1.2:
			score += 0.1
		case beta > 1.5:
			score -= 0.1 // volatile
		}
	}

	if p.DividendYield != nil {
		switch dy := *p.DividendYield; {
		case dy >= 0.02:
			score += 0.15
		case dy > 0:
			score += 0.05
		}
	}

	if p.MarketCap != nil {
		switch mc := *p.MarketCap; {
		case mc > 100_000_000_000:
			score += 0.1 // mega cap
		case mc > 10_000_000_000:
			score += 0.05
		}
	}

	return clamp(score)
}
