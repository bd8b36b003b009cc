package scoring

import "github.com/stockpulse/stockpulse/internal/domain"

// newsVolumeMultiplier scales the sentiment score by coverage volume.
// Unknown volumes count as medium.
var newsVolumeMultiplier = map[string]float64{
	"low":    0.7,
	"medium": 1.0,
	"high":   1.2,
}

// ScoreSentiment maps a sentiment score in [-1, 1] onto [0, 1] and scales
// it by news volume. A missing score yields the neutral baseline.
func ScoreSentiment(p *domain.SentimentPayload) float64 {
	if p == nil || p.Score == nil {
		return baseScore
	}

	score := (*p.Score + 1) / 2

	mult, ok := newsVolumeMultiplier[p.NewsVolume]
	if !ok {
		mult = 1.0
	}

	return clamp(score * mult)
}
