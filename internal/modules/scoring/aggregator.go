package scoring

import "github.com/stockpulse/stockpulse/internal/domain"

// Component weights. They sum to 1, so a weighted sum of clamped component
// scores stays in [0, 1].
const (
	weightTechnical   = 0.30
	weightFundamental = 0.40
	weightSentiment   = 0.20
	weightMomentum    = 0.10
)

// Verdict is the aggregated scoring outcome for one stock.
type Verdict struct {
	TotalScore float64
	Scores     domain.ComponentScores
	Label      domain.RecommendationLabel
	RiskLevel  domain.RiskLevel
	Confidence float64
}

// Aggregate combines the component scores into a total score, label, risk
// level, and confidence. Label thresholds are inclusive and first-match-wins.
func Aggregate(scores domain.ComponentScores) Verdict {
	total := clamp(weightTechnical*scores.Technical +
		weightFundamental*scores.Fundamental +
		weightSentiment*scores.Sentiment +
		weightMomentum*scores.Momentum)

	var label domain.RecommendationLabel
	var risk domain.RiskLevel
	switch {
	case total >= 0.80:
		label, risk = domain.LabelStrongBuy, domain.RiskMedium
	case total >= 0.65:
		label, risk = domain.LabelBuy, domain.RiskMedium
	case total >= 0.45:
		label, risk = domain.LabelHold, domain.RiskMedium
	case total >= 0.30:
		label, risk = domain.LabelSell, domain.RiskHigh
	default:
		label, risk = domain.LabelStrongSell, domain.RiskHigh
	}

	confidence := total + 0.1
	if confidence > 0.9 {
		confidence = 0.9
	}

	return Verdict{
		TotalScore: total,
		Scores:     scores,
		Label:      label,
		RiskLevel:  risk,
		Confidence: confidence,
	}
}
