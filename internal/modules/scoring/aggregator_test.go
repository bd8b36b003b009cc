package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stockpulse/stockpulse/internal/domain"
)

func uniform(v float64) domain.ComponentScores {
	return domain.ComponentScores{Technical: v, Fundamental: v, Sentiment: v, Momentum: v}
}

func TestAggregateWeights(t *testing.T) {
	v := Aggregate(domain.ComponentScores{
		Technical:   1.0,
		Fundamental: 0.0,
		Sentiment:   0.0,
		Momentum:    0.0,
	})
	assert.InDelta(t, 0.30, v.TotalScore, 1e-9)

	v = Aggregate(domain.ComponentScores{Fundamental: 1.0})
	assert.InDelta(t, 0.40, v.TotalScore, 1e-9)

	v = Aggregate(domain.ComponentScores{Sentiment: 1.0})
	assert.InDelta(t, 0.20, v.TotalScore, 1e-9)

	v = Aggregate(domain.ComponentScores{Momentum: 1.0})
	assert.InDelta(t, 0.10, v.TotalScore, 1e-9)
}

func TestAggregateAllNeutralIsHold(t *testing.T) {
	v := Aggregate(uniform(0.5))

	assert.InDelta(t, 0.5, v.TotalScore, 1e-9)
	assert.Equal(t, domain.LabelHold, v.Label)
	assert.Equal(t, domain.RiskMedium, v.RiskLevel)
	assert.InDelta(t, 0.6, v.Confidence, 1e-9)
}

func TestAggregateLabels(t *testing.T) {
	cases := []struct {
		score float64
		label domain.RecommendationLabel
		risk  domain.RiskLevel
	}{
		{0.82, domain.LabelStrongBuy, domain.RiskMedium},
		{0.80, domain.LabelStrongBuy, domain.RiskMedium},
		{0.79, domain.LabelBuy, domain.RiskMedium},
		{0.65, domain.LabelBuy, domain.RiskMedium},
		{0.45, domain.LabelHold, domain.RiskMedium},
		{0.44, domain.LabelSell, domain.RiskHigh},
		{0.30, domain.LabelSell, domain.RiskHigh},
		{0.29, domain.LabelStrongSell, domain.RiskHigh},
		{0.0, domain.LabelStrongSell, domain.RiskHigh},
	}

	for _, tc := range cases {
		v := Aggregate(uniform(tc.score))
		assert.Equal(t, tc.label, v.Label, "score %.2f", tc.score)
		assert.Equal(t, tc.risk, v.RiskLevel, "score %.2f", tc.score)
	}
}

func TestAggregateConfidenceCap(t *testing.T) {
	v := Aggregate(uniform(1.0))
	assert.InDelta(t, 1.0, v.TotalScore, 1e-9)
	assert.InDelta(t, 0.9, v.Confidence, 1e-9)

	v = Aggregate(uniform(0.2))
	assert.InDelta(t, 0.3, v.Confidence, 1e-9)
}

func TestAggregateDeterministic(t *testing.T) {
	scores := domain.ComponentScores{Technical: 0.7, Fundamental: 0.6, Sentiment: 0.55, Momentum: 0.8}
	first := Aggregate(scores)
	second := Aggregate(scores)
	assert.Equal(t, first, second)
}
