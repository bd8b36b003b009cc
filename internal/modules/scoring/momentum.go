package scoring

// Trading-day windows for the momentum returns.
const (
	oneWeekDays  = 5
	twoWeeksDays = 10
	oneMonthDays = 20

	momentumMinBars = 10
)

// MomentumReturns holds the simple trailing returns that feed the momentum
// score. Only windows the history covers are populated.
type MomentumReturns struct {
	OneWeek  *float64
	TwoWeeks *float64
	OneMonth *float64
}

// trailingReturn computes the simple return over the given number of
// trading days, nil when the series is too short.
func trailingReturn(closes []float64, days int) *float64 {
	if len(closes) <= days {
		return nil
	}
	ref := closes[len(closes)-1-days]
	if ref == 0 {
		return nil
	}
	r := (closes[len(closes)-1] - ref) / ref
	return &r
}

// ComputeMomentumReturns derives the 1-week, 2-week, and 1-month simple
// returns from closes ordered oldest first.
func ComputeMomentumReturns(closes []float64) MomentumReturns {
	return MomentumReturns{
		OneWeek:  trailingReturn(closes, oneWeekDays),
		TwoWeeks: trailingReturn(closes, twoWeeksDays),
		OneMonth: trailingReturn(closes, oneMonthDays),
	}
}

// ScoreMomentum scores recent price momentum from the trailing closes.
// Fewer than 10 bars yields the neutral baseline. Nudges apply on the
// 1-week and 1-month returns only.
func ScoreMomentum(closes []float64) float64 {
	if len(closes) < momentumMinBars {
		return baseScore
	}

	rets := ComputeMomentumReturns(closes)
	score := baseScore

	if rets.OneWeek != nil {
		switch r := *rets.OneWeek; {
		case r > 0.02:
			score += 0.2
		case r < -0.02:
			score -= 0.1
		}
	}

	if rets.OneMonth != nil {
		switch r := *rets.OneMonth; {
		case r > 0.05:
			score += 0.3
		case r < -0.05:
			score -= 0.2
		}
	}

	return clamp(score)
}
