package analysis

import (
	"fmt"
	"strings"

	"github.com/stockpulse/stockpulse/internal/domain"
)

const systemPrompt = `You are a financial analyst. Respond with a single JSON object and nothing else. Be factual and concise; do not give personalized investment advice.`

// userPrompt renders the per-type prompt with the stock's current numbers.
func userPrompt(stock *domain.Stock, ind domain.IndicatorSet, at domain.AnalysisType) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Stock: %s (%s)\n", stock.Symbol, stock.Name)
	if stock.Sector != "" {
		fmt.Fprintf(&b, "Sector: %s, Industry: %s\n", stock.Sector, stock.Industry)
	}

	switch at {
	case domain.AnalysisTechnical:
		fmt.Fprintf(&b, "Current price: %.2f, change: %.2f%%\n", ind.CurrentPrice, ind.PriceChangePercent)
		if ind.RSI != nil {
			fmt.Fprintf(&b, "RSI(14): %.2f\n", *ind.RSI)
		}
		if ind.MACD != nil {
			fmt.Fprintf(&b, "MACD histogram: %.4f\n", ind.MACD.Histogram)
		}
		if ind.MovingAverages.MA5 != nil && ind.MovingAverages.MA20 != nil {
			fmt.Fprintf(&b, "MA5: %.2f, MA20: %.2f\n", *ind.MovingAverages.MA5, *ind.MovingAverages.MA20)
		}
		b.WriteString(`Write a technical analysis of this stock. Respond with JSON: {"commentary": string, "trend_direction": "up"|"down"|"sideways", "confidence": number between 0 and 1}`)

	case domain.AnalysisFundamental:
		writeOptional(&b, "P/E ratio", stock.PERatio)
		writeOptional(&b, "Beta", stock.Beta)
		writeOptional(&b, "Dividend yield", stock.DividendYield)
		writeOptional(&b, "Market cap", stock.MarketCap)
		b.WriteString(`Write a fundamental analysis of this stock. Respond with JSON: {"commentary": string, "confidence": number between 0 and 1}`)

	case domain.AnalysisSentiment:
		b.WriteString(`Assess current market sentiment for this stock based on its public profile. Respond with JSON: {"commentary": string, "sentiment_score": number between -1 and 1, "news_volume": "low"|"medium"|"high", "confidence": number between 0 and 1}`)
	}

	return b.String()
}

func writeOptional(b *strings.Builder, label string, v *float64) {
	if v != nil {
		fmt.Fprintf(b, "%s: %.4f\n", label, *v)
	}
}
