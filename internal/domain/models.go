// Package domain contains the shared data model for stocks, indicators,
// analyses, recommendations, and background tasks.
package domain

import "time"

// Stock is a tracked instrument with its latest known profile fields.
// Profile fields are pointers because providers return partial data.
type Stock struct {
	ID                int64      `json:"id"`
	Symbol            string     `json:"symbol"`
	Name              string     `json:"name"`
	Exchange          string     `json:"exchange"`
	Sector            string     `json:"sector"`
	Industry          string     `json:"industry"`
	MarketCap         *float64   `json:"market_cap,omitempty"`
	PERatio           *float64   `json:"pe_ratio,omitempty"`
	Beta              *float64   `json:"beta,omitempty"`
	DividendYield     *float64   `json:"dividend_yield,omitempty"`
	FiftyTwoWeekHigh  *float64   `json:"fifty_two_week_high,omitempty"`
	FiftyTwoWeekLow   *float64   `json:"fifty_two_week_low,omitempty"`
	CurrentPrice      *float64   `json:"current_price,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// PriceBar is one daily OHLCV bar. Synthetic marks fabricated fallback bars
// so they are never mistaken for provider data.
type PriceBar struct {
	Date      time.Time `json:"date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	Synthetic bool      `json:"synthetic,omitempty"`
}

// StockProfile is the provider-side view of an instrument. All numeric
// fields are optional; absent means unknown, never zero.
type StockProfile struct {
	Symbol           string   `json:"symbol"`
	Name             string   `json:"name"`
	Exchange         string   `json:"exchange"`
	Sector           string   `json:"sector"`
	Industry         string   `json:"industry"`
	MarketCap        *float64 `json:"market_cap,omitempty"`
	PERatio          *float64 `json:"pe_ratio,omitempty"`
	Beta             *float64 `json:"beta,omitempty"`
	DividendYield    *float64 `json:"dividend_yield,omitempty"`
	FiftyTwoWeekHigh *float64 `json:"fifty_two_week_high,omitempty"`
	FiftyTwoWeekLow  *float64 `json:"fifty_two_week_low,omitempty"`
	CurrentPrice     *float64 `json:"current_price,omitempty"`
}

// MovingAverages holds simple moving averages over the standard windows.
// A nil entry means the history was shorter than the window.
type MovingAverages struct {
	MA5  *float64 `json:"ma_5,omitempty"`
	MA10 *float64 `json:"ma_10,omitempty"`
	MA20 *float64 `json:"ma_20,omitempty"`
	MA50 *float64 `json:"ma_50,omitempty"`
}

// MACDValues holds the latest MACD line, signal line, and histogram.
type MACDValues struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// BollingerBands holds the latest 20-period bands.
type BollingerBands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// IndicatorSet is the derived technical snapshot for one stock. Optional
// members are nil when history is too short for their window.
type IndicatorSet struct {
	Symbol             string          `json:"symbol"`
	MovingAverages     MovingAverages  `json:"moving_averages"`
	RSI                *float64        `json:"rsi,omitempty"`
	MACD               *MACDValues     `json:"macd,omitempty"`
	Bollinger          *BollingerBands `json:"bollinger,omitempty"`
	CurrentPrice       float64         `json:"current_price"`
	Volume             int64           `json:"volume"`
	PriceChange        float64         `json:"price_change"`
	PriceChangePercent float64         `json:"price_change_percent"`
	CalculatedAt       time.Time       `json:"calculated_at"`
}

// AnalysisType identifies a category of AI analysis.
type AnalysisType string

const (
	AnalysisTechnical      AnalysisType = "technical"
	AnalysisFundamental    AnalysisType = "fundamental"
	AnalysisSentiment      AnalysisType = "sentiment"
	AnalysisRecommendation AnalysisType = "recommendation"
)

// Valid reports whether t is a known analysis type.
func (t AnalysisType) Valid() bool {
	switch t {
	case AnalysisTechnical, AnalysisFundamental, AnalysisSentiment, AnalysisRecommendation:
		return true
	}
	return false
}

// AnalysisRecord is one stored AI analysis. Content holds the raw JSON
// payload; decode it with the typed payload for the record's Type.
type AnalysisRecord struct {
	ID         int64        `json:"id"`
	StockID    int64        `json:"stock_id"`
	Type       AnalysisType `json:"analysis_type"`
	Content    string       `json:"content"`
	Confidence float64      `json:"confidence"`
	CreatedAt  time.Time    `json:"created_at"`
	ValidUntil time.Time    `json:"valid_until"`
}

// Expired reports whether the record is past its validity window.
func (r *AnalysisRecord) Expired(now time.Time) bool {
	return !r.ValidUntil.After(now)
}

// TechnicalPayload is the typed content of a technical analysis. The
// indicator snapshot is captured at analysis time so the scorer reads
// numbers, not prose.
type TechnicalPayload struct {
	Commentary         string      `json:"commentary"`
	TrendDirection     string      `json:"trend_direction,omitempty"`
	RSI                *float64    `json:"rsi,omitempty"`
	MACD               *MACDValues `json:"macd,omitempty"`
	MA5                *float64    `json:"ma_5,omitempty"`
	MA20               *float64    `json:"ma_20,omitempty"`
	CurrentPrice       *float64    `json:"current_price,omitempty"`
	PriceChangePercent *float64    `json:"price_change_percent,omitempty"`
}

// FundamentalPayload is the typed content of a fundamental analysis.
type FundamentalPayload struct {
	Commentary    string   `json:"commentary"`
	PERatio       *float64 `json:"pe_ratio,omitempty"`
	Beta          *float64 `json:"beta,omitempty"`
	DividendYield *float64 `json:"dividend_yield,omitempty"`
	MarketCap     *float64 `json:"market_cap,omitempty"`
}

// SentimentPayload is the typed content of a sentiment analysis.
// Score is in [-1, 1]; NewsVolume is one of "low", "medium", "high".
type SentimentPayload struct {
	Commentary string   `json:"commentary"`
	Score      *float64 `json:"sentiment_score,omitempty"`
	NewsVolume string   `json:"news_volume,omitempty"`
}

// RecommendationPayload is the typed content of a recommendation-type
// analysis, produced by the scoring engine rather than the AI provider.
type RecommendationPayload struct {
	Recommendation string          `json:"recommendation"`
	TotalScore     float64         `json:"total_score"`
	Scores         ComponentScores `json:"component_scores"`
	RiskLevel      RiskLevel       `json:"risk_level"`
	Reasoning      string          `json:"reasoning,omitempty"`
}

// ComponentScores holds the four component scores, each in [0, 1].
type ComponentScores struct {
	Technical   float64 `json:"technical"`
	Fundamental float64 `json:"fundamental"`
	Sentiment   float64 `json:"sentiment"`
	Momentum    float64 `json:"momentum"`
}

// RecommendationLabel is the discrete action derived from the total score.
type RecommendationLabel string

const (
	LabelStrongBuy  RecommendationLabel = "strong_buy"
	LabelBuy        RecommendationLabel = "buy"
	LabelHold       RecommendationLabel = "hold"
	LabelSell       RecommendationLabel = "sell"
	LabelStrongSell RecommendationLabel = "strong_sell"
)

// RiskLevel grades how risky acting on a recommendation is.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Recommendation is a scored, labelled verdict for one stock.
type Recommendation struct {
	ID         int64               `json:"id"`
	StockID    int64               `json:"stock_id"`
	Symbol     string              `json:"symbol"`
	TotalScore float64             `json:"total_score"`
	Scores     ComponentScores     `json:"component_scores"`
	Label      RecommendationLabel `json:"label"`
	RiskLevel  RiskLevel           `json:"risk_level"`
	Confidence float64             `json:"confidence"`
	Reasoning  string              `json:"reasoning,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	ExpiresAt  time.Time           `json:"expires_at"`
}

// TaskType identifies a background task kind.
type TaskType string

const (
	TaskSingleStock TaskType = "single_stock"
	TaskBatchStocks TaskType = "batch_stocks"
	TaskMarketScan  TaskType = "market_scan"
)

// TaskStatus is the lifecycle state of a background task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// Terminal reports whether the status is a final state.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// SymbolResult is the per-instrument outcome inside a batch task result.
type SymbolResult struct {
	Status string  `json:"status"` // success, partial, error
	Label  string  `json:"label,omitempty"`
	Score  float64 `json:"score,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// AnalysisTask tracks a background analysis run.
type AnalysisTask struct {
	TaskID       string                  `json:"task_id"`
	Type         TaskType                `json:"task_type"`
	Symbols      []string                `json:"symbols"`
	Status       TaskStatus              `json:"status"`
	Progress     float64                 `json:"progress"`
	Result       map[string]SymbolResult `json:"result,omitempty"`
	ErrorMessage string                  `json:"error_message,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	StartedAt    *time.Time              `json:"started_at,omitempty"`
	CompletedAt  *time.Time              `json:"completed_at,omitempty"`
}
