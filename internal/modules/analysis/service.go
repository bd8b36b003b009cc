package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockpulse/stockpulse/internal/domain"
	"github.com/stockpulse/stockpulse/internal/modules/indicators"
)

// analysisValidity is how long a generated analysis stays usable.
const analysisValidity = 24 * time.Hour

// defaultConfidence applies when the model does not report one.
const defaultConfidence = 0.7

// TextGenerator produces model completions for analysis prompts.
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// StockProvider supplies stock rows and price history.
type StockProvider interface {
	Get(ctx context.Context, symbol string) (*domain.Stock, error)
	History(ctx context.Context, symbol string, days int) ([]domain.PriceBar, error)
}

// Service generates and stores AI analyses.
type Service struct {
	stocks StockProvider
	repo   *Repository
	gen    TextGenerator
	log    zerolog.Logger
}

// NewService creates an analysis service.
func NewService(stocks StockProvider, repo *Repository, gen TextGenerator, log zerolog.Logger) *Service {
	return &Service{
		stocks: stocks,
		repo:   repo,
		gen:    gen,
		log:    log.With().Str("component", "analysis").Logger(),
	}
}

// Repo exposes the repository for other modules (scoring, cleanup).
func (s *Service) Repo() *Repository { return s.repo }

// comprehensiveTypes are generated by one Analyze call.
var comprehensiveTypes = []domain.AnalysisType{
	domain.AnalysisTechnical,
	domain.AnalysisFundamental,
	domain.AnalysisSentiment,
}

// Analyze generates technical, fundamental, and sentiment analyses for a
// symbol. A failure in one type drops only that type; the call fails only
// when every type failed.
func (s *Service) Analyze(ctx context.Context, symbol string) ([]domain.AnalysisRecord, error) {
	stock, err := s.stocks.Get(ctx, symbol)
	if err != nil {
		return nil, err
	}

	bars, err := s.stocks.History(ctx, stock.Symbol, 365)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", stock.Symbol).Msg("No price history for analysis")
	}
	ind := indicators.Calculate(stock.Symbol, bars)

	var records []domain.AnalysisRecord
	var lastErr error
	for _, at := range comprehensiveTypes {
		rec, err := s.generateOne(ctx, stock, ind, at)
		if err != nil {
			s.log.Warn().Err(err).
				Str("symbol", stock.Symbol).
				Str("analysis_type", string(at)).
				Msg("Analysis type dropped")
			lastErr = err
			continue
		}
		records = append(records, *rec)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("all analysis types failed for %s: %w", stock.Symbol, lastErr)
	}
	return records, nil
}

// List returns every valid analysis for a symbol.
func (s *Service) List(ctx context.Context, symbol string) ([]domain.AnalysisRecord, error) {
	stock, err := s.stocks.Get(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return s.repo.ListValid(ctx, stock.ID)
}

func (s *Service) generateOne(ctx context.Context, stock *domain.Stock, ind domain.IndicatorSet, at domain.AnalysisType) (*domain.AnalysisRecord, error) {
	raw, err := s.gen.Generate(ctx, systemPrompt, userPrompt(stock, ind, at))
	if err != nil {
		return nil, err
	}

	content, confidence, err := s.buildContent(stock, ind, at, raw)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &domain.AnalysisRecord{
		StockID:    stock.ID,
		Type:       at,
		Content:    content,
		Confidence: confidence,
		CreatedAt:  now,
		ValidUntil: now.Add(analysisValidity),
	}

	if err := s.repo.Replace(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// modelEnvelope probes generic fields every prompt asks the model for.
type modelEnvelope struct {
	Confidence *float64 `json:"confidence"`
}

// buildContent turns a raw model response into the stored JSON content.
// The numeric inputs the scorers read come from our own computed data, not
// from the model; the model contributes commentary and, for sentiment, the
// score itself.
func (s *Service) buildContent(stock *domain.Stock, ind domain.IndicatorSet, at domain.AnalysisType, raw string) (string, float64, error) {
	jsonPart, hasJSON := ExtractJSON(raw)

	confidence := defaultConfidence
	if hasJSON {
		var env modelEnvelope
		if json.Unmarshal([]byte(jsonPart), &env) == nil && env.Confidence != nil {
			confidence = *env.Confidence
		}
	}

	var payload any
	switch at {
	case domain.AnalysisTechnical:
		p := domain.TechnicalPayload{}
		if hasJSON {
			_ = json.Unmarshal([]byte(jsonPart), &p)
		}
		if p.Commentary == "" {
			p.Commentary = rawCommentary(raw, hasJSON)
		}
		// Indicator snapshot always comes from computed data
		p.RSI = ind.RSI
		p.MACD = ind.MACD
		p.MA5 = ind.MovingAverages.MA5
		p.MA20 = ind.MovingAverages.MA20
		if ind.CurrentPrice != 0 {
			price := ind.CurrentPrice
			p.CurrentPrice = &price
			chg := ind.PriceChangePercent
			p.PriceChangePercent = &chg
		}
		payload = p

	case domain.AnalysisFundamental:
		p := domain.FundamentalPayload{}
		if hasJSON {
			_ = json.Unmarshal([]byte(jsonPart), &p)
		}
		if p.Commentary == "" {
			p.Commentary = rawCommentary(raw, hasJSON)
		}
		// Metrics come from the stored profile
		p.PERatio = stock.PERatio
		p.Beta = stock.Beta
		p.DividendYield = stock.DividendYield
		p.MarketCap = stock.MarketCap
		payload = p

	case domain.AnalysisSentiment:
		p := domain.SentimentPayload{}
		if hasJSON {
			_ = json.Unmarshal([]byte(jsonPart), &p)
		}
		if p.Commentary == "" {
			p.Commentary = rawCommentary(raw, hasJSON)
		}
		if p.Score != nil && (*p.Score < -1 || *p.Score > 1) {
			return "", 0, fmt.Errorf("sentiment score %.2f out of range: %w", *p.Score, domain.ErrMalformedResponse)
		}
		payload = p

	default:
		return "", 0, fmt.Errorf("unsupported analysis type %s: %w", at, domain.ErrMalformedResponse)
	}

	content, err := json.Marshal(payload)
	if err != nil {
		return "", 0, fmt.Errorf("failed to encode %s payload: %w", at, err)
	}
	return string(content), confidence, nil
}

// rawCommentary falls back to the model's plain text when no commentary
// field was present.
func rawCommentary(raw string, hadJSON bool) string {
	if hadJSON {
		return ""
	}
	return raw
}
