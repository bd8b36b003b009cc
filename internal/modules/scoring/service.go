package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockpulse/stockpulse/internal/domain"
)

// StockReader looks up tracked stocks.
type StockReader interface {
	// GetBySymbol returns (nil, nil) when the symbol is unknown.
	GetBySymbol(ctx context.Context, symbol string) (*domain.Stock, error)
}

// AnalysisReader fetches the latest valid AI analysis of a given type.
type AnalysisReader interface {
	// GetLatestValid returns (nil, nil) when no unexpired record exists.
	GetLatestValid(ctx context.Context, stockID int64, analysisType domain.AnalysisType) (*domain.AnalysisRecord, error)
}

// PriceReader fetches trailing closes for the momentum scorer.
type PriceReader interface {
	// RecentCloses returns up to limit closes ordered oldest first.
	RecentCloses(ctx context.Context, stockID int64, limit int) ([]float64, error)
}

// momentum reads the trailing 30 daily closes
const momentumLookback = 30

// Service computes recommendations from stored analyses and price history.
type Service struct {
	stocks   StockReader
	analyses AnalysisReader
	prices   PriceReader
	ttl      time.Duration
	logger   zerolog.Logger
}

// NewService creates a scoring service. ttl controls how long an issued
// recommendation stays valid.
func NewService(stocks StockReader, analyses AnalysisReader, prices PriceReader, ttl time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		stocks:   stocks,
		analyses: analyses,
		prices:   prices,
		ttl:      ttl,
		logger:   logger.With().Str("component", "scoring").Logger(),
	}
}

// Score computes a recommendation for symbol. An unknown symbol returns
// domain.ErrNotFound. Missing or unparseable analyses degrade the affected
// component to the neutral baseline instead of failing the whole scoring run.
func (s *Service) Score(ctx context.Context, symbol string) (*domain.Recommendation, error) {
	stock, err := s.stocks.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to look up stock %s: %w", symbol, err)
	}
	if stock == nil {
		return nil, fmt.Errorf("stock %s: %w", symbol, domain.ErrNotFound)
	}

	scores := domain.ComponentScores{
		Technical:   ScoreTechnical(s.technicalPayload(ctx, stock.ID)),
		Fundamental: ScoreFundamental(s.fundamentalPayload(ctx, stock.ID)),
		Sentiment:   ScoreSentiment(s.sentimentPayload(ctx, stock.ID)),
		Momentum:    s.momentumScore(ctx, stock.ID),
	}

	verdict := Aggregate(scores)
	now := time.Now().UTC()

	rec := &domain.Recommendation{
		StockID:    stock.ID,
		Symbol:     stock.Symbol,
		TotalScore: verdict.TotalScore,
		Scores:     verdict.Scores,
		Label:      verdict.Label,
		RiskLevel:  verdict.RiskLevel,
		Confidence: verdict.Confidence,
		Reasoning:  buildReasoning(verdict),
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}

	s.logger.Debug().
		Str("symbol", stock.Symbol).
		Float64("total_score", verdict.TotalScore).
		Str("label", string(verdict.Label)).
		Msg("Scored stock")

	return rec, nil
}

func (s *Service) technicalPayload(ctx context.Context, stockID int64) *domain.TechnicalPayload {
	var p domain.TechnicalPayload
	if !s.decodeLatest(ctx, stockID, domain.AnalysisTechnical, &p) {
		return nil
	}
	return &p
}

func (s *Service) fundamentalPayload(ctx context.Context, stockID int64) *domain.FundamentalPayload {
	var p domain.FundamentalPayload
	if !s.decodeLatest(ctx, stockID, domain.AnalysisFundamental, &p) {
		return nil
	}
	return &p
}

func (s *Service) sentimentPayload(ctx context.Context, stockID int64) *domain.SentimentPayload {
	var p domain.SentimentPayload
	if !s.decodeLatest(ctx, stockID, domain.AnalysisSentiment, &p) {
		return nil
	}
	return &p
}

// decodeLatest loads and decodes the latest valid analysis of the given
// type. Any failure is logged and treated as missing data.
func (s *Service) decodeLatest(ctx context.Context, stockID int64, at domain.AnalysisType, dst any) bool {
	rec, err := s.analyses.GetLatestValid(ctx, stockID, at)
	if err != nil {
		s.logger.Warn().Err(err).
			Int64("stock_id", stockID).
			Str("analysis_type", string(at)).
			Msg("Failed to load analysis, scoring with defaults")
		return false
	}
	if rec == nil {
		return false
	}
	if err := json.Unmarshal([]byte(rec.Content), dst); err != nil {
		s.logger.Warn().Err(err).
			Int64("stock_id", stockID).
			Str("analysis_type", string(at)).
			Msg("Unparseable analysis content, scoring with defaults")
		return false
	}
	return true
}

func (s *Service) momentumScore(ctx context.Context, stockID int64) float64 {
	closes, err := s.prices.RecentCloses(ctx, stockID, momentumLookback)
	if err != nil {
		s.logger.Warn().Err(err).
			Int64("stock_id", stockID).
			Msg("Failed to load closes, momentum defaults to neutral")
		return baseScore
	}
	return ScoreMomentum(closes)
}

// buildReasoning renders a short human-readable summary of the verdict.
func buildReasoning(v Verdict) string {
	return fmt.Sprintf(
		"%s (score %.2f): technical %.2f, fundamental %.2f, sentiment %.2f, momentum %.2f",
		v.Label, v.TotalScore,
		v.Scores.Technical, v.Scores.Fundamental, v.Scores.Sentiment, v.Scores.Momentum,
	)
}
