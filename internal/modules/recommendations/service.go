package recommendations

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/stockpulse/stockpulse/internal/domain"
)

// Scorer computes a fresh recommendation for a symbol.
type Scorer interface {
	Score(ctx context.Context, symbol string) (*domain.Recommendation, error)
}

// Service serves recommendations, recomputing on demand. Writes for the
// same symbol are serialized so concurrent requests cannot interleave the
// delete-then-insert upsert.
type Service struct {
	repo   *Repository
	scorer Scorer
	log    zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a recommendations service.
func NewService(repo *Repository, scorer Scorer, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		scorer: scorer,
		log:    log.With().Str("component", "recommendations").Logger(),
		locks:  map[string]*sync.Mutex{},
	}
}

// Repo exposes the repository for the cleanup job.
func (s *Service) Repo() *Repository { return s.repo }

// symbolLock returns the mutex guarding writes for one symbol.
func (s *Service) symbolLock(symbol string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		s.locks[symbol] = l
	}
	return l
}

// Get returns the current recommendation for a symbol, computing and
// storing a fresh one when none is valid. force recomputes regardless.
func (s *Service) Get(ctx context.Context, symbol string, force bool) (*domain.Recommendation, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	if !force {
		rec, err := s.repo.GetBySymbol(ctx, symbol)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return rec, nil
		}
	}

	lock := s.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	// Another request may have finished scoring while we waited
	if !force {
		rec, err := s.repo.GetBySymbol(ctx, symbol)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return rec, nil
		}
	}

	rec, err := s.scorer.Score(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Upsert(ctx, rec); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("symbol", symbol).
		Float64("score", rec.TotalScore).
		Str("label", string(rec.Label)).
		Msg("Recommendation stored")

	return rec, nil
}

// Query filters stored recommendations by minimum score and risk levels.
func (s *Service) Query(ctx context.Context, minScore float64, riskLevels []domain.RiskLevel, limit int) ([]domain.Recommendation, error) {
	return s.repo.Query(ctx, minScore, riskLevels, limit)
}

// TopN returns the highest-scoring unexpired recommendations.
func (s *Service) TopN(ctx context.Context, n int) ([]domain.Recommendation, error) {
	return s.repo.TopN(ctx, n)
}
