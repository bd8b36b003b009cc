package stocks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockpulse/stockpulse/internal/domain"
	"github.com/stockpulse/stockpulse/internal/modules/indicators"
)

// MarketDataClient fetches profiles and daily bars from the market-data
// provider.
type MarketDataClient interface {
	GetProfile(ctx context.Context, symbol string) (*domain.StockProfile, error)
	GetDailyHistory(ctx context.Context, symbol string, days int) ([]domain.PriceBar, error)
}

// ChartCache caches computed chart payloads between requests.
type ChartCache interface {
	GetIfFresh(key string, dst interface{}) (bool, error)
	Store(key string, value interface{}, ttl time.Duration) error
}

// chartCacheTTL bounds staleness of cached chart payloads. Daily bars only
// move once a day, so an hour is generous.
const chartCacheTTL = time.Hour

// ChartData bundles price history with the derived indicator set.
type ChartData struct {
	Symbol     string              `json:"symbol"`
	Bars       []domain.PriceBar   `json:"bars"`
	Indicators domain.IndicatorSet `json:"indicators"`
}

// Service coordinates stock persistence and provider sync.
type Service struct {
	stocks      *StockRepository
	prices      *PriceRepository
	market      MarketDataClient
	cache       ChartCache
	historyDays int
	log         zerolog.Logger
}

// NewService creates a stocks service. historyDays controls how far back
// daily bars are fetched on sync.
func NewService(stocks *StockRepository, prices *PriceRepository, market MarketDataClient, historyDays int, log zerolog.Logger) *Service {
	if historyDays <= 0 {
		historyDays = 365
	}
	return &Service{
		stocks:      stocks,
		prices:      prices,
		market:      market,
		historyDays: historyDays,
		log:         log.With().Str("component", "stocks").Logger(),
	}
}

// SetChartCache enables chart payload caching. Optional; without it every
// chart request recomputes indicators.
func (s *Service) SetChartCache(cache ChartCache) { s.cache = cache }

// Stocks exposes the stock repository for other modules.
func (s *Service) Stocks() *StockRepository { return s.stocks }

// Prices exposes the price repository for other modules.
func (s *Service) Prices() *PriceRepository { return s.prices }

// Get returns the stock for a symbol, syncing it from the provider the
// first time it is requested. Unknown at the provider too returns
// domain.ErrNotFound.
func (s *Service) Get(ctx context.Context, symbol string) (*domain.Stock, error) {
	stock, err := s.stocks.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if stock != nil {
		return stock, nil
	}
	return s.Sync(ctx, symbol)
}

// Sync fetches the profile and daily history for a symbol and stores both.
// Price-history failure is tolerated when the profile fetch succeeded; the
// stock is still usable without bars.
func (s *Service) Sync(ctx context.Context, symbol string) (*domain.Stock, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("empty symbol: %w", domain.ErrNotFound)
	}

	profile, err := s.market.GetProfile(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile for %s: %w", symbol, err)
	}

	stock, err := s.stocks.UpsertFromProfile(ctx, profile)
	if err != nil {
		return nil, err
	}

	bars, err := s.market.GetDailyHistory(ctx, symbol, s.historyDays)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("History fetch failed, keeping profile only")
		return stock, nil
	}

	inserted, err := s.prices.InsertBars(ctx, stock.ID, bars)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("symbol", symbol).
		Int("bars_fetched", len(bars)).
		Int("bars_inserted", inserted).
		Msg("Synced stock")

	return stock, nil
}

// RefreshAll re-syncs every tracked stock. Failures are logged per symbol
// and do not stop the sweep. Returns the number of symbols refreshed.
func (s *Service) RefreshAll(ctx context.Context) (int, error) {
	symbols, err := s.stocks.ListSymbols(ctx)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		if _, err := s.Sync(ctx, symbol); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Refresh failed")
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

// History returns up to days bars for a symbol, oldest first.
func (s *Service) History(ctx context.Context, symbol string, days int) ([]domain.PriceBar, error) {
	stock, err := s.Get(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = s.historyDays
	}
	return s.prices.History(ctx, stock.ID, days)
}

// Chart returns bars plus the derived indicator set. A symbol with no
// stored bars returns domain.ErrNoPriceHistory.
func (s *Service) Chart(ctx context.Context, symbol string, days int) (*ChartData, error) {
	stock, err := s.Get(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = s.historyDays
	}

	cacheKey := fmt.Sprintf("chart:%s:%d", stock.Symbol, days)
	if s.cache != nil {
		var cached ChartData
		if found, err := s.cache.GetIfFresh(cacheKey, &cached); err != nil {
			s.log.Warn().Err(err).Str("symbol", stock.Symbol).Msg("Chart cache read failed")
		} else if found {
			return &cached, nil
		}
	}

	bars, err := s.prices.History(ctx, stock.ID, days)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("stock %s: %w", stock.Symbol, domain.ErrNoPriceHistory)
	}

	chart := &ChartData{
		Symbol:     stock.Symbol,
		Bars:       bars,
		Indicators: indicators.Calculate(stock.Symbol, bars),
	}

	if s.cache != nil {
		if err := s.cache.Store(cacheKey, chart, chartCacheTTL); err != nil {
			s.log.Warn().Err(err).Str("symbol", stock.Symbol).Msg("Chart cache write failed")
		}
	}

	return chart, nil
}

// List returns tracked stocks with paging.
func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.Stock, error) {
	return s.stocks.List(ctx, limit, offset)
}

// Search matches tracked stocks by symbol or name.
func (s *Service) Search(ctx context.Context, term string, limit int) ([]domain.Stock, error) {
	return s.stocks.Search(ctx, term, limit)
}
