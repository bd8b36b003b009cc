// Package stocks manages tracked instruments: persistence, provider sync,
// and chart data.
package stocks

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockpulse/stockpulse/internal/domain"
)

// StockRepository handles the stocks table in market.db.
type StockRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewStockRepository creates a stock repository.
func NewStockRepository(db *sql.DB, log zerolog.Logger) *StockRepository {
	return &StockRepository{
		db:  db,
		log: log.With().Str("repository", "stocks").Logger(),
	}
}

const stockColumns = `id, symbol, name, exchange, sector, industry,
	market_cap, pe_ratio, beta, dividend_yield,
	fifty_two_week_high, fifty_two_week_low, current_price,
	created_at, updated_at`

func scanStock(row interface{ Scan(...any) error }) (*domain.Stock, error) {
	var s domain.Stock
	var marketCap, peRatio, beta, divYield, high52, low52, price sql.NullFloat64
	var createdAt, updatedAt string

	err := row.Scan(
		&s.ID, &s.Symbol, &s.Name, &s.Exchange, &s.Sector, &s.Industry,
		&marketCap, &peRatio, &beta, &divYield, &high52, &low52, &price,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.MarketCap = nullableFloat(marketCap)
	s.PERatio = nullableFloat(peRatio)
	s.Beta = nullableFloat(beta)
	s.DividendYield = nullableFloat(divYield)
	s.FiftyTwoWeekHigh = nullableFloat(high52)
	s.FiftyTwoWeekLow = nullableFloat(low52)
	s.CurrentPrice = nullableFloat(price)
	s.CreatedAt = parseDBTime(createdAt)
	s.UpdatedAt = parseDBTime(updatedAt)

	return &s, nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// parseDBTime parses sqlite datetime('now') output; zero time on failure.
func parseDBTime(v string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// GetBySymbol returns the stock for a symbol, (nil, nil) when unknown.
// Symbols are stored uppercase.
func (r *StockRepository) GetBySymbol(ctx context.Context, symbol string) (*domain.Stock, error) {
	query := fmt.Sprintf("SELECT %s FROM stocks WHERE symbol = ?", stockColumns)
	s, err := scanStock(r.db.QueryRowContext(ctx, query, strings.ToUpper(symbol)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock %s: %w", symbol, err)
	}
	return s, nil
}

// GetByID returns the stock with the given ID, (nil, nil) when unknown.
func (r *StockRepository) GetByID(ctx context.Context, id int64) (*domain.Stock, error) {
	query := fmt.Sprintf("SELECT %s FROM stocks WHERE id = ?", stockColumns)
	s, err := scanStock(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock %d: %w", id, err)
	}
	return s, nil
}

// List returns stocks ordered by symbol.
func (r *StockRepository) List(ctx context.Context, limit, offset int) ([]domain.Stock, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf("SELECT %s FROM stocks ORDER BY symbol LIMIT ? OFFSET ?", stockColumns)
	return r.queryStocks(ctx, query, limit, offset)
}

// Search matches symbol or name, case-insensitive substring.
func (r *StockRepository) Search(ctx context.Context, term string, limit int) ([]domain.Stock, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + strings.ToUpper(term) + "%"
	query := fmt.Sprintf(`SELECT %s FROM stocks
		WHERE UPPER(symbol) LIKE ? OR UPPER(name) LIKE ?
		ORDER BY symbol LIMIT ?`, stockColumns)
	return r.queryStocks(ctx, query, pattern, pattern, limit)
}

// ListSymbols returns every tracked symbol ordered alphabetically.
func (r *StockRepository) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT symbol FROM stocks ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

func (r *StockRepository) queryStocks(ctx context.Context, query string, args ...any) ([]domain.Stock, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stocks: %w", err)
	}
	defer rows.Close()

	var out []domain.Stock
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// UpsertFromProfile inserts or refreshes a stock from a provider profile
// and returns the stored row. Profile fields that are nil leave existing
// values untouched.
func (r *StockRepository) UpsertFromProfile(ctx context.Context, profile *domain.StockProfile) (*domain.Stock, error) {
	symbol := strings.ToUpper(profile.Symbol)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stocks (symbol, name, exchange, sector, industry,
			market_cap, pe_ratio, beta, dividend_yield,
			fifty_two_week_high, fifty_two_week_low, current_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE name END,
			exchange = CASE WHEN excluded.exchange != '' THEN excluded.exchange ELSE exchange END,
			sector = CASE WHEN excluded.sector != '' THEN excluded.sector ELSE sector END,
			industry = CASE WHEN excluded.industry != '' THEN excluded.industry ELSE industry END,
			market_cap = COALESCE(excluded.market_cap, market_cap),
			pe_ratio = COALESCE(excluded.pe_ratio, pe_ratio),
			beta = COALESCE(excluded.beta, beta),
			dividend_yield = COALESCE(excluded.dividend_yield, dividend_yield),
			fifty_two_week_high = COALESCE(excluded.fifty_two_week_high, fifty_two_week_high),
			fifty_two_week_low = COALESCE(excluded.fifty_two_week_low, fifty_two_week_low),
			current_price = COALESCE(excluded.current_price, current_price),
			updated_at = datetime('now')`,
		symbol, profile.Name, profile.Exchange, profile.Sector, profile.Industry,
		profile.MarketCap, profile.PERatio, profile.Beta, profile.DividendYield,
		profile.FiftyTwoWeekHigh, profile.FiftyTwoWeekLow, profile.CurrentPrice,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert stock %s: %w", symbol, err)
	}

	return r.GetBySymbol(ctx, symbol)
}
