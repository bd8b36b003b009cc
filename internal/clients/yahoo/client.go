// Package yahoo fetches stock profiles and daily price history from Yahoo
// Finance. Quotes go through the finance-go library; history uses the
// public chart endpoint directly.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/piquette/finance-go/equity"
	"github.com/rs/zerolog"

	"github.com/stockpulse/stockpulse/internal/domain"
	"github.com/stockpulse/stockpulse/internal/retry"
)

const (
	chartBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	userAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Client talks to Yahoo Finance. When allowSynthetic is set, a failed
// history fetch produces fabricated bars tagged Synthetic instead of an
// error.
type Client struct {
	httpClient     *http.Client
	retryPolicy    *retry.Policy
	chartURL       string
	allowSynthetic bool
	log            zerolog.Logger
}

// New creates a Yahoo client.
func New(allowSynthetic bool, log zerolog.Logger) *Client {
	return &Client{
		httpClient:     &http.Client{Timeout: 15 * time.Second},
		retryPolicy:    retry.Default(),
		chartURL:       chartBaseURL,
		allowSynthetic: allowSynthetic,
		log:            log.With().Str("client", "yahoo").Logger(),
	}
}

// GetProfile fetches the current quote for a symbol and maps it to a
// profile. Fields Yahoo does not report stay nil.
func (c *Client) GetProfile(ctx context.Context, symbol string) (*domain.StockProfile, error) {
	var profile *domain.StockProfile

	err := c.retryPolicy.Do(ctx, func() error {
		q, err := equity.Get(symbol)
		if err != nil {
			return fmt.Errorf("quote fetch failed: %w", err)
		}
		if q == nil {
			// Unknown symbol, retrying will not help
			return retry.Permanent(fmt.Errorf("symbol %s: %w", symbol, domain.ErrNotFound))
		}

		profile = &domain.StockProfile{
			Symbol:   q.Symbol,
			Name:     q.ShortName,
			Exchange: q.FullExchangeName,
		}
		if q.RegularMarketPrice > 0 {
			price := q.RegularMarketPrice
			profile.CurrentPrice = &price
		}
		if q.TrailingPE > 0 {
			pe := q.TrailingPE
			profile.PERatio = &pe
		}
		if q.MarketCap > 0 {
			mc := float64(q.MarketCap)
			profile.MarketCap = &mc
		}
		if q.TrailingAnnualDividendYield > 0 {
			dy := q.TrailingAnnualDividendYield
			profile.DividendYield = &dy
		}
		if q.FiftyTwoWeekHigh > 0 {
			h := q.FiftyTwoWeekHigh
			profile.FiftyTwoWeekHigh = &h
		}
		if q.FiftyTwoWeekLow > 0 {
			l := q.FiftyTwoWeekLow
			profile.FiftyTwoWeekLow = &l
		}
		return nil
	})
	if err != nil {
		return nil, c.wrapProviderError(symbol, err)
	}

	return profile, nil
}

// chartResponse mirrors the chart endpoint's JSON shape.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetDailyHistory fetches daily bars covering roughly the last `days`
// calendar days, oldest first.
func (c *Client) GetDailyHistory(ctx context.Context, symbol string, days int) ([]domain.PriceBar, error) {
	if days <= 0 {
		days = 365
	}

	var bars []domain.PriceBar
	err := c.retryPolicy.Do(ctx, func() error {
		var fetchErr error
		bars, fetchErr = c.fetchChart(ctx, symbol, days)
		return fetchErr
	})
	if err != nil {
		if c.allowSynthetic {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("History fetch failed, fabricating synthetic bars")
			return c.syntheticBars(ctx, symbol, days)
		}
		return nil, c.wrapProviderError(symbol, err)
	}

	return bars, nil
}

func (c *Client) fetchChart(ctx context.Context, symbol string, days int) ([]domain.PriceBar, error) {
	endpoint := fmt.Sprintf("%s/%s?range=%s&interval=1d", c.chartURL, url.PathEscape(symbol), rangeParam(days))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chart request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, retry.Permanent(fmt.Errorf("symbol %s: %w", symbol, domain.ErrNotFound))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart request returned status %d", resp.StatusCode)
	}

	var parsed chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, retry.Permanent(fmt.Errorf("chart decode failed: %w: %w", err, domain.ErrMalformedResponse))
	}

	if parsed.Chart.Error != nil {
		return nil, retry.Permanent(fmt.Errorf("chart error %s: %w", parsed.Chart.Error.Code, domain.ErrNotFound))
	}
	if len(parsed.Chart.Result) == 0 || len(parsed.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, retry.Permanent(fmt.Errorf("empty chart result for %s: %w", symbol, domain.ErrMalformedResponse))
	}

	result := parsed.Chart.Result[0]
	quotes := result.Indicators.Quote[0]

	bars := make([]domain.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quotes.Close) || quotes.Close[i] == 0 {
			// Yahoo pads holidays with zeroed entries
			continue
		}
		bar := domain.PriceBar{
			Date:  time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Close: quotes.Close[i],
		}
		if i < len(quotes.Open) {
			bar.Open = quotes.Open[i]
		}
		if i < len(quotes.High) {
			bar.High = quotes.High[i]
		}
		if i < len(quotes.Low) {
			bar.Low = quotes.Low[i]
		}
		if i < len(quotes.Volume) {
			bar.Volume = quotes.Volume[i]
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

// rangeParam maps a day count to the nearest Yahoo range bucket.
func rangeParam(days int) string {
	switch {
	case days <= 7:
		return "7d"
	case days <= 31:
		return "1mo"
	case days <= 93:
		return "3mo"
	case days <= 186:
		return "6mo"
	case days <= 366:
		return "1y"
	case days <= 731:
		return "2y"
	default:
		return "5y"
	}
}

// syntheticBars fabricates a flat daily series anchored at the current
// quote price. Every bar is tagged so downstream consumers can tell it
// apart from provider data.
func (c *Client) syntheticBars(ctx context.Context, symbol string, days int) ([]domain.PriceBar, error) {
	profile, err := c.GetProfile(ctx, symbol)
	if err != nil {
		return nil, err
	}

	price := 100.0
	if profile.CurrentPrice != nil {
		price = *profile.CurrentPrice
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	bars := make([]domain.PriceBar, 0, days)
	for i := days - 1; i >= 0; i-- {
		date := today.AddDate(0, 0, -i)
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		bars = append(bars, domain.PriceBar{
			Date: date,
			Open: price, High: price, Low: price, Close: price,
			Synthetic: true,
		})
	}
	return bars, nil
}

// wrapProviderError tags transport-level failures with ErrExternalService
// while letting domain sentinels pass through unchanged.
func (c *Client) wrapProviderError(symbol string, err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrMalformedResponse) {
		return err
	}
	return fmt.Errorf("yahoo provider failed for %s: %w: %w", symbol, err, domain.ErrExternalService)
}
