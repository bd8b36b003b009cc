// Package indicators derives technical indicators from daily price bars.
package indicators

import (
	"time"

	talib "github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"github.com/stockpulse/stockpulse/internal/domain"
)

const (
	rsiPeriod = 14

	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
	// talib needs slow+signal bars before the first signal-line value exists
	macdMinBars = macdSlow + macdSignal

	bollingerPeriod = 20
)

// Calculate computes the indicator set for a series of bars ordered oldest
// first. Indicators whose window exceeds the available history are left nil;
// a value is never fabricated from a partial window.
func Calculate(symbol string, bars []domain.PriceBar) domain.IndicatorSet {
	set := domain.IndicatorSet{
		Symbol:       symbol,
		CalculatedAt: time.Now().UTC(),
	}

	if len(bars) == 0 {
		return set
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	last := bars[len(bars)-1]
	set.CurrentPrice = last.Close
	set.Volume = last.Volume

	if len(bars) >= 2 {
		prev := closes[len(closes)-2]
		set.PriceChange = last.Close - prev
		if prev != 0 {
			set.PriceChangePercent = set.PriceChange / prev * 100
		}
	}

	set.MovingAverages = domain.MovingAverages{
		MA5:  sma(closes, 5),
		MA10: sma(closes, 10),
		MA20: sma(closes, 20),
		MA50: sma(closes, 50),
	}

	set.RSI = rsi(closes, rsiPeriod)
	set.MACD = macd(closes)
	set.Bollinger = bollinger(closes)

	return set
}

// sma returns the mean of the trailing window closes, nil when the history
// is shorter than the window.
func sma(closes []float64, window int) *float64 {
	if len(closes) < window {
		return nil
	}
	v := stat.Mean(closes[len(closes)-window:], nil)
	return &v
}

// rsi is a simple rolling-mean RSI over the trailing period: average gain
// and average loss are plain means of the last `period` deltas, not Wilder
// smoothing. Zero average loss yields 100.
func rsi(closes []float64, period int) *float64 {
	if len(closes) < period+1 {
		return nil
	}

	window := closes[len(closes)-period-1:]
	var gains, losses float64
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	var v float64
	if avgLoss == 0 {
		v = 100
	} else {
		rs := avgGain / avgLoss
		v = 100 - 100/(1+rs)
	}
	return &v
}

// macd returns the latest MACD(12,26,9) values, nil when fewer than
// slow+signal bars are available.
func macd(closes []float64) *domain.MACDValues {
	if len(closes) < macdMinBars {
		return nil
	}

	macdLine, signalLine, hist := talib.Macd(closes, macdFast, macdSlow, macdSignal)
	i := len(closes) - 1
	return &domain.MACDValues{
		MACD:      macdLine[i],
		Signal:    signalLine[i],
		Histogram: hist[i],
	}
}

// bollinger returns the latest 20-period bands at 2 standard deviations,
// nil when fewer than 20 bars are available.
func bollinger(closes []float64) *domain.BollingerBands {
	if len(closes) < bollingerPeriod {
		return nil
	}

	upper, middle, lower := talib.BBands(closes, bollingerPeriod, 2.0, 2.0, 0)
	i := len(closes) - 1
	return &domain.BollingerBands{
		Upper:  upper[i],
		Middle: middle[i],
		Lower:  lower[i],
	}
}
