package domain

import (
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Candle is a single OHLCV candlestick.
type Candle struct {
	OpenTime  time.Time       `json:"open_time"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	CloseTime time.Time       `json:"close_time"`
}

// IsBullish reports whether the candle closed above its open.
func (c Candle) IsBullish() bool {
	return c.Close.GreaterThan(c.Open)
}

// IsBearish reports whether the candle closed below its open.
func (c Candle) IsBearish() bool {
	return c.Close.LessThan(c.Open)
}

// Body returns |close-open|.
func (c Candle) Body() decimal.Decimal {
	return c.Close.Sub(c.Open).Abs()
}

// Range returns high-low.
func (c Candle) Range() decimal.Decimal {
	return c.High.Sub(c.Low)
}

// UpperShadow returns high - max(open, close).
func (c Candle) UpperShadow() decimal.Decimal {
	return c.High.Sub(decimal.Max(c.Open, c.Close))
}

// LowerShadow returns min(open, close) - low.
func (c Candle) LowerShadow() decimal.Decimal {
	return decimal.Min(c.Open, c.Close).Sub(c.Low)
}

// SortCandles returns a copy of candles ordered by open time ascending.
// The input slice is left untouched.
func SortCandles(candles []Candle) []Candle {
	out := make([]Candle, len(candles))
	copy(out, candles)
	if !sort.SliceIsSorted(out, func(i, j int) bool { return out[i].OpenTime.Before(out[j].OpenTime) }) {
		sort.SliceStable(out, func(i, j int) bool { return out[i].OpenTime.Before(out[j].OpenTime) })
	}
	return out
}

// TimeframeSpec describes one timeframe taking part in a multi-timeframe analysis.
type TimeframeSpec struct {
	Interval string  `yaml:"interval" json:"interval" validate:"required"`
	Lookback int     `yaml:"lookback" json:"lookback" validate:"gte=20"`
	Weight   float64 `yaml:"weight" json:"weight" validate:"gt=0"`
}

// DefaultLevelTimeframes is the timeframe table of the support/resistance analyzer
// (1h over a week, 4h over a month, 1d over a quarter, 1w over a year).
func DefaultLevelTimeframes() []TimeframeSpec {
	return []TimeframeSpec{
		{Interval: "1h", Lookback: 168, Weight: 1.0},
		{Interval: "4h", Lookback: 180, Weight: 1.5},
		{Interval: "1d", Lookback: 90, Weight: 2.0},
		{Interval: "1w", Lookback: 52, Weight: 3.0},
	}
}

// DefaultConfluenceTimeframes lists the timeframes voting in the confluence analyzer.
// Longer timeframes carry more weight.
func DefaultConfluenceTimeframes() []TimeframeSpec {
	return []TimeframeSpec{
		{Interval: "1h", Lookback: 100, Weight: 1.0},
		{Interval: "6h", Lookback: 100, Weight: 1.5},
		{Interval: "1d", Lookback: 100, Weight: 2.0},
		{Interval: "1w", Lookback: 60, Weight: 2.5},
	}
}

// ParseInterval converts an exchange interval ("1m", "4h", "1d", "1w") to a duration.
func ParseInterval(interval string) (time.Duration, error) {
	if len(interval) < 2 {
		return 0, errors.Errorf("invalid interval: %q", interval)
	}

	unit := interval[len(interval)-1]
	n, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || n <= 0 {
		return 0, errors.Errorf("invalid interval number: %q", interval)
	}

	switch unit {
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	default:
		return 0, errors.Errorf("unsupported interval unit: %c", unit)
	}
}
