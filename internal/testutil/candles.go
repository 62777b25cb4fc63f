// Package testutil builds deterministic candle series for tests.
package testutil

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/sigengine/internal/domain"
)

// Start is the open time of the first generated candle.
var Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Candle builds a candle from floats.
func Candle(at time.Time, open, high, low, close, volume float64) domain.Candle {
	return domain.Candle{
		OpenTime:  at,
		Open:      dec(open),
		High:      dec(high),
		Low:       dec(low),
		Close:     dec(close),
		Volume:    dec(volume),
		CloseTime: at.Add(time.Hour - time.Millisecond),
	}
}

// OHLC builds a candle with unit volume at Start.
func OHLC(open, high, low, close float64) domain.Candle {
	return Candle(Start, open, high, low, close, 1)
}

// FromCloses builds hourly candles whose open is the previous close and whose
// wicks extend 0.05% beyond the body.
func FromCloses(closes []float64, volume float64) []domain.Candle {
	candles := make([]domain.Candle, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		high := math.Max(open, c) * 1.0005
		low := math.Min(open, c) * 0.9995
		candles[i] = Candle(Start.Add(time.Duration(i)*time.Hour), open, high, low, c, volume)
	}
	return candles
}

// ZigzagUptrend builds an hourly series alternating up and down bars with an
// accelerating upward drift. Up moves are 65% of the swing, which keeps the
// 14-period RSI around 60-70 while MACD stays above its signal line and the
// close stays above SMA20 > SMA50.
func ZigzagUptrend(n int) []domain.Candle {
	const upShare = 0.65

	closes := make([]float64, n)
	price := 100.0
	for i := 0; i < n; i++ {
		drift := math.Min(0.0002*math.Exp(0.02*math.Max(0, float64(i-60))), 0.004)
		swing := 2 * drift / (2*upShare - 1)
		up := upShare * swing
		down := swing - up
		if i%2 == 0 {
			price *= 1 + up
		} else {
			price *= 1 - down
		}
		closes[i] = price
	}
	return FromCloses(closes, 1000)
}

// ZigzagDowntrend builds the mirror image of ZigzagUptrend.
func ZigzagDowntrend(n int) []domain.Candle {
	up := ZigzagUptrend(n)
	closes := make([]float64, n)
	for i, c := range up {
		closes[i] = 10000 / c.Close.InexactFloat64()
	}
	return FromCloses(closes, 1000)
}

// Declining builds strictly falling closes.
func Declining(n int, start, step float64) []domain.Candle {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start - float64(i)*step
	}
	return FromCloses(closes, 1000)
}

// Closes extracts close prices as floats.
func Closes(candles []domain.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close.InexactFloat64()
	}
	return out
}

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(8)
}
