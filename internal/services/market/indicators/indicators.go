// Package indicators computes technical indicator snapshots from candle series.
// Moving averages, RSI, MACD and ATR use the cinar/indicator pipelines;
// Bollinger Bands, ADX and Stochastic use go-talib.
package indicators

import (
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/markcheno/go-talib"
	"github.com/vadiminshakov/sigengine/internal/domain"
)

// series holds the float projections of a candle slice.
type series struct {
	opens   []float64
	highs   []float64
	lows    []float64
	closes  []float64
	volumes []float64
}

func newSeries(candles []domain.Candle) series {
	s := series{
		opens:   make([]float64, len(candles)),
		highs:   make([]float64, len(candles)),
		lows:    make([]float64, len(candles)),
		closes:  make([]float64, len(candles)),
		volumes: make([]float64, len(candles)),
	}
	for i, c := range candles {
		s.opens[i] = c.Open.InexactFloat64()
		s.highs[i] = c.High.InexactFloat64()
		s.lows[i] = c.Low.InexactFloat64()
		s.closes[i] = c.Close.InexactFloat64()
		s.volumes[i] = c.Volume.InexactFloat64()
	}
	return s
}

// EMA computes the exponential moving average. It is empty when the series is shorter than period.
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	ema := trend.NewEmaWithPeriod[float64](period)
	return helper.ChanToSlice(ema.Compute(helper.SliceToChan(values)))
}

// SMA computes the simple moving average. It is empty when the series is shorter than period.
func SMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	sma := trend.NewSmaWithPeriod[float64](period)
	return helper.ChanToSlice(sma.Compute(helper.SliceToChan(values)))
}

// RSISeries computes the Wilder relative strength index.
func RSISeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period+1 {
		return nil
	}
	rsi := momentum.NewRsiWithPeriod[float64](period)
	return helper.ChanToSlice(rsi.Compute(helper.SliceToChan(values)))
}

// MACD returns the MACD line and its signal line, aligned on the last bar.
func MACD(values []float64, fast, slow, signal int) ([]float64, []float64) {
	if fast <= 0 || slow <= fast || signal <= 0 || len(values) < slow+signal {
		return nil, nil
	}

	macd := trend.NewMacdWithPeriod[float64](fast, slow, signal)
	lineChan, signalChan := macd.Compute(helper.SliceToChan(values))

	// both outputs share one pipeline, drain them together
	var line []float64
	done := make(chan struct{})
	go func() {
		defer close(done)
		line = helper.ChanToSlice(lineChan)
	}()
	sig := helper.ChanToSlice(signalChan)
	<-done

	n := min(len(line), len(sig))
	return line[len(line)-n:], sig[len(sig)-n:]
}

// ATR computes the average true range.
func ATR(highs, lows, closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period+1 {
		return nil
	}
	atr := volatility.NewAtrWithPeriod[float64](period)
	return helper.ChanToSlice(atr.Compute(
		helper.SliceToChan(highs),
		helper.SliceToChan(lows),
		helper.SliceToChan(closes),
	))
}

// BollingerBands returns the upper, middle and lower band of the last bar.
func BollingerBands(closes []float64, period int, deviation float64) (upper, middle, lower float64, ok bool) {
	if period < 2 || len(closes) < period {
		return 0, 0, 0, false
	}
	u, m, l := talib.BBands(closes, period, deviation, deviation, talib.SMA)
	return last(u), last(m), last(l), true
}

// ADX returns the average directional index with +DI and -DI of the last bar.
func ADX(highs, lows, closes []float64, period int) (adx, plusDI, minusDI float64, ok bool) {
	if period <= 0 || len(closes) < 2*period+1 {
		return 0, 0, 0, false
	}
	adx = last(talib.Adx(highs, lows, closes, period))
	plusDI = last(talib.PlusDI(highs, lows, closes, period))
	minusDI = last(talib.MinusDI(highs, lows, closes, period))
	return adx, plusDI, minusDI, true
}

// Stochastic returns slow %K and %D of the last bar.
func Stochastic(highs, lows, closes []float64, kPeriod, slowK, dPeriod int) (k, d float64, ok bool) {
	if len(closes) < kPeriod+slowK+dPeriod {
		return 0, 0, false
	}
	kLine, dLine := talib.Stoch(highs, lows, closes, kPeriod, slowK, talib.SMA, dPeriod, talib.SMA)
	return last(kLine), last(dLine), true
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

// finite returns v, or fallback when v is NaN or infinite.
func finite(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
