package indicators

import (
	"math"

	"github.com/vadiminshakov/sigengine/internal/domain"
)

const (
	adxPeriod       = 14
	atrPeriod       = 14
	stochKPeriod    = 14
	stochSlowK      = 3
	stochDPeriod    = 3
	volumePeriod    = 20
	stochOverbought = 80.0
	stochOversold   = 20.0

	highVolumeRatio     = 1.2
	volumeTrendHigh     = 1.5
	volumeTrendLow      = 0.5
	strongMomentumVotes = 3
	maxStrength         = 5
)

// Calculator computes indicator snapshots. It holds only configuration and is
// safe for concurrent use.
type Calculator struct {
	params domain.IndicatorParameters
}

// NewCalculator creates a calculator with the given parameters.
func NewCalculator(params domain.IndicatorParameters) *Calculator {
	return &Calculator{params: params}
}

// Compute derives the indicator snapshot of the last candle. Series shorter
// than domain.MinCandlesForIndicators yield domain.NeutralSnapshot.
func (c *Calculator) Compute(candles []domain.Candle) domain.IndicatorSnapshot {
	if len(candles) < domain.MinCandlesForIndicators {
		return domain.NeutralSnapshot()
	}

	s := newSeries(domain.SortCandles(candles))
	price := s.closes[len(s.closes)-1]

	snapshot := domain.IndicatorSnapshot{
		RSI:        c.RSI(s.closes),
		MACD:       c.macd(s.closes),
		Bollinger:  c.bollinger(s.closes, price),
		MA:         c.movingAverages(s.closes, price),
		ADX:        adx(s),
		Stochastic: stochastic(s),
		Volume:     volume(s.volumes),
		ATR:        lastATR(s),
		Sufficient: true,
	}

	snapshot.ProfessionalStrength = ProfessionalStrength(snapshot)
	snapshot.StrongMomentum = abs(snapshot.ProfessionalStrength) >= strongMomentumVotes

	return snapshot
}

// RSI returns the reading of the last bar. Works on short series too: anything with at
// least period+1 closes is evaluated, shorter input returns the neutral reading.
func (c *Calculator) RSI(closes []float64) domain.RSIReading {
	reading := domain.RSIReading{Value: 50, Signal: domain.SignalNeutral}

	value := finite(last(RSISeries(closes, c.params.RSIPeriod)), 50)
	reading.Value = value
	reading.Overbought = value > c.params.RSIOverbought
	reading.Oversold = value < c.params.RSIOversold

	switch {
	case reading.Overbought:
		reading.Signal = domain.SignalSell
	case reading.Oversold:
		reading.Signal = domain.SignalBuy
	}
	return reading
}

func (c *Calculator) macd(closes []float64) domain.MACDReading {
	reading := domain.MACDReading{Signal: domain.SignalNeutral}

	line, sig := MACD(closes, c.params.MACDFast, c.params.MACDSlow, c.params.MACDSignal)
	n := len(line)
	if n == 0 {
		return reading
	}

	reading.MACD = finite(line[n-1], 0)
	reading.SignalLine = finite(sig[n-1], 0)
	reading.Histogram = reading.MACD - reading.SignalLine

	if n < 2 {
		return reading
	}

	// crossover compares this bar with the previous one only
	prevDiff := finite(line[n-2]-sig[n-2], 0)
	switch {
	case prevDiff <= 0 && reading.Histogram > 0:
		reading.Signal = domain.SignalBuy
	case prevDiff >= 0 && reading.Histogram < 0:
		reading.Signal = domain.SignalSell
	}
	return reading
}

func (c *Calculator) bollinger(closes []float64, price float64) domain.BollingerReading {
	reading := domain.BollingerReading{PercentB: 0.5, Breakout: domain.BreakoutNone}

	upper, middle, lower, ok := BollingerBands(closes, c.params.BollingerPeriod, c.params.BollingerDeviation)
	if !ok {
		return reading
	}

	reading.Upper = finite(upper, 0)
	reading.Middle = finite(middle, 0)
	reading.Lower = finite(lower, 0)
	if reading.Middle != 0 {
		reading.Width = (reading.Upper - reading.Lower) / reading.Middle
	}
	if band := reading.Upper - reading.Lower; band > 0 {
		reading.PercentB = (price - reading.Lower) / band
	}

	switch {
	case price > reading.Upper:
		reading.Breakout = domain.BreakoutUpper
	case price < reading.Lower:
		reading.Breakout = domain.BreakoutLower
	}
	return reading
}

func (c *Calculator) movingAverages(closes []float64, price float64) domain.MovingAverages {
	ma := domain.MovingAverages{
		SMA20: finite(last(SMA(closes, c.params.MAShort)), 0),
		SMA50: finite(last(SMA(closes, c.params.MALong)), 0),
		EMA12: finite(last(EMA(closes, c.params.MACDFast)), 0),
		EMA26: finite(last(EMA(closes, c.params.MACDSlow)), 0),
		Trend: domain.TrendNeutral,
	}

	if ma.SMA20 == 0 || ma.SMA50 == 0 {
		return ma
	}

	switch {
	case price > ma.SMA20 && ma.SMA20 > ma.SMA50:
		ma.Trend = domain.TrendBullish
	case price < ma.SMA20 && ma.SMA20 < ma.SMA50:
		ma.Trend = domain.TrendBearish
	}
	return ma
}

func adx(s series) domain.ADXReading {
	reading := domain.ADXReading{Value: 25, Strength: domain.TrendStrengthWeak, Direction: domain.TrendNeutral}

	value, plus, minus, ok := ADX(s.highs, s.lows, s.closes, adxPeriod)
	if !ok {
		return reading
	}

	reading.Value = finite(value, 25)
	reading.PlusDI = finite(plus, 0)
	reading.MinusDI = finite(minus, 0)

	switch {
	case reading.Value > 50:
		reading.Strength = domain.TrendStrengthVeryStrong
	case reading.Value > 25:
		reading.Strength = domain.TrendStrengthStrong
	case reading.Value > 20:
		reading.Strength = domain.TrendStrengthModerate
	}

	if reading.PlusDI > reading.MinusDI {
		reading.Direction = domain.TrendBullish
	} else {
		reading.Direction = domain.TrendBearish
	}
	return reading
}

func stochastic(s series) domain.StochasticReading {
	reading := domain.StochasticReading{K: 50, D: 50, Signal: domain.SignalNeutral}

	k, d, ok := Stochastic(s.highs, s.lows, s.closes, stochKPeriod, stochSlowK, stochDPeriod)
	if !ok {
		return reading
	}

	reading.K = finite(k, 50)
	reading.D = finite(d, 50)

	switch {
	case reading.K > stochOverbought && reading.D > stochOverbought:
		reading.Signal = domain.SignalSell
	case reading.K < stochOversold && reading.D < stochOversold:
		reading.Signal = domain.SignalBuy
	}
	return reading
}

func volume(volumes []float64) domain.VolumeReading {
	reading := domain.VolumeReading{Trend: domain.VolumeNormal}
	if len(volumes) == 0 {
		return reading
	}

	period := min(volumePeriod, len(volumes))
	var sum float64
	for _, v := range volumes[len(volumes)-period:] {
		sum += v
	}

	reading.Current = volumes[len(volumes)-1]
	reading.MovingAverage = sum / float64(period)
	if reading.MovingAverage <= 0 {
		return reading
	}

	ratio := reading.Current / reading.MovingAverage
	reading.HighVolume = ratio > highVolumeRatio
	switch {
	case ratio > volumeTrendHigh:
		reading.Trend = domain.VolumeHigh
	case ratio < volumeTrendLow:
		reading.Trend = domain.VolumeLow
	}
	return reading
}

// ProfessionalStrength computes the composite of RSI, MACD histogram, MA trend, ADX
// direction (strong trends only) and volume confirmation, clamped to -5..+5.
func ProfessionalStrength(s domain.IndicatorSnapshot) int {
	if !s.Sufficient {
		return 0
	}

	strength := s.RSI.Signal.Vote()

	switch {
	case s.MACD.Histogram > 0:
		strength++
	case s.MACD.Histogram < 0:
		strength--
	}

	strength += s.MA.Trend.Sign()

	if s.ADX.Strength == domain.TrendStrengthStrong || s.ADX.Strength == domain.TrendStrengthVeryStrong {
		strength += s.ADX.Direction.Sign()
	}

	// volume only confirms a direction that already exists
	if s.Volume.HighVolume && strength != 0 {
		if strength > 0 {
			strength++
		} else {
			strength--
		}
	}

	return max(-maxStrength, min(maxStrength, strength))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// LastATR returns the 14-period average true range of the last bar, or zero
// when the series is too short.
func LastATR(candles []domain.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	return lastATR(newSeries(domain.SortCandles(candles)))
}

func lastATR(s series) float64 {
	return math.Max(finite(last(ATR(s.highs, s.lows, s.closes, atrPeriod)), 0), 0)
}
