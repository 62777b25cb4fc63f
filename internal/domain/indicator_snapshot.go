package domain

// MinCandlesForIndicators is the minimum history the calculator needs before it
// produces anything but neutral defaults.
const MinCandlesForIndicators = 50

// BandBreakout is the position of the close relative to the Bollinger envelope.
type BandBreakout string

const (
	BreakoutUpper BandBreakout = "UPPER"
	BreakoutLower BandBreakout = "LOWER"
	BreakoutNone  BandBreakout = "NONE"
)

// TrendStrength ADX strength bucket.
type TrendStrength string

const (
	TrendStrengthWeak       TrendStrength = "WEAK"
	TrendStrengthModerate   TrendStrength = "MODERATE"
	TrendStrengthStrong     TrendStrength = "STRONG"
	TrendStrengthVeryStrong TrendStrength = "VERY_STRONG"
)

// VolumeTrend compares the current volume with its moving average.
type VolumeTrend string

const (
	VolumeHigh   VolumeTrend = "HIGH"
	VolumeNormal VolumeTrend = "NORMAL"
	VolumeLow    VolumeTrend = "LOW"
)

type RSIReading struct {
	Value      float64 `json:"value"`
	Signal     Signal  `json:"signal"`
	Overbought bool    `json:"overbought"`
	Oversold   bool    `json:"oversold"`
}

type MACDReading struct {
	MACD       float64 `json:"macd"`
	SignalLine float64 `json:"signal_line"`
	Histogram  float64 `json:"histogram"`
	Signal     Signal  `json:"signal_type"`
}

type BollingerReading struct {
	Upper    float64      `json:"upper"`
	Middle   float64      `json:"middle"`
	Lower    float64      `json:"lower"`
	Width    float64      `json:"width"`
	PercentB float64      `json:"percent_b"`
	Breakout BandBreakout `json:"breakout"`
}

type MovingAverages struct {
	SMA20 float64        `json:"sma_20"`
	SMA50 float64        `json:"sma_50"`
	EMA12 float64        `json:"ema_12"`
	EMA26 float64        `json:"ema_26"`
	Trend TrendDirection `json:"trend"`
}

type ADXReading struct {
	Value     float64        `json:"value"`
	PlusDI    float64        `json:"plus_di"`
	MinusDI   float64        `json:"minus_di"`
	Strength  TrendStrength  `json:"strength"`
	Direction TrendDirection `json:"direction"`
}

type StochasticReading struct {
	K      float64 `json:"k"`
	D      float64 `json:"d"`
	Signal Signal  `json:"signal"`
}

type VolumeReading struct {
	Current       float64     `json:"current"`
	MovingAverage float64     `json:"moving_average"`
	Trend         VolumeTrend `json:"trend"`
	HighVolume    bool        `json:"high_volume"`
}

// IndicatorSnapshot holds indicator values computed from a candle series at its last bar.
type IndicatorSnapshot struct {
	RSI        RSIReading        `json:"rsi"`
	MACD       MACDReading       `json:"macd"`
	Bollinger  BollingerReading  `json:"bollinger_bands"`
	MA         MovingAverages    `json:"moving_averages"`
	ADX        ADXReading        `json:"adx"`
	Stochastic StochasticReading `json:"stochastic"`
	Volume     VolumeReading     `json:"volume"`
	ATR        float64           `json:"atr"`

	// ProfessionalStrength is the composite vote of RSI, MACD, MA trend, ADX and
	// volume confirmation in the range -5..+5.
	ProfessionalStrength int `json:"professional_strength"`
	// StrongMomentum is set when |ProfessionalStrength| >= 3.
	StrongMomentum bool `json:"strong_momentum"`
	// Sufficient is false when the snapshot holds neutral defaults.
	Sufficient bool `json:"sufficient"`
}

// NeutralSnapshot returns the snapshot used when the history is too short.
func NeutralSnapshot() IndicatorSnapshot {
	return IndicatorSnapshot{
		RSI:        RSIReading{Value: 50, Signal: SignalNeutral},
		MACD:       MACDReading{Signal: SignalNeutral},
		Bollinger:  BollingerReading{PercentB: 0.5, Breakout: BreakoutNone},
		MA:         MovingAverages{Trend: TrendNeutral},
		ADX:        ADXReading{Value: 25, Strength: TrendStrengthWeak, Direction: TrendNeutral},
		Stochastic: StochasticReading{K: 50, D: 50, Signal: SignalNeutral},
		Volume:     VolumeReading{Trend: VolumeNormal},
	}
}
