package domain

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// IndicatorParameters defines the tunable indicator periods and thresholds.
type IndicatorParameters struct {
	RSIPeriod             int     `yaml:"rsi_period" json:"rsi_period" validate:"gte=2,lte=50"`
	RSIOverbought         float64 `yaml:"rsi_overbought" json:"rsi_overbought" validate:"gt=50,lte=100"`
	RSIOversold           float64 `yaml:"rsi_oversold" json:"rsi_oversold" validate:"gte=0,lt=50"`
	MACDFast              int     `yaml:"macd_fast" json:"macd_fast" validate:"gte=2"`
	MACDSlow              int     `yaml:"macd_slow" json:"macd_slow" validate:"gtfield=MACDFast,lte=50"`
	MACDSignal            int     `yaml:"macd_signal" json:"macd_signal" validate:"gte=2,lte=20"`
	BollingerPeriod       int     `yaml:"bollinger_period" json:"bollinger_period" validate:"gte=2,lte=50"`
	BollingerDeviation    float64 `yaml:"bollinger_deviation" json:"bollinger_deviation" validate:"gt=0,lte=5"`
	MAShort               int     `yaml:"ma_short" json:"ma_short" validate:"gte=2"`
	MALong                int     `yaml:"ma_long" json:"ma_long" validate:"gtfield=MAShort,lte=50"`
	AIConfidenceThreshold float64 `yaml:"ai_confidence_threshold" json:"ai_confidence_threshold" validate:"gte=0,lte=100"`
}

// RiskParameters defines stop-loss and take-profit sizing.
type RiskParameters struct {
	UseATRBasedSLTP         bool    `yaml:"use_atr_based_sl_tp" json:"use_atr_based_sl_tp"`
	ATRStopLossMultiplier   float64 `yaml:"atr_stop_loss_multiplier" json:"atr_stop_loss_multiplier" validate:"gt=0"`
	ATRTakeProfitMultiplier float64 `yaml:"atr_take_profit_multiplier" json:"atr_take_profit_multiplier" validate:"gt=0"`
	// StopLossPercent and TakeProfitPercent are in percent of the entry price.
	StopLossPercent   float64 `yaml:"stop_loss_percent" json:"stop_loss_percent" validate:"gt=0,lt=100"`
	TakeProfitPercent float64 `yaml:"take_profit_percent" json:"take_profit_percent" validate:"gt=0"`
}

// WeightConfiguration defines the per-factor weights and indicator parameters of the engine.
type WeightConfiguration struct {
	RSIWeight               float64 `yaml:"rsi_weight" json:"rsi_weight" validate:"gt=0"`
	MACDWeight              float64 `yaml:"macd_weight" json:"macd_weight" validate:"gt=0"`
	VolumeWeight            float64 `yaml:"volume_weight" json:"volume_weight" validate:"gt=0"`
	CandlestickWeight       float64 `yaml:"candlestick_weight" json:"candlestick_weight" validate:"gt=0"`
	BollingerWeight         float64 `yaml:"bollinger_weight" json:"bollinger_weight" validate:"gt=0"`
	MAWeight                float64 `yaml:"ma_weight" json:"ma_weight" validate:"gt=0"`
	SupportResistanceWeight float64 `yaml:"support_resistance_weight" json:"support_resistance_weight" validate:"gt=0"`
	AISignalWeight          float64 `yaml:"ai_signal_weight" json:"ai_signal_weight" validate:"gt=0"`
	MultiTimeframeWeight    float64 `yaml:"multi_timeframe_weight" json:"multi_timeframe_weight" validate:"gt=0"`

	Indicators IndicatorParameters `yaml:"indicators" json:"indicators"`
	Risk       RiskParameters      `yaml:"risk" json:"risk"`
}

// DefaultWeights returns the defaults used when no configuration is stored.
func DefaultWeights() WeightConfiguration {
	return WeightConfiguration{
		RSIWeight:               1.5,
		MACDWeight:              1.5,
		VolumeWeight:            1.0,
		CandlestickWeight:       1.0,
		BollingerWeight:         1.0,
		MAWeight:                2.0,
		SupportResistanceWeight: 1.5,
		AISignalWeight:          2.0,
		MultiTimeframeWeight:    2.5,
		Indicators: IndicatorParameters{
			RSIPeriod:             14,
			RSIOverbought:         70,
			RSIOversold:           30,
			MACDFast:              12,
			MACDSlow:              26,
			MACDSignal:            9,
			BollingerPeriod:       20,
			BollingerDeviation:    2.0,
			MAShort:               20,
			MALong:                50,
			AIConfidenceThreshold: 60,
		},
		Risk: RiskParameters{
			UseATRBasedSLTP:         false,
			ATRStopLossMultiplier:   2.0,
			ATRTakeProfitMultiplier: 3.0,
			StopLossPercent:         2,
			TakeProfitPercent:       4,
		},
	}
}

// Validate checks ranges of every field.
func (w WeightConfiguration) Validate() error {
	if err := validate.Struct(w); err != nil {
		return errors.Wrap(err, "invalid weight configuration")
	}
	return nil
}

// StopLossFraction returns the stop-loss distance as a fraction of the entry price.
func (r RiskParameters) StopLossFraction() decimal.Decimal {
	return decimal.NewFromFloat(r.StopLossPercent).Div(decimal.NewFromInt(100))
}

// TakeProfitFraction returns the take-profit distance as a fraction of the entry price.
func (r RiskParameters) TakeProfitFraction() decimal.Decimal {
	return decimal.NewFromFloat(r.TakeProfitPercent).Div(decimal.NewFromInt(100))
}
