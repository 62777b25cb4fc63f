package ai

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/sigengine/internal/domain"
	"github.com/vadiminshakov/sigengine/internal/services/market/collector"
	"github.com/vadiminshakov/sigengine/internal/services/market/indicators"
)

const (
	ensembleLookback  = 200
	ensembleThreshold = 0.2
	strongADX         = 25.0
)

// RuleEnsemble averages three indicator-driven models: trend following,
// mean reversion and momentum.
type RuleEnsemble struct {
	source   collector.CandleSource
	calc     *indicators.Calculator
	lookback int
}

// NewRuleEnsemble creates an ensemble reading candles from source. calc is
// used unless the context carries the decision's indicator parameters.
func NewRuleEnsemble(source collector.CandleSource, calc *indicators.Calculator) *RuleEnsemble {
	return &RuleEnsemble{source: source, calc: calc, lookback: ensembleLookback}
}

func (e *RuleEnsemble) Predict(ctx context.Context, symbol, interval string) (domain.AIPrediction, error) {
	candles, err := e.source.Fetch(ctx, symbol, interval, e.lookback)
	if err != nil {
		return domain.AIPrediction{}, errors.Wrap(err, "fetch candles for ensemble")
	}
	calc := e.calc
	if params, ok := IndicatorParametersFrom(ctx); ok {
		calc = indicators.NewCalculator(params)
	}
	snapshot := calc.Compute(candles)
	if !snapshot.Sufficient {
		return domain.AIPrediction{}, errors.Wrapf(domain.ErrInsufficientData, "ensemble got %d candles", len(candles))
	}

	last := domain.SortCandles(candles)[len(candles)-1].Close.InexactFloat64()
	return Ensemble(snapshot, last), nil
}

// Ensemble derives a prediction from an indicator snapshot and the last close.
func Ensemble(s domain.IndicatorSnapshot, lastClose float64) domain.AIPrediction {
	models := []float64{trendModel(s), meanReversionModel(s), momentumModel(s)}

	var score float64
	for _, m := range models {
		score += m
	}
	score /= float64(len(models))

	prediction := domain.AIPrediction{Signal: domain.DirectionHold, Source: "rules"}
	switch {
	case score > ensembleThreshold:
		prediction.Signal = domain.DirectionBuy
	case score < -ensembleThreshold:
		prediction.Signal = domain.DirectionSell
	}

	agree := agreement(models, score)
	prediction.Confidence = clamp(50+math.Abs(score)*40+agree*10, 0, 95)

	var volatility float64
	if lastClose > 0 {
		volatility = s.ATR / lastClose * 100
	}
	prediction.RiskScore = clamp(volatility*25+(1-agree)*30, 0, 100)

	return prediction
}

func trendModel(s domain.IndicatorSnapshot) float64 {
	v := float64(s.MA.Trend.Sign())
	if s.ADX.Value < strongADX {
		v *= 0.5
	}
	return v
}

// oversold bands and RSI vote for a bounce, overbought ones for a pullback
func meanReversionModel(s domain.IndicatorSnapshot) float64 {
	var band float64
	switch s.Bollinger.Breakout {
	case domain.BreakoutLower:
		band = 1
	case domain.BreakoutUpper:
		band = -1
	}
	return (band + float64(s.RSI.Signal.Vote())) / 2
}

func momentumModel(s domain.IndicatorSnapshot) float64 {
	return float64(s.ProfessionalStrength) / 5
}

// agreement returns the share of non-abstaining models that point the same way as score.
func agreement(models []float64, score float64) float64 {
	if score == 0 {
		return 0
	}
	var voting, agreeing int
	for _, m := range models {
		if m == 0 {
			continue
		}
		voting++
		if (m > 0) == (score > 0) {
			agreeing++
		}
	}
	if voting == 0 {
		return 0
	}
	return float64(agreeing) / float64(voting)
}
