package engine

import (
	"fmt"
	"math"

	"github.com/vadiminshakov/sigengine/internal/domain"
)

const (
	aiFullConfidence        = 75.0
	confluenceMinConfidence = 60.0
	strongConfluenceBoost   = 1.5
	strongLevelBoost        = 1.5
	weakLevelFactor         = 0.5
	extremityFactor         = 0.5
	bollingerFixedWeight    = 1.0

	minConfidence = 25.0
	maxConfidence = 95.0
)

// inputs holds everything the scoring step needs. It is collected before
// scoring starts.
type inputs struct {
	snapshot   domain.IndicatorSnapshot
	pattern    domain.PatternMatch
	levels     domain.LevelAnalysis
	confluence domain.ConfluenceSignal
	prediction domain.AIPrediction
	aiErr      error
	// atr sizes ATR based exits
	atr float64
}

// score records every factor in domain.FactorKeys order.
func score(in inputs, cfg domain.WeightConfiguration) *domain.FactorsBuilder {
	b := &domain.FactorsBuilder{}
	s := in.snapshot

	if dir := in.pattern.Direction.Sign(); dir != 0 && in.pattern.Name != domain.PatternDoji {
		b.Add(domain.FactorCandlestickPattern, in.pattern.Direction.Signal(), float64(dir)*cfg.CandlestickWeight,
			"%s pattern detected (score %d)", in.pattern.Name, in.pattern.Score)
	} else {
		b.Add(domain.FactorCandlestickPattern, domain.SignalNeutral, 0, "no directional pattern (%s)", in.pattern.Name)
	}

	trend := s.MA.Trend.Sign()
	b.Add(domain.FactorTrend, s.MA.Trend.Signal(), float64(trend)*cfg.MAWeight,
		"%s trend: SMA20 %.4f, SMA50 %.4f", s.MA.Trend.Title(), s.MA.SMA20, s.MA.SMA50)

	if s.StrongMomentum && trend != 0 {
		b.Add(domain.FactorMomentum, s.MA.Trend.Signal(), float64(trend)*cfg.MAWeight,
			"strong momentum (strength %d) confirms %s trend", s.ProfessionalStrength, s.MA.Trend.Title())
	} else {
		b.Add(domain.FactorMomentum, domain.SignalNeutral, 0,
			"momentum not strong enough (strength %d)", s.ProfessionalStrength)
	}

	switch s.RSI.Signal {
	case domain.SignalBuy:
		b.Add(domain.FactorRSI, domain.SignalBuy, cfg.RSIWeight, "RSI %.1f oversold", s.RSI.Value)
	case domain.SignalSell:
		b.Add(domain.FactorRSI, domain.SignalSell, -cfg.RSIWeight, "RSI %.1f overbought", s.RSI.Value)
	default:
		b.Add(domain.FactorRSI, domain.SignalNeutral, 0, "RSI %.1f neutral", s.RSI.Value)
	}

	switch s.MACD.Signal {
	case domain.SignalBuy:
		b.Add(domain.FactorMACD, domain.SignalBuy, cfg.MACDWeight, "bullish MACD crossover (histogram %.4f)", s.MACD.Histogram)
	case domain.SignalSell:
		b.Add(domain.FactorMACD, domain.SignalSell, -cfg.MACDWeight, "bearish MACD crossover (histogram %.4f)", s.MACD.Histogram)
	default:
		b.Add(domain.FactorMACD, domain.SignalNeutral, 0, "no MACD crossover (histogram %.4f)", s.MACD.Histogram)
	}

	// volume confirms an existing direction, it never starts one
	running := b.Total()
	if s.Volume.HighVolume && running != 0 {
		signal := domain.SignalFromSign(running)
		b.Add(domain.FactorVolume, signal, math.Copysign(cfg.VolumeWeight, running),
			"high volume (%.2f vs MA %.2f) confirms %s", s.Volume.Current, s.Volume.MovingAverage, signal)
	} else {
		b.Add(domain.FactorVolume, domain.SignalNeutral, 0, "volume %s, no confirmation", s.Volume.Trend)
	}

	switch s.Bollinger.Breakout {
	case domain.BreakoutUpper:
		b.Add(domain.FactorBollinger, domain.SignalBuy, bollingerFixedWeight, "close above upper band %.4f", s.Bollinger.Upper)
	case domain.BreakoutLower:
		b.Add(domain.FactorBollinger, domain.SignalSell, -bollingerFixedWeight, "close below lower band %.4f", s.Bollinger.Lower)
	default:
		b.Add(domain.FactorBollinger, domain.SignalNeutral, 0, "inside bands (%%B %.2f)", s.Bollinger.PercentB)
	}

	signal, weight, reasoning := supportResistance(in.levels, cfg.SupportResistanceWeight)
	b.Add(domain.FactorSupportResistance, signal, weight, reasoning)

	signal, weight, reasoning = aiFactor(in.prediction, in.aiErr, cfg.AISignalWeight, cfg.Indicators.AIConfidenceThreshold)
	b.Add(domain.FactorAI, signal, weight, reasoning)

	signal, weight, reasoning = confluenceFactor(in.confluence, cfg.MultiTimeframeWeight)
	b.Add(domain.FactorMultiTimeframe, signal, weight, reasoning)

	return b
}

// levelScale returns the weight multiplier for a level of the given strength.
func levelScale(strength int) float64 {
	switch {
	case strength >= 4:
		return strongLevelBoost
	case strength >= 2:
		return weakLevelFactor
	default:
		return 0
	}
}

// supportResistance treats tests of strong levels as bullish in both
// directions: a support bounce and a resistance breakout attempt.
func supportResistance(a domain.LevelAnalysis, weight float64) (domain.Signal, float64, string) {
	if a.Status != domain.LevelStatusOK {
		return domain.SignalNeutral, 0, "support/resistance: insufficient data"
	}

	if a.Test != nil {
		w := weight * levelScale(a.Test.SignalStrength)
		return domain.SignalBuy, w, fmt.Sprintf("%s at %s (strength %d)",
			a.Test.Potential, a.Test.Level.Price.String(), a.Test.SignalStrength)
	}

	switch a.Position {
	case domain.PositionNearSupport:
		if lvl, ok := a.NearestSupport(); ok {
			return domain.SignalBuy, weight * levelScale(lvl.Strength),
				fmt.Sprintf("near support %s (strength %d)", lvl.Price.String(), lvl.Strength)
		}
	case domain.PositionNearResistance:
		if lvl, ok := a.NearestResistance(); ok {
			return domain.SignalSell, -weight * levelScale(lvl.Strength),
				fmt.Sprintf("near resistance %s (strength %d)", lvl.Price.String(), lvl.Strength)
		}
	case domain.PositionAboveAllResistance:
		return domain.SignalBuy, weight * extremityFactor, "price above all nearby resistance"
	case domain.PositionBelowAllSupport:
		return domain.SignalSell, -weight * extremityFactor, "price below all nearby support"
	}

	return domain.SignalNeutral, 0, fmt.Sprintf("price position %s", a.Position)
}

func aiFactor(p domain.AIPrediction, failure error, weight, threshold float64) (domain.Signal, float64, string) {
	if failure != nil {
		return domain.SignalNeutral, 0, "AI adapter unavailable, neutral fallback"
	}

	signal := p.Signal.Signal()
	dir := float64(signal.Vote())
	switch {
	case dir == 0:
		return domain.SignalNeutral, 0, fmt.Sprintf("AI holds (confidence %.0f, risk %.0f)", p.Confidence, p.RiskScore)
	case p.Confidence >= aiFullConfidence:
		return signal, dir * weight, fmt.Sprintf("AI %s with high confidence %.0f (risk %.0f)", p.Signal, p.Confidence, p.RiskScore)
	case p.Confidence >= threshold:
		return signal, dir * weight / 2, fmt.Sprintf("AI %s with moderate confidence %.0f (risk %.0f)", p.Signal, p.Confidence, p.RiskScore)
	default:
		return domain.SignalNeutral, 0, fmt.Sprintf("AI %s below confidence threshold (%.0f < %.0f)", p.Signal, p.Confidence, threshold)
	}
}

func confluenceFactor(c domain.ConfluenceSignal, weight float64) (domain.Signal, float64, string) {
	dir := float64(c.Signal.Vote())
	if dir == 0 || c.Confidence < confluenceMinConfidence {
		return domain.SignalNeutral, 0, fmt.Sprintf("timeframes disagree (%s, confidence %.0f)", c.Label(), c.Confidence)
	}

	w := dir * weight
	if c.Strong {
		w *= strongConfluenceBoost
	}
	return c.Signal, w, fmt.Sprintf("%s across %d timeframes (confidence %.0f)", c.Label(), len(c.Votes), c.Confidence)
}

// combine averages the weighted total with the indicator composite.
func combine(total float64, professionalStrength int) int {
	return int(math.Floor((total + float64(professionalStrength)) / 2))
}

func directionOf(combined int) domain.Direction {
	switch {
	case combined > 0:
		return domain.DirectionBuy
	case combined < 0:
		return domain.DirectionSell
	default:
		return domain.DirectionHold
	}
}

func confidence(combined int) float64 {
	c := 40 + math.Abs(float64(combined))*12
	return math.Max(minConfidence, math.Min(maxConfidence, c))
}
