// Package confluence measures how strongly indicator families agree across
// several timeframes.
package confluence

import (
	"context"
	"math"
	"time"

	"github.com/vadiminshakov/sigengine/internal/domain"
	"github.com/vadiminshakov/sigengine/internal/services/market/collector"
	"github.com/vadiminshakov/sigengine/internal/services/market/indicators"
	"github.com/vadiminshakov/sigengine/internal/services/market/patterns"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	signalThreshold = 0.3
	strongThreshold = 0.6
)

// Analyzer computes a ConfluenceSignal for a symbol.
type Analyzer struct {
	source     collector.CandleSource
	timeframes []domain.TimeframeSpec
	timeout    time.Duration
	logger     *zap.Logger
}

// NewAnalyzer creates an analyzer. Empty timeframes fall back to
// domain.DefaultConfluenceTimeframes.
func NewAnalyzer(source collector.CandleSource, timeframes []domain.TimeframeSpec, timeout time.Duration, logger *zap.Logger) *Analyzer {
	if len(timeframes) == 0 {
		timeframes = domain.DefaultConfluenceTimeframes()
	}
	return &Analyzer{
		source:     source,
		timeframes: timeframes,
		timeout:    timeout,
		logger:     logger.With(zap.String("component", "confluence")),
	}
}

// Analyze fetches all timeframes concurrently and computes their indicators
// with params, the same parameters the primary snapshot of a decision uses.
// Timeframes that fail to fetch or are too short for the indicators are left
// out of every weighted sum.
func (a *Analyzer) Analyze(ctx context.Context, symbol string, params domain.IndicatorParameters) domain.ConfluenceSignal {
	calc := indicators.NewCalculator(params)
	votes := make([]map[domain.IndicatorFamily]int, len(a.timeframes))

	// no shared cancellation: one failing timeframe must not cancel the others
	var g errgroup.Group
	for i, tf := range a.timeframes {
		g.Go(func() error {
			fctx, cancel := withTimeout(ctx, a.timeout)
			defer cancel()

			candles, err := a.source.Fetch(fctx, symbol, tf.Interval, tf.Lookback)
			if err != nil {
				a.logger.Warn("timeframe omitted",
					zap.String("symbol", symbol),
					zap.String("interval", tf.Interval),
					zap.Error(err))
				return nil
			}
			snapshot := calc.Compute(candles)
			if !snapshot.Sufficient {
				a.logger.Debug("timeframe omitted, short history",
					zap.String("symbol", symbol),
					zap.String("interval", tf.Interval),
					zap.Int("candles", len(candles)))
				return nil
			}
			votes[i] = FamilyVotes(snapshot, patterns.DetectLatest(domain.SortCandles(candles)))
			return nil
		})
	}
	_ = g.Wait()

	return Combine(a.timeframes, votes)
}

// FamilyVotes turns one timeframe's indicators into a +1/-1/0 vote per family.
func FamilyVotes(s domain.IndicatorSnapshot, p domain.PatternMatch) map[domain.IndicatorFamily]int {
	return map[domain.IndicatorFamily]int{
		domain.FamilyRSI:      s.RSI.Signal.Vote(),
		domain.FamilyMACD:     sign(s.MACD.Histogram),
		domain.FamilyTrend:    s.MA.Trend.Sign(),
		domain.FamilyPattern:  p.Direction.Sign(),
		domain.FamilyMomentum: sign(float64(s.ProfessionalStrength)),
	}
}

// Combine aggregates per-timeframe family votes. A nil entry in votes marks
// an omitted timeframe.
func Combine(timeframes []domain.TimeframeSpec, votes []map[domain.IndicatorFamily]int) domain.ConfluenceSignal {
	result := domain.NeutralConfluence()

	var totalWeight float64
	for i, v := range votes {
		if v != nil {
			totalWeight += timeframes[i].Weight
		}
	}
	if totalWeight == 0 {
		return result
	}

	familyScores := make(map[domain.IndicatorFamily]float64, len(domain.IndicatorFamilies))
	for _, family := range domain.IndicatorFamilies {
		fc := domain.FamilyConfluence{Votes: map[string]domain.TimeframeVote{}}
		var sum float64
		for i, v := range votes {
			if v == nil {
				continue
			}
			tf := timeframes[i]
			sum += tf.Weight * float64(v[family])
			fc.Votes[tf.Interval] = domain.TimeframeVote{
				Signal: domain.SignalFromSign(float64(v[family])),
				Weight: tf.Weight,
			}
		}
		fc.Score = sum / totalWeight
		fc.Signal = threshold(fc.Score)
		result.Families[family] = fc
		familyScores[family] = fc.Score
	}

	for i, v := range votes {
		if v == nil {
			continue
		}
		tfScores := make(map[domain.IndicatorFamily]float64, len(v))
		for family, vote := range v {
			tfScores[family] = float64(vote)
		}
		result.Votes[timeframes[i].Interval] = domain.TimeframeVote{
			Signal: threshold(weightedFamilies(tfScores)),
			Weight: timeframes[i].Weight,
		}
	}

	score := weightedFamilies(familyScores)
	result.Score = score
	result.Signal = threshold(score)
	result.Strength = math.Abs(score)
	result.Strong = math.Abs(score) >= strongThreshold
	result.Confidence = clamp(50+math.Abs(score)*50, 25, 95)

	return result
}

func weightedFamilies(scores map[domain.IndicatorFamily]float64) float64 {
	var sum, weight float64
	for _, family := range domain.IndicatorFamilies {
		w := domain.FamilyWeight(family)
		sum += w * scores[family]
		weight += w
	}
	return sum / weight
}

func threshold(score float64) domain.Signal {
	switch {
	case score > signalThreshold:
		return domain.SignalBuy
	case score < -signalThreshold:
		return domain.SignalSell
	default:
		return domain.SignalNeutral
	}
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
