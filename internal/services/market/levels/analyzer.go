package levels

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/sigengine/internal/domain"
	"github.com/vadiminshakov/sigengine/internal/services/market/collector"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Analyzer runs support/resistance analysis over a timeframe table.
type Analyzer struct {
	source     collector.CandleSource
	timeframes []domain.TimeframeSpec
	timeout    time.Duration
	logger     *zap.Logger
}

// NewAnalyzer creates an analyzer. Empty timeframes fall back to
// domain.DefaultLevelTimeframes; timeout bounds every fetch.
func NewAnalyzer(source collector.CandleSource, timeframes []domain.TimeframeSpec, timeout time.Duration, logger *zap.Logger) *Analyzer {
	if len(timeframes) == 0 {
		timeframes = domain.DefaultLevelTimeframes()
	}
	return &Analyzer{
		source:     source,
		timeframes: timeframes,
		timeout:    timeout,
		logger:     logger.With(zap.String("component", "support_resistance")),
	}
}

// Analyze fetches every timeframe concurrently and classifies price against
// the consolidated levels. A timeframe that fails or has fewer than
// MinCandles candles turns the whole result into insufficient_data.
func (a *Analyzer) Analyze(ctx context.Context, symbol string, price decimal.Decimal) domain.LevelAnalysis {
	if !price.IsPositive() {
		return domain.InsufficientLevelAnalysis(price)
	}

	series := make([][]domain.Candle, len(a.timeframes))
	g, gctx := errgroup.WithContext(ctx)
	for i, tf := range a.timeframes {
		g.Go(func() error {
			fctx, cancel := withTimeout(gctx, a.timeout)
			defer cancel()

			candles, err := a.source.Fetch(fctx, symbol, tf.Interval, tf.Lookback)
			if err != nil {
				return err
			}
			if len(candles) < MinCandles {
				return errors.Wrapf(domain.ErrInsufficientData, "timeframe %s: %d candles", tf.Interval, len(candles))
			}
			series[i] = candles
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.logger.Warn("support/resistance degraded to insufficient_data",
			zap.String("symbol", symbol),
			zap.Error(err))
		return domain.InsufficientLevelAnalysis(price)
	}

	var found []domain.SupportResistanceLevel
	for i, tf := range a.timeframes {
		found = append(found, FindLevels(series[i], tf)...)
	}

	return Classify(Consolidate(found, price), price)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
