// Package engine combines indicator, pattern, support/resistance, confluence
// and AI sub-signals into a single weighted trading decision.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/sigengine/internal/domain"
	"github.com/vadiminshakov/sigengine/internal/metrics"
	"github.com/vadiminshakov/sigengine/internal/services/ai"
	"github.com/vadiminshakov/sigengine/internal/services/market/collector"
	"github.com/vadiminshakov/sigengine/internal/services/market/indicators"
	"github.com/vadiminshakov/sigengine/internal/services/market/patterns"
	"github.com/vadiminshakov/sigengine/internal/services/pricer"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// SubAnalysisTimeout is the default bound of every sub-analysis.
	SubAnalysisTimeout = 10 * time.Second
	// RiskATRInterval is the candle interval ATR based exits are sized on.
	RiskATRInterval = "1h"
	// RiskATRLookback is the number of RiskATRInterval candles fetched for it.
	RiskATRLookback = 100
)

// LevelAnalyzer analyzes support and resistance around a price.
type LevelAnalyzer interface {
	Analyze(ctx context.Context, symbol string, price decimal.Decimal) domain.LevelAnalysis
}

// ConfluenceAnalyzer measures the multi-timeframe agreement of indicator families.
type ConfluenceAnalyzer interface {
	Analyze(ctx context.Context, symbol string, params domain.IndicatorParameters) domain.ConfluenceSignal
}

// Engine is stateless between decisions and safe for concurrent use.
type Engine struct {
	source     collector.CandleSource
	prices     pricer.PriceSource
	levels     LevelAnalyzer
	confluence ConfluenceAnalyzer
	predictor  ai.Predictor
	timeout    time.Duration
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithPriceSource sets the real-time price used as the current price of the
// support/resistance analysis.
func WithPriceSource(p pricer.PriceSource) Option {
	return func(e *Engine) { e.prices = p }
}

// WithTimeout bounds each sub-analysis.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithMetrics records decisions and degradations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock replaces time.Now for signal timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces the uuid generator for signal IDs.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// New creates an engine. source serves the primary series for Generate.
func New(source collector.CandleSource, levels LevelAnalyzer, confluence ConfluenceAnalyzer, predictor ai.Predictor, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		source:     source,
		levels:     levels,
		confluence: confluence,
		predictor:  predictor,
		timeout:    SubAnalysisTimeout,
		logger:     logger.With(zap.String("component", "engine")),
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Generate fetches the primary series and decides on it.
func (e *Engine) Generate(ctx context.Context, symbol, interval string, lookback int, weights *domain.WeightConfiguration) (domain.TradingSignal, error) {
	candles, err := e.source.Fetch(ctx, symbol, interval, lookback)
	if err != nil {
		e.metrics.ObserveDecisionFailure(symbol)
		return domain.TradingSignal{}, errors.Wrapf(domain.ErrPrimaryDataUnavailable, "%s %s: %v", symbol, interval, err)
	}
	return e.Decide(ctx, symbol, interval, candles, weights)
}

// Decide produces a trading signal from the primary candles. Only an empty
// primary series is an error; every failing sub-analysis contributes its
// neutral value instead.
func (e *Engine) Decide(ctx context.Context, symbol, interval string, candles []domain.Candle, weights *domain.WeightConfiguration) (domain.TradingSignal, error) {
	started := time.Now()

	if len(candles) == 0 {
		e.metrics.ObserveDecisionFailure(symbol)
		return domain.TradingSignal{}, errors.Wrapf(domain.ErrPrimaryDataUnavailable, "%s %s: no candles", symbol, interval)
	}

	cfg := e.snapshotConfig(symbol, weights)
	candles = domain.SortCandles(candles)
	last := candles[len(candles)-1]
	entry := last.Close
	if !entry.IsPositive() {
		e.metrics.ObserveDecisionFailure(symbol)
		return domain.TradingSignal{}, errors.Wrapf(domain.ErrPrimaryDataUnavailable, "%s %s: last close %s", symbol, interval, entry)
	}

	in := inputs{
		snapshot: indicators.NewCalculator(cfg.Indicators).Compute(candles),
		pattern:  patterns.DetectLatest(candles),
	}
	in.atr = in.snapshot.ATR

	var g errgroup.Group
	g.Go(func() error {
		price := e.currentPrice(ctx, symbol, entry)
		sctx, cancel := e.bound(ctx)
		defer cancel()
		in.levels = e.levels.Analyze(sctx, symbol, price)
		return nil
	})
	g.Go(func() error {
		cctx, cancel := e.bound(ctx)
		defer cancel()
		in.confluence = e.confluence.Analyze(cctx, symbol, cfg.Indicators)
		return nil
	})
	g.Go(func() error {
		actx := ai.WithIndicatorParameters(ctx, cfg.Indicators)
		in.prediction, in.aiErr = ai.Safe(e.predictor, e.timeout, e.metrics, e.logger).Predict(actx, symbol, interval)
		return nil
	})
	if cfg.Risk.UseATRBasedSLTP && interval != RiskATRInterval {
		g.Go(func() error {
			in.atr = e.riskATR(ctx, symbol, in.snapshot.ATR)
			return nil
		})
	}
	_ = g.Wait()

	if in.levels.Status != domain.LevelStatusOK {
		e.metrics.ObserveDegraded("support_resistance")
	}
	if len(in.confluence.Votes) == 0 {
		e.metrics.ObserveDegraded("confluence")
	}

	factors := score(in, cfg)
	combined := combine(factors.Total(), in.snapshot.ProfessionalStrength)
	direction := directionOf(combined)
	stopLoss, takeProfit := exitLevels(direction, entry, in.atr, cfg.Risk)

	signal := domain.TradingSignal{
		ID:                   e.newID(),
		Symbol:               symbol,
		Interval:             interval,
		Direction:            direction,
		EntryPrice:           entry,
		StopLoss:             stopLoss,
		TakeProfit:           takeProfit,
		Confidence:           confidence(combined),
		TotalScore:           factors.Total(),
		CombinedScore:        combined,
		ProfessionalStrength: in.snapshot.ProfessionalStrength,
		DecisionFactors:      factors.Build(),
		Timestamp:            e.now().UTC(),
	}

	e.metrics.ObserveSignal(signal, time.Since(started))
	e.logger.Info("signal generated",
		zap.String("id", signal.ID),
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.String("direction", string(signal.Direction)),
		zap.Float64("confidence", signal.Confidence),
		zap.Float64("total_score", signal.TotalScore),
		zap.Int("combined_score", signal.CombinedScore),
		zap.String("entry", signal.EntryPrice.String()))

	return signal, nil
}

// snapshotConfig copies the configuration so a concurrent update cannot
// partially apply to a running decision.
func (e *Engine) snapshotConfig(symbol string, weights *domain.WeightConfiguration) domain.WeightConfiguration {
	if weights == nil {
		e.logger.Warn("using default weights",
			zap.String("symbol", symbol),
			zap.Error(domain.ErrConfigurationMissing))
		return domain.DefaultWeights()
	}

	cfg := *weights
	if err := cfg.Validate(); err != nil {
		e.logger.Warn("invalid weights, using defaults",
			zap.String("symbol", symbol),
			zap.Error(err))
		return domain.DefaultWeights()
	}
	return cfg
}

func (e *Engine) currentPrice(ctx context.Context, symbol string, fallback decimal.Decimal) decimal.Decimal {
	if e.prices == nil {
		return fallback
	}

	pctx, cancel := e.bound(ctx)
	defer cancel()

	price, err := e.prices.CurrentPrice(pctx, symbol)
	if err != nil || !price.IsPositive() {
		e.metrics.ObserveDegraded("price")
		e.logger.Warn("current price unavailable, using last close",
			zap.String("symbol", symbol),
			zap.String("price", price.String()),
			zap.Error(err))
		return fallback
	}
	return price
}

// riskATR returns the ATR of the RiskATRInterval series, or fallback when
// that series cannot be fetched.
func (e *Engine) riskATR(ctx context.Context, symbol string, fallback float64) float64 {
	if e.source == nil {
		return fallback
	}

	actx, cancel := e.bound(ctx)
	defer cancel()

	candles, err := e.source.Fetch(actx, symbol, RiskATRInterval, RiskATRLookback)
	atr := indicators.LastATR(candles)
	if err != nil || atr <= 0 {
		e.metrics.ObserveDegraded("atr")
		e.logger.Warn("risk ATR unavailable, using primary interval ATR",
			zap.String("symbol", symbol),
			zap.String("interval", RiskATRInterval),
			zap.Error(err))
		return fallback
	}
	return atr
}

func (e *Engine) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}
