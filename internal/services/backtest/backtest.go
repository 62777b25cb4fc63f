// Package backtest replays recorded candles through the decision engine and
// scores each actionable signal against the candles that followed it.
package backtest

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/sigengine/internal/domain"
	"github.com/vadiminshakov/sigengine/internal/services/market/collector"
	"go.uber.org/zap"
)

// Generator produces a signal for the replay cursor.
type Generator interface {
	Generate(ctx context.Context, symbol, interval string, lookback int, weights *domain.WeightConfiguration) (domain.TradingSignal, error)
}

// Result describes how an actionable signal ended.
type Result string

const (
	ResultTakeProfit Result = "TAKE_PROFIT"
	ResultStopLoss   Result = "STOP_LOSS"
	ResultOpen       Result = "OPEN"
)

// Config configures one backtest run.
type Config struct {
	Lookback int
	// Warmup is the number of candles visible before the first decision.
	Warmup int
	// Step is the number of candles between decisions.
	Step int
	// Horizon is how many candles a signal may take to reach its stop or target.
	Horizon int
	Weights *domain.WeightConfiguration
}

// DefaultConfig 200-candle lookback, one decision per candle, 48-candle horizon.
func DefaultConfig() Config {
	return Config{Lookback: 200, Warmup: 200, Step: 1, Horizon: 48}
}

// Outcome is the result of one actionable signal.
type Outcome struct {
	Signal    domain.TradingSignal `json:"signal"`
	Result    Result               `json:"result"`
	ExitPrice decimal.Decimal      `json:"exit_price"`
	ReturnPct float64              `json:"return_pct"`
	Bars      int                  `json:"bars"`
}

// Report summarizes a run.
type Report struct {
	Symbol       string    `json:"symbol"`
	Interval     string    `json:"interval"`
	Decisions    int       `json:"decisions"`
	Failures     int       `json:"failures"`
	Buys         int       `json:"buys"`
	Sells        int       `json:"sells"`
	Holds        int       `json:"holds"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	Open         int       `json:"open"`
	WinRate      float64   `json:"win_rate"`
	AvgReturnPct float64   `json:"avg_return_pct"`
	Outcomes     []Outcome `json:"outcomes,omitempty"`
}

// Run walks the replay cursor from the warmup candle to the end, asking
// generator for a decision at every step. generator must read candles from
// replay so that it never sees beyond the cursor.
func Run(ctx context.Context, replay *collector.ReplaySource, generator Generator, cfg Config, logger *zap.Logger) (Report, error) {
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultConfig().Lookback
	}
	if cfg.Step <= 0 {
		cfg.Step = 1
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = DefaultConfig().Horizon
	}
	if cfg.Warmup <= 0 {
		cfg.Warmup = 1
	}
	if cfg.Warmup > replay.Len() {
		return Report{}, errors.Wrapf(domain.ErrInsufficientData, "warmup %d exceeds history of %d candles", cfg.Warmup, replay.Len())
	}

	report := Report{Symbol: replay.Symbol(), Interval: replay.Interval()}
	logger = logger.With(zap.String("symbol", report.Symbol), zap.String("interval", report.Interval))

	for i := cfg.Warmup - 1; i < replay.Len(); i += cfg.Step {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := replay.Seek(i); err != nil {
			return report, err
		}

		sig, err := generator.Generate(ctx, report.Symbol, report.Interval, cfg.Lookback, cfg.Weights)
		if err != nil {
			report.Failures++
			logger.Debug("decision failed", zap.Int("index", i), zap.Error(err))
			continue
		}
		report.Decisions++

		switch sig.Direction {
		case domain.DirectionBuy:
			report.Buys++
		case domain.DirectionSell:
			report.Sells++
		default:
			report.Holds++
			continue
		}

		outcome := Evaluate(sig, replay.Ahead(cfg.Horizon))
		switch outcome.Result {
		case ResultTakeProfit:
			report.Wins++
		case ResultStopLoss:
			report.Losses++
		default:
			report.Open++
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	report.summarize()
	logger.Info("backtest finished",
		zap.Int("decisions", report.Decisions),
		zap.Int("wins", report.Wins),
		zap.Int("losses", report.Losses),
		zap.Float64("win_rate", report.WinRate),
		zap.Float64("avg_return_pct", report.AvgReturnPct))

	return report, nil
}

// Evaluate follows an actionable signal through the candles after its entry.
// When a candle touches both levels the stop is assumed to fill first.
// A signal that reaches neither level is closed at the last candle.
func Evaluate(sig domain.TradingSignal, ahead []domain.Candle) Outcome {
	out := Outcome{Signal: sig, Result: ResultOpen, ExitPrice: sig.EntryPrice}
	long := sig.Direction == domain.DirectionBuy

	for i, c := range ahead {
		out.Bars = i + 1
		stopped := (long && c.Low.LessThanOrEqual(sig.StopLoss)) || (!long && c.High.GreaterThanOrEqual(sig.StopLoss))
		if stopped {
			out.Result, out.ExitPrice = ResultStopLoss, sig.StopLoss
			break
		}
		target := (long && c.High.GreaterThanOrEqual(sig.TakeProfit)) || (!long && c.Low.LessThanOrEqual(sig.TakeProfit))
		if target {
			out.Result, out.ExitPrice = ResultTakeProfit, sig.TakeProfit
			break
		}
		out.ExitPrice = c.Close
	}

	if sig.EntryPrice.IsPositive() {
		change := out.ExitPrice.Sub(sig.EntryPrice).Div(sig.EntryPrice).Mul(decimal.NewFromInt(100))
		if !long {
			change = change.Neg()
		}
		out.ReturnPct = change.Round(4).InexactFloat64()
	}
	return out
}

func (r *Report) summarize() {
	if closed := r.Wins + r.Losses; closed > 0 {
		r.WinRate = float64(r.Wins) / float64(closed) * 100
	}
	if len(r.Outcomes) == 0 {
		return
	}
	var sum float64
	for _, o := range r.Outcomes {
		sum += o.ReturnPct
	}
	r.AvgReturnPct = sum / float64(len(r.Outcomes))
}
