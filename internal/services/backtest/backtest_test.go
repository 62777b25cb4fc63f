package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/sigengine/internal/domain"
	"github.com/vadiminshakov/sigengine/internal/services/ai"
	"github.com/vadiminshakov/sigengine/internal/services/engine"
	"github.com/vadiminshakov/sigengine/internal/services/market/collector"
	"github.com/vadiminshakov/sigengine/internal/services/market/confluence"
	"github.com/vadiminshakov/sigengine/internal/services/market/indicators"
	"github.com/vadiminshakov/sigengine/internal/services/market/levels"
	"github.com/vadiminshakov/sigengine/internal/testutil"
	"go.uber.org/zap"
)

type generatorFunc func(ctx context.Context, symbol, interval string, lookback int, weights *domain.WeightConfiguration) (domain.TradingSignal, error)

func (f generatorFunc) Generate(ctx context.Context, symbol, interval string, lookback int, weights *domain.WeightConfiguration) (domain.TradingSignal, error) {
	return f(ctx, symbol, interval, lookback, weights)
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestEvaluate(t *testing.T) {
	long := domain.TradingSignal{Direction: domain.DirectionBuy, EntryPrice: d("100"), StopLoss: d("98"), TakeProfit: d("104")}
	short := domain.TradingSignal{Direction: domain.DirectionSell, EntryPrice: d("100"), StopLoss: d("102"), TakeProfit: d("96")}

	tests := []struct {
		name      string
		signal    domain.TradingSignal
		ahead     []domain.Candle
		result    Result
		bars      int
		returnPct float64
	}{
		{
			name:      "long hits target",
			signal:    long,
			ahead:     []domain.Candle{testutil.OHLC(100, 101, 99, 100.5), testutil.OHLC(100.5, 104.5, 100, 104)},
			result:    ResultTakeProfit,
			bars:      2,
			returnPct: 4,
		},
		{
			name:      "long stopped",
			signal:    long,
			ahead:     []domain.Candle{testutil.OHLC(100, 100.5, 97.5, 98)},
			result:    ResultStopLoss,
			bars:      1,
			returnPct: -2,
		},
		{
			name:      "stop wins when both touched",
			signal:    long,
			ahead:     []domain.Candle{testutil.OHLC(100, 105, 97, 101)},
			result:    ResultStopLoss,
			bars:      1,
			returnPct: -2,
		},
		{
			name:      "short hits target",
			signal:    short,
			ahead:     []domain.Candle{testutil.OHLC(100, 100.5, 95.5, 96)},
			result:    ResultTakeProfit,
			bars:      1,
			returnPct: 4,
		},
		{
			name:      "short closes open at last candle",
			signal:    short,
			ahead:     []domain.Candle{testutil.OHLC(100, 101, 99, 99), testutil.OHLC(99, 100, 98, 99)},
			result:    ResultOpen,
			bars:      2,
			returnPct: 1,
		},
		{
			name:      "no candles ahead",
			signal:    long,
			result:    ResultOpen,
			returnPct: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Evaluate(tt.signal, tt.ahead)
			assert.Equal(t, tt.result, out.Result)
			assert.Equal(t, tt.bars, out.Bars)
			assert.InDelta(t, tt.returnPct, out.ReturnPct, 1e-9)
		})
	}
}

func TestRun_NeverSeesTheFuture(t *testing.T) {
	series := testutil.ZigzagUptrend(120)
	replay, err := collector.NewReplaySource("BTCUSDT", "1h", series)
	require.NoError(t, err)

	calls := 0
	gen := generatorFunc(func(ctx context.Context, symbol, interval string, lookback int, _ *domain.WeightConfiguration) (domain.TradingSignal, error) {
		candles, err := replay.Fetch(ctx, symbol, interval, lookback)
		if err != nil {
			return domain.TradingSignal{}, err
		}
		last := candles[len(candles)-1]
		require.Equal(t, replay.Current(), last)
		calls++

		entry := last.Close
		return domain.TradingSignal{
			Symbol:     symbol,
			Interval:   interval,
			Direction:  domain.DirectionBuy,
			EntryPrice: entry,
			StopLoss:   entry.Mul(d("0.9")),
			TakeProfit: entry.Mul(d("1.001")),
		}, nil
	})

	report, err := Run(context.Background(), replay, gen, Config{Lookback: 50, Warmup: 100, Step: 5, Horizon: 10}, zap.NewNop())
	require.NoError(t, err)

	// cursor positions 99, 104, 109, 114, 119
	assert.Equal(t, 5, calls)
	assert.Equal(t, 5, report.Decisions)
	assert.Equal(t, 5, report.Buys)
	assert.Len(t, report.Outcomes, 5)
	assert.Equal(t, "BTCUSDT", report.Symbol)
	assert.Equal(t, "1h", report.Interval)
	assert.Equal(t, report.Wins+report.Losses+report.Open, len(report.Outcomes))
}

func TestRun_CountsFailuresAndHolds(t *testing.T) {
	replay, err := collector.NewReplaySource("BTCUSDT", "1h", testutil.ZigzagUptrend(30))
	require.NoError(t, err)

	gen := generatorFunc(func(_ context.Context, symbol, interval string, _ int, _ *domain.WeightConfiguration) (domain.TradingSignal, error) {
		if replay.Index()%2 == 0 {
			return domain.TradingSignal{}, errors.Wrap(domain.ErrPrimaryDataUnavailable, "gap")
		}
		return domain.TradingSignal{Symbol: symbol, Interval: interval, Direction: domain.DirectionHold}, nil
	})

	report, err := Run(context.Background(), replay, gen, Config{Warmup: 21, Step: 1}, zap.NewNop())
	require.NoError(t, err)
	// cursor positions 20..29
	assert.Equal(t, 5, report.Failures)
	assert.Equal(t, 5, report.Holds)
	assert.Empty(t, report.Outcomes)
	assert.Zero(t, report.WinRate)
}

func TestRun_WarmupLongerThanHistory(t *testing.T) {
	replay, err := collector.NewReplaySource("BTCUSDT", "1h", testutil.ZigzagUptrend(10))
	require.NoError(t, err)

	_, err = Run(context.Background(), replay, generatorFunc(nil), Config{Warmup: 11}, zap.NewNop())
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestRun_StopsOnCancel(t *testing.T) {
	replay, err := collector.NewReplaySource("BTCUSDT", "1h", testutil.ZigzagUptrend(50))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	gen := generatorFunc(func(_ context.Context, symbol, interval string, _ int, _ *domain.WeightConfiguration) (domain.TradingSignal, error) {
		cancel()
		return domain.TradingSignal{Direction: domain.DirectionHold}, nil
	})

	report, err := Run(ctx, replay, gen, Config{Warmup: 10}, zap.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.Decisions)
}

func TestRun_WithEngine(t *testing.T) {
	series := testutil.ZigzagUptrend(230)
	replay, err := collector.NewReplaySource("BTCUSDT", "1h", series)
	require.NoError(t, err)

	calc := indicators.NewCalculator(domain.DefaultWeights().Indicators)
	eng := engine.New(
		replay,
		levels.NewAnalyzer(replay, nil, time.Second, zap.NewNop()),
		confluence.NewAnalyzer(replay, []domain.TimeframeSpec{{Interval: "1h", Lookback: 100, Weight: 1}}, time.Second, zap.NewNop()),
		ai.NewRuleEnsemble(replay, calc),
		zap.NewNop(),
		engine.WithPriceSource(replay),
	)

	report, err := Run(context.Background(), replay, eng, Config{Lookback: 200, Warmup: 200, Step: 10, Horizon: 24}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 4, report.Decisions)
	assert.Zero(t, report.Failures)
	assert.Equal(t, report.Decisions, report.Buys+report.Sells+report.Holds)
	for _, o := range report.Outcomes {
		assert.True(t, o.Signal.EntryPrice.IsPositive())
		assert.GreaterOrEqual(t, o.Signal.Confidence, 25.0)
		assert.LessOrEqual(t, o.Signal.Confidence, 95.0)
	}
}
