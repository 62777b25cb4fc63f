package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/sigengine/internal/domain"
	"go.uber.org/zap"
)

type generatorFunc func(ctx context.Context, symbol, interval string, lookback int, weights *domain.WeightConfiguration) (domain.TradingSignal, error)

func (f generatorFunc) Generate(ctx context.Context, symbol, interval string, lookback int, weights *domain.WeightConfiguration) (domain.TradingSignal, error) {
	return f(ctx, symbol, interval, lookback, weights)
}

type memorySink struct {
	mu    sync.Mutex
	saved []domain.TradingSignal
}

func (m *memorySink) Save(_ context.Context, s domain.TradingSignal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, s)
	return nil
}

func (m *memorySink) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

type weightStoreFunc func(ctx context.Context, userID string) (domain.WeightConfiguration, error)

func (f weightStoreFunc) GetWeights(ctx context.Context, userID string) (domain.WeightConfiguration, error) {
	return f(ctx, userID)
}

func TestState_EvictsOldestInserted(t *testing.T) {
	state := NewState(2)

	_, replaced := state.Record(domain.TradingSignal{Symbol: "BTCUSDT", Interval: "1h", Direction: domain.DirectionBuy})
	assert.False(t, replaced)
	state.Record(domain.TradingSignal{Symbol: "ETHUSDT", Interval: "1h"})

	// updating an existing pair keeps its insertion slot
	prev, replaced := state.Record(domain.TradingSignal{Symbol: "BTCUSDT", Interval: "1h", Direction: domain.DirectionSell})
	assert.True(t, replaced)
	assert.Equal(t, domain.DirectionBuy, prev.Direction)
	assert.Equal(t, 2, state.Len())

	state.Record(domain.TradingSignal{Symbol: "SOLUSDT", Interval: "1h"})
	assert.Equal(t, 2, state.Len())

	_, ok := state.Last("BTCUSDT", "1h")
	assert.False(t, ok)
	_, ok = state.Last("ETHUSDT", "1h")
	assert.True(t, ok)

	signals := state.Signals()
	require.Len(t, signals, 2)
	assert.Equal(t, "ETHUSDT", signals[0].Symbol)
	assert.Equal(t, "SOLUSDT", signals[1].Symbol)
}

func TestState_DefaultCapacity(t *testing.T) {
	state := NewState(0)
	for i := 0; i < DefaultStateCapacity+10; i++ {
		state.Record(domain.TradingSignal{Symbol: "S", Interval: time.Duration(i).String()})
	}
	assert.Equal(t, DefaultStateCapacity, state.Len())
}

func TestState_SeparatesIntervals(t *testing.T) {
	state := NewState(4)
	state.Record(domain.TradingSignal{Symbol: "BTCUSDT", Interval: "1h", Direction: domain.DirectionBuy})
	state.Record(domain.TradingSignal{Symbol: "BTCUSDT", Interval: "4h", Direction: domain.DirectionSell})

	h1, ok := state.Last("BTCUSDT", "1h")
	require.True(t, ok)
	assert.Equal(t, domain.DirectionBuy, h1.Direction)
	h4, ok := state.Last("BTCUSDT", "4h")
	require.True(t, ok)
	assert.Equal(t, domain.DirectionSell, h4.Direction)
}

func TestRunner_TickSkipsFailedTasks(t *testing.T) {
	gen := generatorFunc(func(_ context.Context, symbol, interval string, lookback int, _ *domain.WeightConfiguration) (domain.TradingSignal, error) {
		if symbol == "BADUSDT" {
			return domain.TradingSignal{}, errors.Wrap(domain.ErrPrimaryDataUnavailable, "no candles")
		}
		return domain.TradingSignal{ID: symbol + interval, Symbol: symbol, Interval: interval, Direction: domain.DirectionHold}, nil
	})
	sink := &memorySink{}
	tasks := []Task{
		{Symbol: "BTCUSDT", Interval: "1h", Lookback: 200},
		{Symbol: "BADUSDT", Interval: "1h", Lookback: 200},
		{Symbol: "ETHUSDT", Interval: "4h", Lookback: 200},
	}

	runner := NewRunner(gen, tasks, nil, zap.NewNop(), WithSink(sink))
	signals := runner.Tick(context.Background())

	require.Len(t, signals, 2)
	assert.Equal(t, "BTCUSDT", signals[0].Symbol)
	assert.Equal(t, "ETHUSDT", signals[1].Symbol)
	assert.Equal(t, 2, sink.len())
	assert.Equal(t, 2, runner.State().Len())
}

func TestRunner_MinConfidenceFiltersSink(t *testing.T) {
	gen := generatorFunc(func(_ context.Context, symbol, interval string, _ int, _ *domain.WeightConfiguration) (domain.TradingSignal, error) {
		confidence := 40.0
		if symbol == "BTCUSDT" {
			confidence = 76
		}
		return domain.TradingSignal{Symbol: symbol, Interval: interval, Confidence: confidence}, nil
	})
	sink := &memorySink{}
	tasks := []Task{{Symbol: "BTCUSDT", Interval: "1h", Lookback: 200}, {Symbol: "ETHUSDT", Interval: "1h", Lookback: 200}}

	runner := NewRunner(gen, tasks, nil, zap.NewNop(), WithSink(sink), WithMinConfidence(60))
	assert.Len(t, runner.Tick(context.Background()), 2)

	require.Equal(t, 1, sink.len())
	assert.Equal(t, "BTCUSDT", sink.saved[0].Symbol)
	assert.Equal(t, 2, runner.State().Len())
}

func TestRunner_PassesResolvedWeights(t *testing.T) {
	stored := domain.DefaultWeights()
	stored.RSIWeight = 3

	var seen []*domain.WeightConfiguration
	var mu sync.Mutex
	gen := generatorFunc(func(_ context.Context, symbol, interval string, _ int, w *domain.WeightConfiguration) (domain.TradingSignal, error) {
		mu.Lock()
		seen = append(seen, w)
		mu.Unlock()
		return domain.TradingSignal{Symbol: symbol, Interval: interval}, nil
	})

	store := weightStoreFunc(func(_ context.Context, userID string) (domain.WeightConfiguration, error) {
		assert.Equal(t, "alice", userID)
		return stored, nil
	})

	runner := NewRunner(gen, []Task{{Symbol: "BTCUSDT", Interval: "1h", Lookback: 100}}, NewState(8), zap.NewNop(),
		WithWeightStore(store, "alice"))
	runner.Tick(context.Background())

	require.Len(t, seen, 1)
	require.NotNil(t, seen[0])
	assert.Equal(t, 3.0, seen[0].RSIWeight)

	missing := weightStoreFunc(func(context.Context, string) (domain.WeightConfiguration, error) {
		return domain.DefaultWeights(), domain.ErrConfigurationMissing
	})
	seen = nil
	NewRunner(gen, []Task{{Symbol: "BTCUSDT", Interval: "1h", Lookback: 100}}, nil, zap.NewNop(),
		WithWeightStore(missing, "bob")).Tick(context.Background())
	require.Len(t, seen, 1)
	assert.Nil(t, seen[0])
}

func TestRunner_RunStopsOnCancel(t *testing.T) {
	sink := &memorySink{}
	gen := generatorFunc(func(_ context.Context, symbol, interval string, _ int, _ *domain.WeightConfiguration) (domain.TradingSignal, error) {
		return domain.TradingSignal{Symbol: symbol, Interval: interval}, nil
	})
	runner := NewRunner(gen, []Task{{Symbol: "BTCUSDT", Interval: "1h", Lookback: 50}}, nil, zap.NewNop(),
		WithSink(sink), WithPollInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	require.Eventually(t, func() bool { return sink.len() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunner_RunWithoutTasks(t *testing.T) {
	runner := NewRunner(generatorFunc(nil), nil, nil, zap.NewNop())
	assert.Error(t, runner.Run(context.Background()))
}
