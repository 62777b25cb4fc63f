package scheduler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/sigengine/internal/domain"
	"github.com/vadiminshakov/sigengine/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Generator produces a trading signal from freshly fetched candles.
type Generator interface {
	Generate(ctx context.Context, symbol, interval string, lookback int, weights *domain.WeightConfiguration) (domain.TradingSignal, error)
}

// Task describes one symbol/interval pair evaluated on every tick.
type Task struct {
	Symbol   string
	Interval string
	Lookback int
}

// Runner evaluates all tasks on every tick, one goroutine per task.
type Runner struct {
	generator     Generator
	tasks         []Task
	state         *State
	sink          storage.SignalSink
	weights       storage.WeightStore
	userID        string
	minConfidence float64
	pollInterval  time.Duration
	logger        *zap.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSink persists every produced signal.
func WithSink(sink storage.SignalSink) RunnerOption {
	return func(r *Runner) { r.sink = sink }
}

// WithWeightStore resolves the weights of userID before every tick.
func WithWeightStore(store storage.WeightStore, userID string) RunnerOption {
	return func(r *Runner) {
		r.weights = store
		r.userID = userID
	}
}

// WithMinConfidence skips persisting signals less confident than min. They
// are still recorded in the state.
func WithMinConfidence(min float64) RunnerOption {
	return func(r *Runner) { r.minConfidence = min }
}

// WithPollInterval sets the tick period. Default is one minute.
func WithPollInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

// NewRunner creates a runner. A nil state gets a fresh one of default capacity.
func NewRunner(generator Generator, tasks []Task, state *State, logger *zap.Logger, opts ...RunnerOption) *Runner {
	if state == nil {
		state = NewState(DefaultStateCapacity)
	}
	r := &Runner{
		generator:    generator,
		tasks:        tasks,
		state:        state,
		pollInterval: time.Minute,
		logger:       logger.With(zap.String("component", "scheduler")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the runner's signal state.
func (r *Runner) State() *State {
	return r.state
}

// Run ticks immediately and then every poll interval until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	if len(r.tasks) == 0 {
		return errors.New("no tasks to schedule")
	}

	r.logger.Info("Starting signal loop",
		zap.Int("tasks", len(r.tasks)),
		zap.Duration("poll_interval", r.pollInterval))

	r.Tick(ctx)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Context done, stopping signal loop")
			return ctx.Err()
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick evaluates every task once and returns the produced signals in task
// order. A failing task is logged and skipped; it never cancels the others.
func (r *Runner) Tick(ctx context.Context) []domain.TradingSignal {
	weights := storage.ResolveWeights(ctx, r.weights, r.userID, r.logger)

	results := make([]*domain.TradingSignal, len(r.tasks))
	var g errgroup.Group
	for i, task := range r.tasks {
		g.Go(func() error {
			sig, err := r.evaluate(ctx, task, weights)
			if err != nil {
				r.logger.Error("signal generation failed",
					zap.String("symbol", task.Symbol),
					zap.String("interval", task.Interval),
					zap.Error(err))
				return nil
			}
			results[i] = &sig
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.TradingSignal, 0, len(results))
	for _, sig := range results {
		if sig != nil {
			out = append(out, *sig)
		}
	}
	return out
}

func (r *Runner) evaluate(ctx context.Context, task Task, weights *domain.WeightConfiguration) (domain.TradingSignal, error) {
	sig, err := r.generator.Generate(ctx, task.Symbol, task.Interval, task.Lookback, weights)
	if err != nil {
		return domain.TradingSignal{}, err
	}

	logger := r.logger.With(zap.String("symbol", sig.Symbol), zap.String("interval", sig.Interval))
	if prev, ok := r.state.Record(sig); ok && prev.Direction != sig.Direction {
		logger.Info("signal direction changed",
			zap.String("from", string(prev.Direction)),
			zap.String("to", string(sig.Direction)),
			zap.Float64("confidence", sig.Confidence))
	} else {
		logger.Debug("signal produced",
			zap.String("direction", string(sig.Direction)),
			zap.Float64("confidence", sig.Confidence))
	}

	if r.sink != nil && sig.Confidence >= r.minConfidence {
		if err := r.sink.Save(ctx, sig); err != nil {
			logger.Warn("failed to persist signal", zap.String("id", sig.ID), zap.Error(err))
		}
	}
	return sig, nil
}
