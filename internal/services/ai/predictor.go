// Package ai produces the AI/ML sub-signal consumed by the decision engine.
// Predictors are black boxes: the engine only sees direction, confidence and
// a risk score.
package ai

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/sigengine/internal/domain"
	"github.com/vadiminshakov/sigengine/internal/metrics"
	"go.uber.org/zap"
)

// Predictor returns a prediction for the given symbol and interval.
type Predictor interface {
	Predict(ctx context.Context, symbol, interval string) (domain.AIPrediction, error)
}

// PredictorFunc adapts a function to Predictor.
type PredictorFunc func(ctx context.Context, symbol, interval string) (domain.AIPrediction, error)

func (f PredictorFunc) Predict(ctx context.Context, symbol, interval string) (domain.AIPrediction, error) {
	return f(ctx, symbol, interval)
}

type paramsKey struct{}

// WithIndicatorParameters attaches the indicator parameters of the running
// decision to ctx. Predictors that compute indicators use them instead of
// their own defaults.
func WithIndicatorParameters(ctx context.Context, params domain.IndicatorParameters) context.Context {
	return context.WithValue(ctx, paramsKey{}, params)
}

// IndicatorParametersFrom returns the parameters attached by
// WithIndicatorParameters.
func IndicatorParametersFrom(ctx context.Context) (domain.IndicatorParameters, bool) {
	params, ok := ctx.Value(paramsKey{}).(domain.IndicatorParameters)
	return params, ok
}

type fallback struct {
	primary   Predictor
	secondary Predictor
	logger    *zap.Logger
}

// Fallback asks primary first and secondary when primary fails.
func Fallback(primary, secondary Predictor, logger *zap.Logger) Predictor {
	return &fallback{primary: primary, secondary: secondary, logger: logger}
}

func (f *fallback) Predict(ctx context.Context, symbol, interval string) (domain.AIPrediction, error) {
	prediction, err := f.primary.Predict(ctx, symbol, interval)
	if err == nil {
		return prediction, nil
	}
	f.logger.Warn("primary predictor failed, using fallback",
		zap.String("symbol", symbol),
		zap.Error(err))

	return f.secondary.Predict(ctx, symbol, interval)
}

// Guard bounds a predictor in time and sanitizes its output.
type Guard struct {
	predictor Predictor
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// Safe wraps p so that it never blocks longer than timeout. A nil p yields a
// guard that always reports failure.
func Safe(p Predictor, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *Guard {
	return &Guard{predictor: p, timeout: timeout, metrics: m, logger: logger}
}

// Predict always returns a usable prediction. On failure the prediction is
// domain.NeutralPrediction and the error wraps domain.ErrAdapterFailure.
func (g *Guard) Predict(ctx context.Context, symbol, interval string) (domain.AIPrediction, error) {
	prediction, err := g.predict(ctx, symbol, interval)
	if err != nil {
		g.metrics.ObserveDegraded("ai")
		g.logger.Warn("ai prediction unavailable",
			zap.String("symbol", symbol),
			zap.String("interval", interval),
			zap.Error(err))
		return domain.NeutralPrediction(), errors.Wrap(domain.ErrAdapterFailure, err.Error())
	}
	return prediction, nil
}

func (g *Guard) predict(ctx context.Context, symbol, interval string) (domain.AIPrediction, error) {
	if g.predictor == nil {
		return domain.AIPrediction{}, errors.New("no predictor configured")
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	type result struct {
		prediction domain.AIPrediction
		err        error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: errors.Errorf("predictor panicked: %v", r)}
			}
		}()
		p, err := g.predictor.Predict(ctx, symbol, interval)
		done <- result{prediction: p, err: err}
	}()

	select {
	case <-ctx.Done():
		return domain.AIPrediction{}, errors.Wrap(ctx.Err(), "predictor timed out")
	case r := <-done:
		if r.err != nil {
			return domain.AIPrediction{}, r.err
		}
		return sanitize(r.prediction)
	}
}

func sanitize(p domain.AIPrediction) (domain.AIPrediction, error) {
	if _, ok := domain.ParseDirection(string(p.Signal)); !ok {
		return domain.AIPrediction{}, errors.Errorf("invalid signal %q", p.Signal)
	}
	if math.IsNaN(p.Confidence) || math.IsNaN(p.RiskScore) {
		return domain.AIPrediction{}, errors.New("prediction contains NaN")
	}
	if p.Signal == "NEUTRAL" {
		p.Signal = domain.DirectionHold
	}
	p.Confidence = clamp(p.Confidence, 0, 100)
	p.RiskScore = clamp(p.RiskScore, 0, 100)
	return p, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
