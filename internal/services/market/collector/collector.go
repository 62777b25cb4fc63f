// Package collector fetches OHLCV candle series from exchanges, replay files
// and caches behind a single CandleSource interface.
package collector

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/sigengine/internal/domain"
	"github.com/vadiminshakov/sigengine/internal/metrics"
	"github.com/vadiminshakov/sigengine/pkg/retrier"
	"go.uber.org/zap"
)

// CandleSource returns up to lookback of the most recent candles of symbol on
// interval, ordered by open time ascending.
type CandleSource interface {
	Fetch(ctx context.Context, symbol, interval string, lookback int) ([]domain.Candle, error)
}

// CandleSourceFunc adapts a function to CandleSource.
type CandleSourceFunc func(ctx context.Context, symbol, interval string, lookback int) ([]domain.Candle, error)

// Fetch calls f.
func (f CandleSourceFunc) Fetch(ctx context.Context, symbol, interval string, lookback int) ([]domain.Candle, error) {
	return f(ctx, symbol, interval, lookback)
}

const defaultFetchTimeout = 30 * time.Second

// LiveSource decorates an exchange source with timeouts, retries and
// metrics. Every failure it returns wraps domain.ErrDataUnavailable.
type LiveSource struct {
	name    string
	source  CandleSource
	retrier *retrier.Retrier
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewLiveSource wraps source. name labels logs and metrics (e.g. "binance").
func NewLiveSource(name string, source CandleSource, r *retrier.Retrier, m *metrics.Metrics, logger *zap.Logger) *LiveSource {
	if r == nil {
		r = retrier.New(retrier.WithRetryIf(isRetryable))
	}
	return &LiveSource{
		name:    name,
		source:  source,
		retrier: r,
		timeout: defaultFetchTimeout,
		metrics: m,
		logger:  logger.With(zap.String("source", name)),
	}
}

// Fetch implements CandleSource.
func (s *LiveSource) Fetch(ctx context.Context, symbol, interval string, lookback int) ([]domain.Candle, error) {
	if lookback <= 0 {
		return nil, errors.Wrapf(domain.ErrDataUnavailable, "lookback must be > 0, got %d", lookback)
	}
	if _, err := domain.ParseInterval(interval); err != nil {
		return nil, errors.Wrap(domain.ErrDataUnavailable, err.Error())
	}

	started := time.Now()
	candles, err := retrier.DoWithData(s.retrier, ctx, func(ctx context.Context) ([]domain.Candle, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.source.Fetch(ctx, symbol, interval, lookback)
	})
	if err == nil && len(candles) == 0 {
		err = errors.Errorf("no klines returned for %s %s", symbol, interval)
	}
	s.metrics.ObserveFetch(s.name, interval, time.Since(started), err)

	if err != nil {
		s.logger.Warn("candle fetch failed",
			zap.String("symbol", symbol),
			zap.String("interval", interval),
			zap.Error(err))
		return nil, errors.Wrapf(domain.ErrDataUnavailable, "%s %s %s: %v", s.name, symbol, interval, err)
	}

	candles = domain.SortCandles(candles)
	if len(candles) > lookback {
		candles = candles[len(candles)-lookback:]
	}
	return candles, nil
}

func isRetryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, errUnsupportedInterval)
}

var errUnsupportedInterval = errors.New("unsupported interval")
