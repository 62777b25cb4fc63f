package collector

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/sigengine/internal/domain"
	"github.com/vadiminshakov/sigengine/internal/metrics"
	candles "github.com/vadiminshakov/sigengine/internal/testutil"
	"github.com/vadiminshakov/sigengine/pkg/retrier"
	"go.uber.org/zap"
)

func fastRetrier() *retrier.Retrier {
	return retrier.New(
		retrier.WithMaxRetries(2),
		retrier.WithInitialInterval(time.Millisecond),
		retrier.WithRetryIf(isRetryable),
	)
}

func TestLiveSource_RetriesThenSucceeds(t *testing.T) {
	series := candles.ZigzagUptrend(30)
	calls := 0
	flaky := CandleSourceFunc(func(ctx context.Context, symbol, interval string, lookback int) ([]domain.Candle, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("connection reset")
		}
		// exchange answer in descending order
		out := make([]domain.Candle, len(series))
		for i, c := range series {
			out[len(series)-1-i] = c
		}
		return out, nil
	})

	src := NewLiveSource("binance", flaky, fastRetrier(), nil, zap.NewNop())
	got, err := src.Fetch(context.Background(), "BTCUSDT", "1h", 20)

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, got, 20)
	assert.Equal(t, series[len(series)-1], got[len(got)-1])
	assert.True(t, got[0].OpenTime.Before(got[1].OpenTime))
}

func TestLiveSource_WrapsFailures(t *testing.T) {
	m := metrics.New(nil)
	failing := CandleSourceFunc(func(context.Context, string, string, int) ([]domain.Candle, error) {
		return nil, errors.New("503")
	})

	src := NewLiveSource("bybit", failing, fastRetrier(), m, zap.NewNop())
	_, err := src.Fetch(context.Background(), "BTCUSDT", "4h", 10)

	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchErrors.WithLabelValues("bybit", "4h")))
}

func TestLiveSource_EmptyIsUnavailable(t *testing.T) {
	empty := CandleSourceFunc(func(context.Context, string, string, int) ([]domain.Candle, error) {
		return nil, nil
	})

	src := NewLiveSource("binance", empty, fastRetrier(), nil, zap.NewNop())
	_, err := src.Fetch(context.Background(), "BTCUSDT", "1h", 10)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestLiveSource_RejectsBadArguments(t *testing.T) {
	called := false
	src := NewLiveSource("binance", CandleSourceFunc(func(context.Context, string, string, int) ([]domain.Candle, error) {
		called = true
		return nil, nil
	}), fastRetrier(), nil, zap.NewNop())

	_, err := src.Fetch(context.Background(), "BTCUSDT", "1h", 0)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)

	_, err = src.Fetch(context.Background(), "BTCUSDT", "hourly", 10)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)

	assert.False(t, called)
}
