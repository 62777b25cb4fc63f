package collector

import (
	"context"
	"strconv"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/sigengine/internal/domain"
)

const bybitMaxPerRequest = 200

// BybitSource fetches spot klines from Bybit v5, paging backwards in time.
type BybitSource struct {
	client *bybit.Client
	pause  time.Duration
}

// NewBybitSource creates a new Bybit candle source.
func NewBybitSource(client *bybit.Client) *BybitSource {
	return &BybitSource{client: client, pause: 100 * time.Millisecond}
}

// Fetch implements CandleSource.
func (s *BybitSource) Fetch(ctx context.Context, symbol, interval string, lookback int) ([]domain.Candle, error) {
	if lookback <= 0 {
		return nil, errors.New("lookback must be > 0")
	}

	bybitInterval, err := convertIntervalToBybit(interval)
	if err != nil {
		return nil, err
	}

	var (
		items []bybit.V5GetKlineItem
		end   *int64
	)

	for remaining := lookback; remaining > 0; {
		batchSize := min(remaining, bybitMaxPerRequest)

		result, err := s.client.V5().Market().GetKline(bybit.V5GetKlineParam{
			Category: bybit.CategoryV5Spot,
			Symbol:   bybit.SymbolV5(symbol),
			Interval: bybit.Interval(bybitInterval),
			Limit:    &batchSize,
			End:      end,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch klines from Bybit for %s", symbol)
		}
		if result == nil {
			return nil, errors.Errorf("empty result from Bybit API for %s", symbol)
		}

		// newest first
		page := result.Result.List
		if len(page) == 0 {
			break
		}
		items = append(items, page...)
		remaining -= len(page)
		if len(page) < batchSize {
			break
		}

		oldest, err := parseTimestamp(page[len(page)-1].StartTime)
		if err != nil {
			return nil, errors.Wrap(err, "bybit page boundary")
		}
		next := oldest.UnixMilli() - 1
		end = &next

		if remaining > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.pause):
			}
		}
	}

	if len(items) == 0 {
		return nil, errors.Errorf("no kline data returned from Bybit for %s", symbol)
	}

	duration, _ := domain.ParseInterval(interval)
	candles := make([]domain.Candle, len(items))
	for i, k := range items {
		c, err := parseCandle(k.Open, k.High, k.Low, k.Close, k.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "bybit kline %d", i)
		}
		openTime, err := parseTimestamp(k.StartTime)
		if err != nil {
			return nil, errors.Wrapf(err, "bybit kline %d", i)
		}
		c.OpenTime = openTime
		c.CloseTime = openTime.Add(duration - time.Millisecond)
		// reverse into ascending order
		candles[len(items)-1-i] = c
	}

	return candles, nil
}

// convertIntervalToBybit converts "1m"/"4h"/"1d"/"1w" notation to the Bybit
// interval codes "1"/"240"/"D"/"W".
func convertIntervalToBybit(interval string) (string, error) {
	if len(interval) < 2 {
		return "", errors.Wrapf(errUnsupportedInterval, "invalid interval format: %q", interval)
	}

	unit := interval[len(interval)-1]
	n, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || n <= 0 {
		return "", errors.Wrapf(errUnsupportedInterval, "invalid interval number: %q", interval)
	}

	switch unit {
	case 'm':
		return strconv.Itoa(n), nil
	case 'h':
		return strconv.Itoa(n * 60), nil
	case 'd':
		if n != 1 {
			return "", errors.Wrapf(errUnsupportedInterval, "%q", interval)
		}
		return "D", nil
	case 'w':
		if n != 1 {
			return "", errors.Wrapf(errUnsupportedInterval, "%q", interval)
		}
		return "W", nil
	default:
		return "", errors.Wrapf(errUnsupportedInterval, "unit %c", unit)
	}
}
