package collector

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/sigengine/internal/domain"
)

// parseCandle parses the exchange string OHLCV fields; times are left to the caller.
func parseCandle(open, high, low, closePrice, volume string) (domain.Candle, error) {
	fields := []struct {
		name  string
		value string
	}{
		{"open", open},
		{"high", high},
		{"low", low},
		{"close", closePrice},
		{"volume", volume},
	}

	parsed := make([]decimal.Decimal, len(fields))
	for i, f := range fields {
		d, err := decimal.NewFromString(f.value)
		if err != nil {
			return domain.Candle{}, errors.Wrapf(err, "failed to parse %s %q", f.name, f.value)
		}
		parsed[i] = d
	}

	return domain.Candle{
		Open:   parsed[0],
		High:   parsed[1],
		Low:    parsed[2],
		Close:  parsed[3],
		Volume: parsed[4],
	}, nil
}

// parseTimestamp converts a millisecond epoch string to time.Time.
func parseTimestamp(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	msec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to parse timestamp: %s", ts)
	}
	return time.UnixMilli(msec).UTC(), nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func millis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
