package collector

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertIntervalToBybit(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  string
		shouldErr bool
	}{
		{name: "1 minute", input: "1m", expected: "1"},
		{name: "15 minutes", input: "15m", expected: "15"},
		{name: "1 hour", input: "1h", expected: "60"},
		{name: "4 hours", input: "4h", expected: "240"},
		{name: "6 hours", input: "6h", expected: "360"},
		{name: "1 day", input: "1d", expected: "D"},
		{name: "1 week", input: "1w", expected: "W"},
		{name: "multi-day is not served", input: "3d", shouldErr: true},
		{name: "empty", input: "", shouldErr: true},
		{name: "no unit", input: "1", shouldErr: true},
		{name: "unsupported unit", input: "1x", shouldErr: true},
		{name: "no number", input: "m", shouldErr: true},
		{name: "zero", input: "0h", shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := convertIntervalToBybit(tt.input)
			if tt.shouldErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errUnsupportedInterval))
				assert.False(t, isRetryable(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	got, err := parseTimestamp("1672531200000")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = parseTimestamp("")
	assert.Error(t, err)

	_, err = parseTimestamp("abc")
	assert.Error(t, err)
}

func TestParseCandle(t *testing.T) {
	c, err := parseCandle("100.5", "101", "99.75", "100", "12.5")
	require.NoError(t, err)
	assert.Equal(t, "99.75", c.Low.String())
	assert.Equal(t, "12.5", c.Volume.String())

	_, err = parseCandle("100", "x", "99", "100", "1")
	assert.ErrorContains(t, err, "high")
}

func TestBybitSource_FetchPagesBackwards(t *testing.T) {
	const (
		t0    = int64(1672531200000)
		hour  = int64(time.Hour / time.Millisecond)
		total = 300
	)

	var (
		mu   sync.Mutex
		ends []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/market/kline", r.URL.Path)
		q := r.URL.Query()
		mu.Lock()
		ends = append(ends, q.Get("end"))
		mu.Unlock()

		end := int64(math.MaxInt64)
		if v := q.Get("end"); v != "" {
			end, _ = strconv.ParseInt(v, 10, 64)
		}
		limit, _ := strconv.Atoi(q.Get("limit"))

		list := [][]string{}
		for i := total - 1; i >= 0 && len(list) < limit; i-- {
			start := t0 + int64(i)*hour
			if start > end {
				continue
			}
			price := strconv.Itoa(100 + i)
			list = append(list, []string{strconv.FormatInt(start, 10), price, price, price, price, "1", "100"})
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"retCode": 0,
			"retMsg":  "OK",
			"result": map[string]any{
				"category": "spot",
				"symbol":   "BTCUSDT",
				"list":     list,
			},
		})
	}))
	defer srv.Close()

	src := &BybitSource{client: bybit.NewClient().WithBaseURL(srv.URL)}
	candles, err := src.Fetch(context.Background(), "BTCUSDT", "1h", 250)
	require.NoError(t, err)
	require.Len(t, candles, 250)

	for i := 1; i < len(candles); i++ {
		require.True(t, candles[i].OpenTime.After(candles[i-1].OpenTime), "candle %d out of order", i)
	}
	assert.Equal(t, time.UnixMilli(t0+int64(total-250)*hour).UTC(), candles[0].OpenTime)
	assert.Equal(t, time.UnixMilli(t0+int64(total-1)*hour).UTC(), candles[len(candles)-1].OpenTime)
	assert.Equal(t, "399", candles[len(candles)-1].Close.String())

	require.Len(t, ends, 2)
	assert.Empty(t, ends[0])
	// the second page ends one millisecond before the oldest candle of the first
	secondEnd, err := strconv.ParseInt(ends[1], 10, 64)
	require.NoError(t, err)
	assert.Equal(t, t0+int64(total-bybitMaxPerRequest)*hour-1, secondEnd)
	assert.Greater(t, secondEnd, int64(math.MaxInt32))
}
