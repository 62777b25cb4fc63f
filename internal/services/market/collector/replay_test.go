package collector

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/sigengine/internal/domain"
	candles "github.com/vadiminshakov/sigengine/internal/testutil"
)

func TestReplaySource_NoLookAhead(t *testing.T) {
	series := candles.ZigzagUptrend(100)
	src, err := NewReplaySource("BTCUSDT", "1h", series)
	require.NoError(t, err)
	require.NoError(t, src.Seek(59))

	got, err := src.Fetch(context.Background(), "BTCUSDT", "1h", 500)
	require.NoError(t, err)
	require.Len(t, got, 60)
	assert.Equal(t, series[59], got[59])

	price, err := src.CurrentPrice(context.Background(), "btcusdt")
	require.NoError(t, err)
	assert.True(t, series[59].Close.Equal(price))

	require.True(t, src.Advance())
	got, err = src.Fetch(context.Background(), "BTCUSDT", "1h", 10)
	require.NoError(t, err)
	assert.Equal(t, series[60], got[len(got)-1])
}

func TestReplaySource_AdvanceStopsAtEnd(t *testing.T) {
	src, err := NewReplaySource("BTCUSDT", "1h", candles.ZigzagUptrend(3))
	require.NoError(t, err)

	assert.True(t, src.Advance())
	assert.True(t, src.Advance())
	assert.False(t, src.Advance())
	assert.Equal(t, 2, src.Index())
	assert.Error(t, src.Seek(3))
}

func TestReplaySource_Resamples(t *testing.T) {
	series := candles.ZigzagUptrend(48)
	src, err := NewReplaySource("BTCUSDT", "1h", series)
	require.NoError(t, err)
	require.NoError(t, src.Seek(9))

	got, err := src.Fetch(context.Background(), "BTCUSDT", "4h", 10)
	require.NoError(t, err)
	// hours 0-3, 4-7 and the partial 8-9 bucket
	require.Len(t, got, 3)
	assert.True(t, series[4].Open.Equal(got[1].Open))
	assert.True(t, series[7].Close.Equal(got[1].Close))
	assert.True(t, series[9].Close.Equal(got[2].Close))
	assert.Equal(t, "4000", got[0].Volume.String())

	_, err = src.Fetch(context.Background(), "BTCUSDT", "90m", 10)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
	_, err = src.Fetch(context.Background(), "BTCUSDT", "15m", 10)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestReplaySource_NativeSeriesRespectsCursor(t *testing.T) {
	hourly := candles.ZigzagUptrend(72)
	src, err := NewReplaySource("BTCUSDT", "1h", hourly)
	require.NoError(t, err)

	daily := Resample(hourly, 24*time.Hour)
	require.Len(t, daily, 3)
	require.NoError(t, src.AddSeries("1d", daily))

	// cursor inside day two: only day one has closed
	require.NoError(t, src.Seek(30))
	got, err := src.Fetch(context.Background(), "BTCUSDT", "1d", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, daily[0], got[0])

	require.NoError(t, src.Seek(5))
	_, err = src.Fetch(context.Background(), "BTCUSDT", "1d", 10)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestReplaySource_OtherSymbol(t *testing.T) {
	src, err := NewReplaySource("BTCUSDT", "1h", candles.ZigzagUptrend(10))
	require.NoError(t, err)

	_, err = src.Fetch(context.Background(), "ETHUSDT", "1h", 5)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestCSV_RoundTripKeepsCandles(t *testing.T) {
	series := candles.ZigzagUptrend(25)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, series))
	assert.True(t, strings.HasPrefix(buf.String(), "open_time,open,high,low,close,volume,close_time\n"))

	got, err := ReadCSV(&buf, time.Time{}, time.Hour)
	require.NoError(t, err)
	require.Len(t, got, len(series))
	for i := range series {
		assert.True(t, series[i].OpenTime.Equal(got[i].OpenTime))
		assert.True(t, series[i].Close.Equal(got[i].Close))
		assert.True(t, series[i].Volume.Equal(got[i].Volume))
	}
}

func TestReadCSV_BareOHLCRows(t *testing.T) {
	input := "100,101,99,100.5\n100.5,102,100,101.5\n"

	got, err := ReadCSV(strings.NewReader(input), candles.Start, time.Hour)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, candles.Start.Add(time.Hour), got[1].OpenTime)
	assert.Equal(t, "101.5", got[1].Close.String())
	assert.True(t, got[1].Volume.IsZero())
}

func TestReadCSV_RejectsMalformedRows(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("1,2,3\n"), candles.Start, time.Hour)
	assert.ErrorContains(t, err, "line 1")

	_, err = ReadCSV(strings.NewReader("100,x,99,100\n"), candles.Start, time.Hour)
	assert.Error(t, err)
}

func TestWriteCSVFile(t *testing.T) {
	path := t.TempDir() + "/btc.csv"
	series := candles.ZigzagUptrend(5)

	require.NoError(t, WriteCSVFile(path, series))
	got, err := ReadCSVFile(path, time.Time{}, time.Hour)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestReplaySource_Ahead(t *testing.T) {
	series := candles.ZigzagUptrend(10)
	src, err := NewReplaySource("BTCUSDT", "1h", series)
	require.NoError(t, err)
	assert.Equal(t, "1h", src.Interval())
	assert.Equal(t, "BTCUSDT", src.Symbol())

	require.NoError(t, src.Seek(6))
	ahead := src.Ahead(5)
	require.Len(t, ahead, 3)
	assert.Equal(t, series[7], ahead[0])

	require.NoError(t, src.Seek(9))
	assert.Empty(t, src.Ahead(5))
}
