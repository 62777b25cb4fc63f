package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInterval(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"1m", time.Minute, false},
		{"15m", 15 * time.Minute, false},
		{"4h", 4 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"1w", 7 * 24 * time.Hour, false},
		{"h", 0, true},
		{"0h", 0, true},
		{"1y", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseInterval(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCandleGeometry(t *testing.T) {
	c := Candle{
		Open:  decimal.NewFromInt(100),
		High:  decimal.NewFromInt(110),
		Low:   decimal.NewFromInt(90),
		Close: decimal.NewFromInt(104),
	}
	assert.True(t, c.IsBullish())
	assert.False(t, c.IsBearish())
	assert.True(t, c.Body().Equal(decimal.NewFromInt(4)))
	assert.True(t, c.Range().Equal(decimal.NewFromInt(20)))
	assert.True(t, c.UpperShadow().Equal(decimal.NewFromInt(6)))
	assert.True(t, c.LowerShadow().Equal(decimal.NewFromInt(10)))
}

func TestSortCandles(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := []Candle{
		{OpenTime: base.Add(2 * time.Hour)},
		{OpenTime: base},
		{OpenTime: base.Add(time.Hour)},
	}
	out := SortCandles(in)
	assert.Equal(t, base, out[0].OpenTime)
	assert.Equal(t, base.Add(2*time.Hour), out[2].OpenTime)
	assert.Equal(t, base.Add(2*time.Hour), in[0].OpenTime, "input must not be reordered")
}

func TestPairFromSymbol(t *testing.T) {
	p, err := PairFromSymbol("btcusdt")
	require.NoError(t, err)
	assert.Equal(t, Pair{From: "BTC", To: "USDT"}, p)
	assert.Equal(t, "BTC_USDT", p.String())

	p, err = PairFromSymbol("ETH_USDC")
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDC", p.Symbol())

	_, err = PairFromSymbol("XYZ")
	assert.Error(t, err)
}
