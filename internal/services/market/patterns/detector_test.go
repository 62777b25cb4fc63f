package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vadiminshakov/sigengine/internal/domain"
	"github.com/vadiminshakov/sigengine/internal/testutil"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name      string
		latest    domain.Candle
		previous  *domain.Candle
		want      domain.PatternName
		direction domain.TrendDirection
		score     int
	}{
		{
			name:      "doji",
			latest:    testutil.OHLC(100, 105, 95, 100.5),
			want:      domain.PatternDoji,
			direction: domain.TrendNeutral,
			score:     2,
		},
		{
			name:      "hammer",
			latest:    testutil.OHLC(100, 102.2, 90, 102),
			want:      domain.PatternHammer,
			direction: domain.TrendBullish,
			score:     3,
		},
		{
			name:      "inverted hammer",
			latest:    testutil.OHLC(100, 112, 99.8, 102),
			want:      domain.PatternInvertedHammer,
			direction: domain.TrendBullish,
			score:     3,
		},
		{
			name:      "shooting star",
			latest:    testutil.OHLC(102, 112, 99.8, 100),
			want:      domain.PatternShootingStar,
			direction: domain.TrendBearish,
			score:     3,
		},
		{
			name:      "bullish engulfing",
			latest:    testutil.OHLC(93, 101.5, 92.5, 101),
			previous:  ptr(testutil.OHLC(100, 100.5, 94.5, 95)),
			want:      domain.PatternBullishEngulfing,
			direction: domain.TrendBullish,
			score:     4,
		},
		{
			name:      "bearish engulfing",
			latest:    testutil.OHLC(102, 102.5, 93.5, 94),
			previous:  ptr(testutil.OHLC(95, 101, 94.5, 100)),
			want:      domain.PatternBearishEngulfing,
			direction: domain.TrendBearish,
			score:     4,
		},
		{
			name:      "engulfing needs a previous candle",
			latest:    testutil.OHLC(93, 101.5, 92.5, 101),
			want:      domain.PatternNone,
			direction: domain.TrendNeutral,
		},
		{
			name:      "plain candle",
			latest:    testutil.OHLC(100, 106, 99, 105),
			previous:  ptr(testutil.OHLC(99, 101, 98, 100)),
			want:      domain.PatternNone,
			direction: domain.TrendNeutral,
		},
		{
			name:      "zero range",
			latest:    testutil.OHLC(100, 100, 100, 100),
			previous:  ptr(testutil.OHLC(100, 100, 100, 100)),
			want:      domain.PatternNone,
			direction: domain.TrendNeutral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.latest, tt.previous)
			assert.Equal(t, tt.want, got.Name)
			assert.Equal(t, tt.direction, got.Direction)
			assert.Equal(t, tt.score, got.Score)
		})
	}
}

func TestDetect_DojiWinsOverEngulfing(t *testing.T) {
	prev := testutil.OHLC(100.2, 100.5, 99.5, 100)
	// tiny body inside a wide range: Doji is checked first
	got := Detect(testutil.OHLC(99.9, 110, 90, 100.4), &prev)
	assert.Equal(t, domain.PatternDoji, got.Name)
}

func TestDetect_ZeroBodyWithRangeIsDoji(t *testing.T) {
	got := Detect(testutil.OHLC(100, 101, 99, 100), nil)
	assert.Equal(t, domain.PatternDoji, got.Name)
}

func TestDetect_Total(t *testing.T) {
	values := []float64{0, 1, 100}
	for _, o := range values {
		for _, h := range values {
			for _, l := range values {
				for _, c := range values {
					cur := testutil.OHLC(o, h, l, c)
					prev := testutil.OHLC(c, h, l, o)
					assert.NotPanics(t, func() {
						got := Detect(cur, &prev)
						assert.GreaterOrEqual(t, got.Score, 0)
						assert.LessOrEqual(t, got.Score, 4)
					})
				}
			}
		}
	}
}

func TestDetectLatest(t *testing.T) {
	assert.Equal(t, domain.PatternNone, DetectLatest(nil).Name)

	candles := []domain.Candle{
		testutil.OHLC(100, 100.5, 94.5, 95),
		testutil.OHLC(93, 101.5, 92.5, 101),
	}
	assert.Equal(t, domain.PatternBullishEngulfing, DetectLatest(candles).Name)
	assert.Equal(t, domain.PatternNone, DetectLatest(candles[1:]).Name)
}

func ptr(c domain.Candle) *domain.Candle {
	return &c
}
