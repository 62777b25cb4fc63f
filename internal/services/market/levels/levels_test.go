package levels

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/sigengine/internal/domain"
	"github.com/vadiminshakov/sigengine/internal/services/market/collector"
	"github.com/vadiminshakov/sigengine/internal/testutil"
	"go.uber.org/zap"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func level(price string, typ domain.LevelType, strength, touches int) domain.SupportResistanceLevel {
	return domain.SupportResistanceLevel{
		Price:     d(price),
		Type:      typ,
		Strength:  strength,
		Timeframe: "1h",
		Touches:   touches,
		LastTouch: testutil.Start,
	}
}

// peaks builds a flat 45-bar series (high 100, low 99) with spikes at the
// given indexes.
func peaks(spikes map[int]float64) []domain.Candle {
	candles := make([]domain.Candle, 45)
	for i := range candles {
		high := 100.0
		if h, ok := spikes[i]; ok {
			high = h
		}
		candles[i] = testutil.Candle(testutil.Start.Add(time.Duration(i)*time.Hour), 99.5, high, 99, 99.6, 10)
	}
	return candles
}

func TestConsolidate_MergesCloseResistances(t *testing.T) {
	levels := []domain.SupportResistanceLevel{
		level("100.50", domain.LevelResistance, 4, 3),
		level("100.00", domain.LevelResistance, 3, 2),
	}
	levels[0].LastTouch = testutil.Start.Add(5 * time.Hour)

	got := Consolidate(levels, d("99"))

	require.Len(t, got, 1)
	assert.Equal(t, domain.LevelResistance, got[0].Type)
	assert.Equal(t, 5, got[0].Touches)
	assert.Equal(t, 5, got[0].Strength)
	assert.Equal(t, testutil.Start.Add(5*time.Hour), got[0].LastTouch)
	assert.True(t, d("100.50").Equal(got[0].Price))
}

func TestConsolidate_StrengthIsCapped(t *testing.T) {
	got := Consolidate([]domain.SupportResistanceLevel{
		level("100.00", domain.LevelResistance, 5, 4),
		level("100.40", domain.LevelResistance, 5, 2),
	}, d("99"))

	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Strength)
	assert.Equal(t, 6, got[0].Touches)
}

func TestConsolidate_KeepsDistantLevelsAndDropsWeakOnes(t *testing.T) {
	got := Consolidate([]domain.SupportResistanceLevel{
		level("110", domain.LevelResistance, 3, 2),
		level("90", domain.LevelResistance, 2, 2),
		level("120", domain.LevelResistance, 1, 2),
	}, d("100"))

	require.Len(t, got, 2)
	assert.True(t, d("90").Equal(got[0].Price))
	// type follows the current price, not the pivot kind
	assert.Equal(t, domain.LevelSupport, got[0].Type)
	assert.Equal(t, domain.LevelResistance, got[1].Type)
	assert.Equal(t, 2, got[0].Strength)
}

func TestConsolidate_LadderDoesNotChain(t *testing.T) {
	// each step is within 1% of the previous level but the outer two are not
	got := Consolidate([]domain.SupportResistanceLevel{
		level("100.0", domain.LevelResistance, 3, 2),
		level("100.8", domain.LevelResistance, 2, 2),
		level("101.6", domain.LevelResistance, 3, 3),
	}, d("100"))

	require.Len(t, got, 2)
	assert.True(t, d("100.0").Equal(got[0].Price))
	assert.Equal(t, 4, got[0].Strength)
	assert.Equal(t, 4, got[0].Touches)
	assert.True(t, d("101.6").Equal(got[1].Price))
	assert.Equal(t, 3, got[1].Strength)
	assert.Equal(t, 3, got[1].Touches)
}

func TestConsolidate_Empty(t *testing.T) {
	assert.Empty(t, Consolidate(nil, d("100")))
}

func TestFindLevels(t *testing.T) {
	candles := peaks(map[int]float64{
		10: 110,
		18: 130, // single touch
		25: 110.2,
		32: 120, // tie with the next bar
		33: 120,
	})

	got := FindLevels(candles, domain.TimeframeSpec{Interval: "4h", Lookback: 45, Weight: 1.5})

	require.Len(t, got, 2)
	for _, lvl := range got {
		assert.Equal(t, domain.LevelResistance, lvl.Type)
		assert.Equal(t, 2, lvl.Touches)
		assert.Equal(t, 3, lvl.Strength)
		assert.Equal(t, "4h", lvl.Timeframe)
		assert.Equal(t, candles[25].OpenTime, lvl.LastTouch)
	}
	assert.True(t, d("110").Equal(got[0].Price))
	assert.True(t, d("110.2").Equal(got[1].Price))
}

func TestFindLevels_ShortSeries(t *testing.T) {
	assert.Empty(t, FindLevels(peaks(nil)[:8], domain.TimeframeSpec{Interval: "1h", Weight: 1}))
}

func TestClassify_Position(t *testing.T) {
	tests := []struct {
		name   string
		levels []domain.SupportResistanceLevel
		want   domain.PricePosition
	}{
		{
			name: "middle range",
			levels: []domain.SupportResistanceLevel{
				level("98", domain.LevelSupport, 3, 2),
				level("102", domain.LevelResistance, 3, 2),
			},
			want: domain.PositionMiddleRange,
		},
		{
			name: "near support",
			levels: []domain.SupportResistanceLevel{
				level("99.9", domain.LevelSupport, 3, 2),
				level("104", domain.LevelResistance, 3, 2),
			},
			want: domain.PositionNearSupport,
		},
		{
			name: "near resistance",
			levels: []domain.SupportResistanceLevel{
				level("96", domain.LevelSupport, 3, 2),
				level("100.1", domain.LevelResistance, 3, 2),
			},
			want: domain.PositionNearResistance,
		},
		{
			name:   "above all resistance",
			levels: []domain.SupportResistanceLevel{level("97", domain.LevelSupport, 3, 2)},
			want:   domain.PositionAboveAllResistance,
		},
		{
			name:   "below all support",
			levels: []domain.SupportResistanceLevel{level("103", domain.LevelResistance, 3, 2)},
			want:   domain.PositionBelowAllSupport,
		},
		{
			name: "levels too far away",
			levels: []domain.SupportResistanceLevel{
				level("80", domain.LevelSupport, 3, 2),
				level("130", domain.LevelResistance, 3, 2),
			},
			want: domain.PositionNoClearZone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.levels, d("100"))
			assert.Equal(t, domain.LevelStatusOK, got.Status)
			assert.Equal(t, tt.want, got.Position)
		})
	}
}

func TestClassify_NearbyKeepsThreeClosest(t *testing.T) {
	got := Classify([]domain.SupportResistanceLevel{
		level("96", domain.LevelSupport, 2, 2),
		level("99", domain.LevelSupport, 2, 2),
		level("97", domain.LevelSupport, 2, 2),
		level("98", domain.LevelSupport, 2, 2),
	}, d("100"))

	require.Len(t, got.NearbySupport, 3)
	assert.True(t, d("99").Equal(got.NearbySupport[0].Price))
	assert.True(t, d("97").Equal(got.NearbySupport[2].Price))
	assert.Empty(t, got.NearbyResistance)
}

func TestClassify_StrongLevelTest(t *testing.T) {
	got := Classify([]domain.SupportResistanceLevel{
		level("98", domain.LevelSupport, 3, 2),
		level("100.8", domain.LevelResistance, 4, 5),
	}, d("100"))

	require.NotNil(t, got.Test)
	assert.Equal(t, domain.ResistanceTest, got.Test.Potential)
	assert.Equal(t, 4, got.Test.SignalStrength)

	got = Classify([]domain.SupportResistanceLevel{
		level("99.5", domain.LevelSupport, 5, 6),
		level("100.9", domain.LevelResistance, 4, 5),
	}, d("100"))
	require.NotNil(t, got.Test)
	assert.Equal(t, domain.SupportTest, got.Test.Potential)
	assert.Equal(t, 5, got.Test.SignalStrength)

	// weak levels are never tested
	got = Classify([]domain.SupportResistanceLevel{level("100.2", domain.LevelResistance, 3, 2)}, d("100"))
	assert.Nil(t, got.Test)
}

func fixedSource(series map[string][]domain.Candle, fail map[string]error) collector.CandleSource {
	return collector.CandleSourceFunc(func(_ context.Context, _ string, interval string, _ int) ([]domain.Candle, error) {
		if err := fail[interval]; err != nil {
			return nil, err
		}
		return series[interval], nil
	})
}

func TestAnalyzer_Analyze(t *testing.T) {
	candles := peaks(map[int]float64{10: 110, 25: 110.2})
	series := map[string][]domain.Candle{"1h": candles, "4h": candles, "1d": candles, "1w": candles}

	a := NewAnalyzer(fixedSource(series, nil), nil, time.Second, zap.NewNop())
	got := a.Analyze(context.Background(), "BTCUSDT", d("108"))

	assert.Equal(t, domain.LevelStatusOK, got.Status)
	require.Len(t, got.Levels, 1)
	assert.Equal(t, domain.LevelResistance, got.Levels[0].Type)
	assert.Equal(t, 5, got.Levels[0].Strength)
	assert.Equal(t, domain.PositionBelowAllSupport, got.Position)
}

func TestAnalyzer_InsufficientData(t *testing.T) {
	candles := peaks(nil)
	series := map[string][]domain.Candle{"1h": candles, "4h": candles, "1d": candles[:19], "1w": candles}

	a := NewAnalyzer(fixedSource(series, nil), nil, time.Second, zap.NewNop())
	got := a.Analyze(context.Background(), "BTCUSDT", d("100"))
	assert.Equal(t, domain.LevelStatusInsufficientData, got.Status)
	assert.Equal(t, domain.PositionNoClearZone, got.Position)
	assert.Nil(t, got.Test)

	failing := fixedSource(map[string][]domain.Candle{"1h": candles, "4h": candles, "1d": candles},
		map[string]error{"1w": errors.Wrap(domain.ErrDataUnavailable, "boom")})
	got = NewAnalyzer(failing, nil, time.Second, zap.NewNop()).Analyze(context.Background(), "BTCUSDT", d("100"))
	assert.Equal(t, domain.LevelStatusInsufficientData, got.Status)

	got = a.Analyze(context.Background(), "BTCUSDT", decimal.Zero)
	assert.Equal(t, domain.LevelStatusInsufficientData, got.Status)
}
