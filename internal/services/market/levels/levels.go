// Package levels finds support and resistance levels across several
// timeframes and classifies where the current price sits between them.
package levels

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/sigengine/internal/domain"
)

const (
	// PivotWindow is the number of bars on each side a pivot must dominate.
	PivotWindow = 5
	// MinCandles is the shortest series a timeframe may contribute.
	MinCandles = 20
	// Pivots touched fewer than MinTouches times are noise.
	MinTouches = 2
	// MaxStrength caps the strength of a level.
	MaxStrength = 5
	// Consolidated levels weaker than MinStrength are dropped.
	MinStrength = 2
	// StrongStrength is the level strength that qualifies for a level test.
	StrongStrength = 4
	// NearbyPerSide is how many of the closest levels are reported on each side of the price.
	NearbyPerSide = 3
)

var (
	touchTolerance       = decimal.RequireFromString("0.005")
	consolidateTolerance = decimal.RequireFromString("0.01")
	nearbyTolerance      = decimal.RequireFromString("0.05")
	testTolerance        = decimal.RequireFromString("0.01")
	nearSupportRatio     = decimal.RequireFromString("0.2")
	nearResistanceRatio  = decimal.RequireFromString("0.8")
)

// FindLevels returns the pivot levels of one timeframe series. A bar is a
// pivot high when its high is strictly greater than every other high within
// PivotWindow bars on both sides, pivot lows mirror that. Each pivot counts
// the candles whose high (or low) is within 0.5% of it and pivots with fewer
// than MinTouches are discarded.
func FindLevels(candles []domain.Candle, tf domain.TimeframeSpec) []domain.SupportResistanceLevel {
	var out []domain.SupportResistanceLevel
	bonus := int(tf.Weight)

	for i := PivotWindow; i < len(candles)-PivotWindow; i++ {
		if isPivot(candles, i, highOf, decimal.Decimal.GreaterThan) {
			if lvl, ok := touchLevel(candles, candles[i].High, highOf, tf.Interval, bonus); ok {
				lvl.Type = domain.LevelResistance
				out = append(out, lvl)
			}
		}
		if isPivot(candles, i, lowOf, decimal.Decimal.LessThan) {
			if lvl, ok := touchLevel(candles, candles[i].Low, lowOf, tf.Interval, bonus); ok {
				lvl.Type = domain.LevelSupport
				out = append(out, lvl)
			}
		}
	}
	return out
}

func highOf(c domain.Candle) decimal.Decimal { return c.High }
func lowOf(c domain.Candle) decimal.Decimal  { return c.Low }

func isPivot(candles []domain.Candle, i int, value func(domain.Candle) decimal.Decimal, beats func(decimal.Decimal, decimal.Decimal) bool) bool {
	v := value(candles[i])
	for j := i - PivotWindow; j <= i+PivotWindow; j++ {
		if j != i && !beats(v, value(candles[j])) {
			return false
		}
	}
	return true
}

func touchLevel(candles []domain.Candle, price decimal.Decimal, value func(domain.Candle) decimal.Decimal, interval string, bonus int) (domain.SupportResistanceLevel, bool) {
	band := price.Mul(touchTolerance)
	touches := 0
	var last time.Time
	for _, c := range candles {
		if value(c).Sub(price).Abs().LessThanOrEqual(band) {
			touches++
			if c.OpenTime.After(last) {
				last = c.OpenTime
			}
		}
	}
	if touches < MinTouches {
		return domain.SupportResistanceLevel{}, false
	}
	return domain.SupportResistanceLevel{
		Price:     price,
		Strength:  min(MaxStrength, touches+bonus),
		Timeframe: interval,
		Touches:   touches,
		LastTouch: last,
	}, true
}

// Consolidate merges levels whose prices are within 1% of price of each other.
// Levels are walked in price order and each one joins the previous group when
// it sits within the tolerance of that group's first (lowest) member, so a
// group never spans more than the tolerance. A merged group keeps the price
// and timeframe of its strongest member, sums the touches and gets
// min(5, max strength + 1). Single levels keep their strength. Types are
// re-derived from price and levels weaker than MinStrength are dropped.
func Consolidate(levels []domain.SupportResistanceLevel, price decimal.Decimal) []domain.SupportResistanceLevel {
	if len(levels) == 0 {
		return nil
	}

	sorted := make([]domain.SupportResistanceLevel, len(levels))
	copy(sorted, levels)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Price.LessThan(sorted[j].Price) })

	tolerance := price.Mul(consolidateTolerance)
	var groups [][]domain.SupportResistanceLevel
	for _, lvl := range sorted {
		if n := len(groups); n > 0 {
			anchor := groups[n-1][0]
			if lvl.Price.Sub(anchor.Price).LessThanOrEqual(tolerance) {
				groups[n-1] = append(groups[n-1], lvl)
				continue
			}
		}
		groups = append(groups, []domain.SupportResistanceLevel{lvl})
	}

	out := make([]domain.SupportResistanceLevel, 0, len(groups))
	for _, group := range groups {
		merged := merge(group)
		if merged.Strength < MinStrength {
			continue
		}
		merged.Type = typeFor(merged.Price, price)
		out = append(out, merged)
	}
	return out
}

func merge(group []domain.SupportResistanceLevel) domain.SupportResistanceLevel {
	if len(group) == 1 {
		return group[0]
	}

	strongest := group[0]
	touches := 0
	last := group[0].LastTouch
	for _, lvl := range group {
		touches += lvl.Touches
		if lvl.LastTouch.After(last) {
			last = lvl.LastTouch
		}
		if lvl.Strength > strongest.Strength ||
			(lvl.Strength == strongest.Strength && lvl.Touches > strongest.Touches) {
			strongest = lvl
		}
	}

	return domain.SupportResistanceLevel{
		Price:     strongest.Price,
		Strength:  min(MaxStrength, strongest.Strength+1),
		Timeframe: strongest.Timeframe,
		Touches:   touches,
		LastTouch: last,
	}
}

func typeFor(level, price decimal.Decimal) domain.LevelType {
	if level.GreaterThan(price) {
		return domain.LevelResistance
	}
	return domain.LevelSupport
}

// Classify builds the analysis of consolidated levels around price.
func Classify(levels []domain.SupportResistanceLevel, price decimal.Decimal) domain.LevelAnalysis {
	analysis := domain.LevelAnalysis{
		Status:       domain.LevelStatusOK,
		CurrentPrice: price,
		Levels:       levels,
	}

	band := price.Mul(nearbyTolerance)
	for _, lvl := range levels {
		if lvl.Price.Sub(price).Abs().GreaterThan(band) {
			continue
		}
		switch {
		case lvl.Price.LessThan(price):
			analysis.NearbySupport = append(analysis.NearbySupport, lvl)
		case lvl.Price.GreaterThan(price):
			analysis.NearbyResistance = append(analysis.NearbyResistance, lvl)
		}
	}
	analysis.NearbySupport = closest(analysis.NearbySupport, price)
	analysis.NearbyResistance = closest(analysis.NearbyResistance, price)

	analysis.Position = position(analysis, price)
	analysis.Test = strongLevelTest(levels, price)

	return analysis
}

func closest(levels []domain.SupportResistanceLevel, price decimal.Decimal) []domain.SupportResistanceLevel {
	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Price.Sub(price).Abs().LessThan(levels[j].Price.Sub(price).Abs())
	})
	if len(levels) > NearbyPerSide {
		levels = levels[:NearbyPerSide]
	}
	return levels
}

func position(analysis domain.LevelAnalysis, price decimal.Decimal) domain.PricePosition {
	support, hasSupport := analysis.NearestSupport()
	resistance, hasResistance := analysis.NearestResistance()

	switch {
	case hasSupport && hasResistance:
		ratio := price.Sub(support.Price).Div(resistance.Price.Sub(support.Price))
		switch {
		case ratio.LessThan(nearSupportRatio):
			return domain.PositionNearSupport
		case ratio.GreaterThan(nearResistanceRatio):
			return domain.PositionNearResistance
		default:
			return domain.PositionMiddleRange
		}
	case hasSupport:
		return domain.PositionAboveAllResistance
	case hasResistance:
		return domain.PositionBelowAllSupport
	default:
		return domain.PositionNoClearZone
	}
}

func strongLevelTest(levels []domain.SupportResistanceLevel, price decimal.Decimal) *domain.LevelTest {
	band := price.Mul(testTolerance)

	var best *domain.SupportResistanceLevel
	for i := range levels {
		lvl := &levels[i]
		distance := lvl.Price.Sub(price).Abs()
		if lvl.Strength < StrongStrength || distance.GreaterThan(band) {
			continue
		}
		if best == nil || distance.LessThan(best.Price.Sub(price).Abs()) {
			best = lvl
		}
	}
	if best == nil {
		return nil
	}

	potential := domain.SupportTest
	if best.Price.GreaterThan(price) {
		potential = domain.ResistanceTest
	}
	return &domain.LevelTest{
		Potential:      potential,
		SignalStrength: best.Strength,
		Level:          *best,
	}
}
