// Package patterns recognises single- and two-candle candlestick patterns.
package patterns

import (
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/sigengine/internal/domain"
)

var (
	dojiBodyRatio   = decimal.RequireFromString("0.1")
	smallBodyRatio  = decimal.RequireFromString("0.3")
	longShadowRatio = decimal.NewFromInt(2)
	shortShadowRate = decimal.RequireFromString("0.5")
)

const (
	scoreDoji      = 2
	scoreHammer    = 3
	scoreEngulfing = 4
)

// Detect classifies the latest candle, using previous for two-candle patterns.
// Rules are checked in order (Doji, hammer family, engulfing) and the first
// match wins. It never panics on degenerate candles.
func Detect(latest domain.Candle, previous *domain.Candle) domain.PatternMatch {
	candleRange := latest.Range()
	if !candleRange.IsPositive() {
		return domain.NoPattern()
	}

	body := latest.Body()
	if body.Div(candleRange).LessThan(dojiBodyRatio) {
		return domain.PatternMatch{Name: domain.PatternDoji, Direction: domain.TrendNeutral, Score: scoreDoji}
	}

	if match, ok := hammerFamily(latest, body, candleRange); ok {
		return match
	}

	if previous != nil {
		if match, ok := engulfing(latest, *previous); ok {
			return match
		}
	}

	return domain.NoPattern()
}

// DetectLatest runs Detect on the last two candles of a series.
func DetectLatest(candles []domain.Candle) domain.PatternMatch {
	switch len(candles) {
	case 0:
		return domain.NoPattern()
	case 1:
		return Detect(candles[0], nil)
	}
	previous := candles[len(candles)-2]
	return Detect(candles[len(candles)-1], &previous)
}

func hammerFamily(c domain.Candle, body, candleRange decimal.Decimal) (domain.PatternMatch, bool) {
	// shadow ratios are undefined without a body
	if !body.IsPositive() {
		return domain.PatternMatch{}, false
	}

	upper := c.UpperShadow().Div(body)
	lower := c.LowerShadow().Div(body)
	smallBody := body.Div(candleRange).LessThan(smallBodyRatio)

	switch {
	case c.IsBullish() && smallBody && lower.GreaterThan(longShadowRatio) && upper.LessThan(shortShadowRate):
		return domain.PatternMatch{Name: domain.PatternHammer, Direction: domain.TrendBullish, Score: scoreHammer}, true
	case c.IsBullish() && smallBody && upper.GreaterThan(longShadowRatio) && lower.LessThan(shortShadowRate):
		return domain.PatternMatch{Name: domain.PatternInvertedHammer, Direction: domain.TrendBullish, Score: scoreHammer}, true
	case c.IsBearish() && upper.GreaterThan(longShadowRatio) && lower.LessThan(shortShadowRate):
		return domain.PatternMatch{Name: domain.PatternShootingStar, Direction: domain.TrendBearish, Score: scoreHammer}, true
	}
	return domain.PatternMatch{}, false
}

func engulfing(cur, prev domain.Candle) (domain.PatternMatch, bool) {
	if !cur.Body().GreaterThan(prev.Body()) {
		return domain.PatternMatch{}, false
	}

	switch {
	case cur.IsBullish() && prev.IsBearish() &&
		cur.Open.LessThan(prev.Close) && cur.Close.GreaterThan(prev.Open):
		return domain.PatternMatch{Name: domain.PatternBullishEngulfing, Direction: domain.TrendBullish, Score: scoreEngulfing}, true
	case cur.IsBearish() && prev.IsBullish() &&
		cur.Open.GreaterThan(prev.Close) && cur.Close.LessThan(prev.Open):
		return domain.PatternMatch{Name: domain.PatternBearishEngulfing, Direction: domain.TrendBearish, Score: scoreEngulfing}, true
	}
	return domain.PatternMatch{}, false
}
