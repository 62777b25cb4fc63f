package domain

// PatternName identifies a candlestick pattern recognised by the detector.
type PatternName string

const (
	PatternNone             PatternName = "None"
	PatternDoji             PatternName = "Doji"
	PatternHammer           PatternName = "Hammer"
	PatternInvertedHammer   PatternName = "Inverted Hammer"
	PatternShootingStar     PatternName = "Shooting Star"
	PatternBullishEngulfing PatternName = "Bullish Engulfing"
	PatternBearishEngulfing PatternName = "Bearish Engulfing"
)

// PatternMatch is the result of inspecting the latest candle and its predecessor.
type PatternMatch struct {
	Name      PatternName    `json:"name"`
	Direction TrendDirection `json:"direction"`
	Score     int            `json:"score"`
}

// NoPattern returns the match used when no rule applies.
func NoPattern() PatternMatch {
	return PatternMatch{Name: PatternNone, Direction: TrendNeutral}
}
