package domain

// Signal is a discrete vote produced by an indicator family or analyzer.
type Signal string

const (
	SignalBuy     Signal = "BUY"
	SignalSell    Signal = "SELL"
	SignalNeutral Signal = "NEUTRAL"
)

// Vote maps the signal to +1, -1 or 0.
func (s Signal) Vote() int {
	switch s {
	case SignalBuy:
		return 1
	case SignalSell:
		return -1
	default:
		return 0
	}
}

// SignalFromSign converts the sign of v into a Signal.
func SignalFromSign(v float64) Signal {
	switch {
	case v > 0:
		return SignalBuy
	case v < 0:
		return SignalSell
	default:
		return SignalNeutral
	}
}

// Direction is the final action of a trading signal.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"
)

// Signal converts the direction into a vote, HOLD being neutral.
func (d Direction) Signal() Signal {
	switch d {
	case DirectionBuy:
		return SignalBuy
	case DirectionSell:
		return SignalSell
	default:
		return SignalNeutral
	}
}

// ParseDirection accepts BUY/SELL/HOLD (and NEUTRAL as HOLD) case-sensitively.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "BUY":
		return DirectionBuy, true
	case "SELL":
		return DirectionSell, true
	case "HOLD", "NEUTRAL":
		return DirectionHold, true
	}
	return "", false
}

// TrendDirection is the qualitative direction of price action.
type TrendDirection string

const (
	TrendBullish TrendDirection = "BULLISH"
	TrendBearish TrendDirection = "BEARISH"
	TrendNeutral TrendDirection = "NEUTRAL"
)

// Title returns a human-readable representation.
func (t TrendDirection) Title() string {
	switch t {
	case TrendBullish:
		return "Bullish"
	case TrendBearish:
		return "Bearish"
	default:
		return "Neutral"
	}
}

// Sign returns +1 for bullish, -1 for bearish, 0 otherwise.
func (t TrendDirection) Sign() int {
	switch t {
	case TrendBullish:
		return 1
	case TrendBearish:
		return -1
	default:
		return 0
	}
}

// Signal converts the trend into a vote.
func (t TrendDirection) Signal() Signal {
	return SignalFromSign(float64(t.Sign()))
}
