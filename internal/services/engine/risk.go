package engine

import (
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/sigengine/internal/domain"
)

const pricePrecision = 8

var (
	holdStopLoss   = decimal.RequireFromString("0.98")
	holdTakeProfit = decimal.RequireFromString("1.02")
)

// exitLevels computes the stop-loss and take-profit of a signal entered at
// entry. ATR sizing falls back to percentages when the ATR is unknown or
// would put a level at or below zero. The level under entry is rounded down
// and the level above it up, so neither collapses onto the other.
func exitLevels(direction domain.Direction, entry decimal.Decimal, atr float64, risk domain.RiskParameters) (stopLoss, takeProfit decimal.Decimal) {
	if direction == domain.DirectionHold {
		return below(entry.Mul(holdStopLoss)), above(entry.Mul(holdTakeProfit))
	}

	slDistance := entry.Mul(risk.StopLossFraction())
	tpDistance := entry.Mul(risk.TakeProfitFraction())
	if risk.UseATRBasedSLTP && atr > 0 {
		a := decimal.NewFromFloat(atr)
		atrSL := a.Mul(decimal.NewFromFloat(risk.ATRStopLossMultiplier))
		atrTP := a.Mul(decimal.NewFromFloat(risk.ATRTakeProfitMultiplier))

		downside := atrSL
		if direction == domain.DirectionSell {
			downside = atrTP
		}
		if downside.LessThan(entry) {
			slDistance, tpDistance = atrSL, atrTP
		}
	}

	if direction == domain.DirectionSell {
		return above(entry.Add(slDistance)), below(entry.Sub(tpDistance))
	}
	return below(entry.Sub(slDistance)), above(entry.Add(tpDistance))
}

func below(p decimal.Decimal) decimal.Decimal { return p.RoundFloor(pricePrecision) }

func above(p decimal.Decimal) decimal.Decimal { return p.RoundCeil(pricePrecision) }
