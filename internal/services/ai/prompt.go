package ai

import (
	"fmt"
	"strings"

	"github.com/vadiminshakov/sigengine/internal/domain"
)

const recentCandles = 20

// systemPrompt holds the instructions for the LLM predictor.
const systemPrompt = `You are a cryptocurrency market analyst. You receive OHLCV candles and technical indicators for one symbol and interval and predict the direction of the next moves.

## OUTPUT FORMAT

Respond with ONLY valid JSON. No markdown, no code blocks, no additional text.

{
  "signal": "BUY|SELL|HOLD",
  "confidence": 0,
  "risk_score": 0,
  "reasoning": "short explanation"
}

- signal: BUY when you expect the price to rise, SELL when you expect it to fall, HOLD when unclear
- confidence: how sure you are, 0-100
- risk_score: how risky acting on the signal is right now, 0-100 (volatility, conflicting data)

Do not force a direction. HOLD is a valid answer.`

func buildUserPrompt(symbol, interval string, candles []domain.Candle, s domain.IndicatorSnapshot) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Market Analysis for %s (%s)\n\n", symbol, interval))

	sb.WriteString(fmt.Sprintf("## Recent Market Data (Last %d Candles)\n\n", recentCandles))
	sb.WriteString("```\n")
	sb.WriteString("Time             | Open       | High       | Low        | Close      | Volume\n")
	sb.WriteString("-----------------|------------|------------|------------|------------|-----------\n")

	start := len(candles) - recentCandles
	if start < 0 {
		start = 0
	}
	for _, c := range candles[start:] {
		sb.WriteString(fmt.Sprintf("%-16s | %10.2f | %10.2f | %10.2f | %10.2f | %10.2f\n",
			c.OpenTime.UTC().Format("2006-01-02 15:04"),
			c.Open.InexactFloat64(),
			c.High.InexactFloat64(),
			c.Low.InexactFloat64(),
			c.Close.InexactFloat64(),
			c.Volume.InexactFloat64(),
		))
	}
	sb.WriteString("```\n\n")

	sb.WriteString("## Indicators (last bar)\n\n")
	sb.WriteString(fmt.Sprintf("- RSI: %.1f (%s)\n", s.RSI.Value, s.RSI.Signal))
	sb.WriteString(fmt.Sprintf("- MACD: %.4f, signal %.4f, histogram %.4f (%s)\n",
		s.MACD.MACD, s.MACD.SignalLine, s.MACD.Histogram, s.MACD.Signal))
	sb.WriteString(fmt.Sprintf("- Bollinger: upper %.2f, middle %.2f, lower %.2f, %%B %.2f, breakout %s\n",
		s.Bollinger.Upper, s.Bollinger.Middle, s.Bollinger.Lower, s.Bollinger.PercentB, s.Bollinger.Breakout))
	sb.WriteString(fmt.Sprintf("- Moving averages: SMA20 %.2f, SMA50 %.2f, EMA12 %.2f, EMA26 %.2f, trend %s\n",
		s.MA.SMA20, s.MA.SMA50, s.MA.EMA12, s.MA.EMA26, s.MA.Trend))
	sb.WriteString(fmt.Sprintf("- ADX: %.1f (+DI %.1f, -DI %.1f), %s %s\n",
		s.ADX.Value, s.ADX.PlusDI, s.ADX.MinusDI, s.ADX.Strength, s.ADX.Direction))
	sb.WriteString(fmt.Sprintf("- Stochastic: K %.1f, D %.1f (%s)\n", s.Stochastic.K, s.Stochastic.D, s.Stochastic.Signal))
	sb.WriteString(fmt.Sprintf("- Volume: current %.2f, MA20 %.2f, %s\n", s.Volume.Current, s.Volume.MovingAverage, s.Volume.Trend))
	sb.WriteString(fmt.Sprintf("- ATR14: %.4f\n\n", s.ATR))

	sb.WriteString("## Instructions\n\n")
	sb.WriteString("Analyze the data and answer with the JSON prediction.\n")

	return sb.String()
}
