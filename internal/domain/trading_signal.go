package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradingSignal is the final output of the decision engine. Values are never
// mutated after the engine returns them.
type TradingSignal struct {
	ID                   string          `json:"id"`
	Symbol               string          `json:"symbol"`
	Interval             string          `json:"interval"`
	Direction            Direction       `json:"direction"`
	EntryPrice           decimal.Decimal `json:"entry_price"`
	StopLoss             decimal.Decimal `json:"stop_loss"`
	TakeProfit           decimal.Decimal `json:"take_profit"`
	Confidence           float64         `json:"confidence"`
	TotalScore           float64         `json:"total_score"`
	CombinedScore        int             `json:"combined_score"`
	ProfessionalStrength int             `json:"professional_strength"`
	DecisionFactors      DecisionFactors `json:"decision_factors"`
	Timestamp            time.Time       `json:"timestamp"`
}

// IsActionable reports whether the signal is a BUY or SELL.
func (s TradingSignal) IsActionable() bool {
	return s.Direction == DirectionBuy || s.Direction == DirectionSell
}

// AIPrediction is the black-box output of the AI/ML adapter.
type AIPrediction struct {
	Signal     Direction `json:"signal"`
	Confidence float64   `json:"confidence"`
	RiskScore  float64   `json:"risk_score"`
	Source     string    `json:"source,omitempty"`
}

// NeutralPrediction returns the prediction substituted when the adapter fails.
func NeutralPrediction() AIPrediction {
	return AIPrediction{Signal: DirectionHold, Confidence: 50, RiskScore: 50, Source: "fallback"}
}

// SignalRecord pairs a signal with its position in the journal.
type SignalRecord struct {
	Index  uint64        `json:"index"`
	Signal TradingSignal `json:"signal"`
}
