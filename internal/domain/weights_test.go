package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWeights_Valid(t *testing.T) {
	w := DefaultWeights()
	require.NoError(t, w.Validate())

	assert.Equal(t, 14, w.Indicators.RSIPeriod)
	assert.Equal(t, 60.0, w.Indicators.AIConfidenceThreshold)
	assert.True(t, w.Risk.StopLossFraction().Equal(decimal.RequireFromString("0.02")))
	assert.True(t, w.Risk.TakeProfitFraction().Equal(decimal.RequireFromString("0.04")))
}

func TestWeightConfiguration_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(w *WeightConfiguration)
	}{
		{"zero weight", func(w *WeightConfiguration) { w.RSIWeight = 0 }},
		{"negative weight", func(w *WeightConfiguration) { w.MultiTimeframeWeight = -1 }},
		{"slow macd not above fast", func(w *WeightConfiguration) { w.Indicators.MACDSlow = 12 }},
		{"overbought below fifty", func(w *WeightConfiguration) { w.Indicators.RSIOverbought = 40 }},
		{"long ma not above short", func(w *WeightConfiguration) { w.Indicators.MALong = 10 }},
		{"stop loss percent", func(w *WeightConfiguration) { w.Risk.StopLossPercent = 0 }},
		{"ai threshold above 100", func(w *WeightConfiguration) { w.Indicators.AIConfidenceThreshold = 120 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := DefaultWeights()
			tt.mutate(&w)
			assert.Error(t, w.Validate())
		})
	}
}
