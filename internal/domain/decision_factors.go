package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// FactorKey names a factor in the decision audit trail.
type FactorKey string

const (
	FactorCandlestickPattern FactorKey = "candlestick_pattern"
	FactorTrend              FactorKey = "trend_analysis"
	FactorMomentum           FactorKey = "momentum_strength"
	FactorRSI                FactorKey = "rsi_analysis"
	FactorMACD               FactorKey = "macd_analysis"
	FactorVolume             FactorKey = "volume_analysis"
	FactorBollinger          FactorKey = "bollinger_bands"
	FactorSupportResistance  FactorKey = "support_resistance"
	FactorAI                 FactorKey = "ai_ml_analysis"
	FactorMultiTimeframe     FactorKey = "multi_timeframe_analysis"
)

// FactorKeys lists every factor key in evaluation order.
var FactorKeys = []FactorKey{
	FactorCandlestickPattern,
	FactorTrend,
	FactorMomentum,
	FactorRSI,
	FactorMACD,
	FactorVolume,
	FactorBollinger,
	FactorSupportResistance,
	FactorAI,
	FactorMultiTimeframe,
}

// Valid reports whether k is one of FactorKeys.
func (k FactorKey) Valid() bool {
	for _, known := range FactorKeys {
		if k == known {
			return true
		}
	}
	return false
}

// Factor is a single entry of the audit trail.
type Factor struct {
	Signal    Signal  `json:"signal"`
	Reasoning string  `json:"reasoning"`
	Weight    float64 `json:"weight"`
}

type factorEntry struct {
	key    FactorKey
	factor Factor
}

// DecisionFactors is the ordered, read-only audit trail of a decision.
type DecisionFactors struct {
	entries []factorEntry
}

// Get returns the factor recorded under key.
func (d DecisionFactors) Get(key FactorKey) (Factor, bool) {
	for _, e := range d.entries {
		if e.key == key {
			return e.factor, true
		}
	}
	return Factor{}, false
}

// Keys returns the recorded keys in insertion order.
func (d DecisionFactors) Keys() []FactorKey {
	keys := make([]FactorKey, len(d.entries))
	for i, e := range d.entries {
		keys[i] = e.key
	}
	return keys
}

// Len returns the number of recorded factors.
func (d DecisionFactors) Len() int {
	return len(d.entries)
}

// Sum returns the total of recorded weights.
func (d DecisionFactors) Sum() float64 {
	var total float64
	for _, e := range d.entries {
		total += e.factor.Weight
	}
	return total
}

// MarshalJSON renders the factors as an object keeping insertion order.
func (d DecisionFactors) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range d.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(e.key))
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(e.factor)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON restores factors; entries are ordered by FactorKeys.
func (d *DecisionFactors) UnmarshalJSON(data []byte) error {
	raw := map[FactorKey]Factor{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "decode decision factors")
	}
	for key := range raw {
		if !key.Valid() {
			return errors.Errorf("unknown decision factor %q", key)
		}
	}
	entries := make([]factorEntry, 0, len(raw))
	for _, key := range FactorKeys {
		if f, ok := raw[key]; ok {
			entries = append(entries, factorEntry{key: key, factor: f})
		}
	}
	d.entries = entries
	return nil
}

// FactorsBuilder accumulates factors while a decision is evaluated.
type FactorsBuilder struct {
	entries []factorEntry
	total   float64
}

// Add records a factor and returns its weight. A key may be recorded once.
func (b *FactorsBuilder) Add(key FactorKey, signal Signal, weight float64, reasoning string, args ...any) float64 {
	if !key.Valid() {
		panic(fmt.Sprintf("unknown decision factor %q", key))
	}
	for _, e := range b.entries {
		if e.key == key {
			panic(fmt.Sprintf("decision factor %q recorded twice", key))
		}
	}
	if len(args) > 0 {
		reasoning = fmt.Sprintf(reasoning, args...)
	}
	b.entries = append(b.entries, factorEntry{
		key:    key,
		factor: Factor{Signal: signal, Reasoning: reasoning, Weight: weight},
	})
	b.total += weight
	return weight
}

// Total returns the running sum of recorded weights.
func (b *FactorsBuilder) Total() float64 {
	return b.total
}

// Build returns an independent copy of the recorded factors.
func (b *FactorsBuilder) Build() DecisionFactors {
	entries := make([]factorEntry, len(b.entries))
	copy(entries, b.entries)
	return DecisionFactors{entries: entries}
}
