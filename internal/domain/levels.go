package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LevelType is the side of a price level relative to the current price.
type LevelType string

const (
	LevelSupport    LevelType = "SUPPORT"
	LevelResistance LevelType = "RESISTANCE"
)

// SupportResistanceLevel is a consolidated price level.
type SupportResistanceLevel struct {
	Price     decimal.Decimal `json:"price"`
	Type      LevelType       `json:"type"`
	Strength  int             `json:"strength"`
	Timeframe string          `json:"timeframe"`
	Touches   int             `json:"touches"`
	LastTouch time.Time       `json:"last_touch"`
}

// PricePosition describes where the current price sits between the nearest levels.
type PricePosition string

const (
	PositionNearSupport        PricePosition = "near_support"
	PositionNearResistance     PricePosition = "near_resistance"
	PositionMiddleRange        PricePosition = "middle_range"
	PositionAboveAllResistance PricePosition = "above_all_resistance"
	PositionBelowAllSupport    PricePosition = "below_all_support"
	PositionNoClearZone        PricePosition = "no_clear_zone"
)

// LevelStatus is the outcome of a support/resistance analysis.
type LevelStatus string

const (
	LevelStatusOK               LevelStatus = "ok"
	LevelStatusInsufficientData LevelStatus = "insufficient_data"
)

// BreakoutPotential is the kind of strong level being tested.
type BreakoutPotential string

const (
	ResistanceTest BreakoutPotential = "resistance_test"
	SupportTest    BreakoutPotential = "support_test"
)

// LevelTest describes a price within the tolerance band of a strong level.
type LevelTest struct {
	Potential      BreakoutPotential      `json:"breakout_potential"`
	SignalStrength int                    `json:"signal_strength"`
	Level          SupportResistanceLevel `json:"level"`
}

// LevelAnalysis is the output of the support/resistance analyzer.
type LevelAnalysis struct {
	Status           LevelStatus              `json:"status"`
	CurrentPrice     decimal.Decimal          `json:"current_price"`
	Levels           []SupportResistanceLevel `json:"levels"`
	NearbySupport    []SupportResistanceLevel `json:"nearby_support"`
	NearbyResistance []SupportResistanceLevel `json:"nearby_resistance"`
	Position         PricePosition            `json:"position"`
	Test             *LevelTest               `json:"trading_signal,omitempty"`
}

// InsufficientLevelAnalysis returns the neutral result used when data is missing.
func InsufficientLevelAnalysis(price decimal.Decimal) LevelAnalysis {
	return LevelAnalysis{
		Status:       LevelStatusInsufficientData,
		CurrentPrice: price,
		Position:     PositionNoClearZone,
	}
}

// NearestSupport returns the closest support level below the price.
func (a LevelAnalysis) NearestSupport() (SupportResistanceLevel, bool) {
	if len(a.NearbySupport) == 0 {
		return SupportResistanceLevel{}, false
	}
	return a.NearbySupport[0], true
}

// NearestResistance returns the closest resistance level above the price.
func (a LevelAnalysis) NearestResistance() (SupportResistanceLevel, bool) {
	if len(a.NearbyResistance) == 0 {
		return SupportResistanceLevel{}, false
	}
	return a.NearbyResistance[0], true
}
