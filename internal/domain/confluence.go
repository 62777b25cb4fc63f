package domain

// IndicatorFamily is a group of indicators voting in the confluence analysis.
type IndicatorFamily string

const (
	FamilyRSI      IndicatorFamily = "rsi"
	FamilyMACD     IndicatorFamily = "macd"
	FamilyTrend    IndicatorFamily = "trend"
	FamilyPattern  IndicatorFamily = "pattern"
	FamilyMomentum IndicatorFamily = "momentum"
)

// IndicatorFamilies lists the families in evaluation order.
var IndicatorFamilies = []IndicatorFamily{FamilyRSI, FamilyMACD, FamilyTrend, FamilyPattern, FamilyMomentum}

// FamilyWeight returns the static weight of a family in the overall confluence score.
func FamilyWeight(f IndicatorFamily) float64 {
	switch f {
	case FamilyTrend:
		return 2.0
	case FamilyMACD:
		return 1.5
	default:
		return 1.0
	}
}

// TimeframeVote is the vote of a single timeframe for one family.
type TimeframeVote struct {
	Signal Signal  `json:"signal"`
	Weight float64 `json:"weight"`
}

// FamilyConfluence is the weighted agreement of one family across timeframes.
type FamilyConfluence struct {
	Score  float64                  `json:"score"`
	Signal Signal                   `json:"signal"`
	Votes  map[string]TimeframeVote `json:"votes"`
}

// ConfluenceSignal aggregates all families across all timeframes.
type ConfluenceSignal struct {
	Families   map[IndicatorFamily]FamilyConfluence `json:"families"`
	Votes      map[string]TimeframeVote             `json:"timeframes"`
	Score      float64                              `json:"score"`
	Signal     Signal                               `json:"signal"`
	Strong     bool                                 `json:"strong"`
	Strength   float64                              `json:"strength"`
	Confidence float64                              `json:"confidence"`
}

// Label returns the signal with its STRONG_ prefix when applicable.
func (c ConfluenceSignal) Label() string {
	if c.Strong && c.Signal != SignalNeutral {
		return "STRONG_" + string(c.Signal)
	}
	return string(c.Signal)
}

// NeutralConfluence returns the result used when no timeframe produced data.
func NeutralConfluence() ConfluenceSignal {
	return ConfluenceSignal{
		Families:   map[IndicatorFamily]FamilyConfluence{},
		Votes:      map[string]TimeframeVote{},
		Signal:     SignalNeutral,
		Confidence: 50,
	}
}
