package model

import "time"

type HeatLevel string

const (
	HeatBurning HeatLevel = "burning"
	HeatHot     HeatLevel = "hot"
	HeatWarm    HeatLevel = "warm"
	HeatCool    HeatLevel = "cool"
	HeatCold    HeatLevel = "cold"
)

// heatOrder ranks heat levels from hottest (0) to coldest, used for decay and
// for comparisons like fence.maxHeatLevel >= record.heatLevel.
var heatOrder = map[HeatLevel]int{
	HeatBurning: 0,
	HeatHot:     1,
	HeatWarm:    2,
	HeatCool:    3,
	HeatCold:    4,
}

// HeatValue maps a heat level to the numeric value used by recognition rolls
// and fence daily-capacity accounting. Monotonic ordering is what the spec
// guarantees; these are the implementation-precise values this rewrite picked.
func HeatValue(h HeatLevel) int {
	switch h {
	case HeatBurning:
		return 80
	case HeatHot:
		return 60
	case HeatWarm:
		return 40
	case HeatCool:
		return 20
	case HeatCold:
		return 5
	default:
		return 0
	}
}

// HotterOrEqual reports whether a is at least as hot as b (lower cools slower).
func HotterOrEqual(a, b HeatLevel) bool {
	return heatOrder[a] <= heatOrder[b]
}

// StepCooler returns the next cooler heat level, or the same level if already cold.
func StepCooler(h HeatLevel) HeatLevel {
	switch h {
	case HeatBurning:
		return HeatHot
	case HeatHot:
		return HeatWarm
	case HeatWarm:
		return HeatCool
	case HeatCool:
		return HeatCold
	default:
		return HeatCold
	}
}

type TheftRecord struct {
	ItemID          string    `json:"itemId"`
	StolenFrom      string    `json:"stolenFrom"`
	StolenBy        string    `json:"stolenBy"`
	StolenLocation  string    `json:"stolenLocation,omitempty"`
	Witnesses       []string  `json:"witnesses,omitempty"`
	HeatLevel       HeatLevel `json:"heatLevel"`
	ReportedToGuards bool     `json:"reportedToGuards"`
	Bounty          int       `json:"bounty"`
	CreatedAt       time.Time `json:"createdAt"`
}

type Fence struct {
	NPCID               string    `json:"npcId"`
	FactionID           string    `json:"factionId,omitempty"`
	BuyRate             float64   `json:"buyRate"`
	MaxHeatLevel        HeatLevel `json:"maxHeatLevel"`
	DailyHeatCapacity   int       `json:"dailyHeatCapacity"`
	DailyHeatUsed       int       `json:"dailyHeatUsed"`
	Specializations     []string  `json:"specializations,omitempty"`
	CooldownDays        int       `json:"cooldownDays"`
}
