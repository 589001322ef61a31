package load

import "math"

type Tier string

const (
	TierOptimal  Tier = "optimal"
	TierElevated Tier = "elevated"
	TierHigh     Tier = "high"
	TierDanger   Tier = "danger"
)

const (
	// hardEffortMin is the perceived effort at which a run counts as a
	// hard day.
	hardEffortMin = 7
	// hardStreakDangerMin: three hard days back to back already
	// warrant an immediate recovery day.
	hardStreakDangerMin = 3
)

var recommendations = map[Tier]string{
	TierDanger:   "Take an immediate recovery day. Your load jumped too fast to adapt safely.",
	TierHigh:     "Reduce the next two sessions. Keep the volume, drop the intensity.",
	TierElevated: "Keep easy days easy. Watch how the legs respond before adding more.",
	TierOptimal:  "",
}

type Snapshot struct {
	ThisWeekMiles   float64 `json:"thisWeekMiles"`
	LastWeekMiles   float64 `json:"lastWeekMiles"`
	IncreasePercent float64 `json:"increasePercent"`
	MaxHardStreak   int     `json:"maxHardStreak"`
	Tier            Tier    `json:"tier"`
	Recommendation  string  `json:"recommendation"`
}

// Analyze classifies the current training load. Pure function: all
// history comes in through the arguments, efforts must be in date
// ascending order.
func Analyze(thisWeekMiles, lastWeekMiles float64, efforts []int) Snapshot {
	increase := increasePercent(thisWeekMiles, lastWeekMiles)
	hardStreak := maxHardStreak(efforts)
	tier := tierFor(increase, hardStreak)

	return Snapshot{
		ThisWeekMiles:   thisWeekMiles,
		LastWeekMiles:   lastWeekMiles,
		IncreasePercent: increase,
		MaxHardStreak:   hardStreak,
		Tier:            tier,
		Recommendation:  recommendations[tier],
	}
}

// increasePercent treats a return from a zero-mileage week as a full
// 100% jump, so a comeback after a break never slips through unflagged.
func increasePercent(thisWeek, lastWeek float64) float64 {
	if lastWeek > 0 {
		return math.Round((thisWeek-lastWeek)/lastWeek*100*100) / 100
	}
	if thisWeek > 0 {
		return 100
	}
	return 0
}

func maxHardStreak(efforts []int) int {
	var best, current int
	for _, effort := range efforts {
		if effort >= hardEffortMin {
			current++
			if current > best {
				best = current
			}
			continue
		}
		current = 0
	}
	return best
}

// tierFor walks the decision list most severe first; the first matching
// tier wins.
func tierFor(increase float64, hardStreak int) Tier {
	switch {
	case increase > 30 || hardStreak >= hardStreakDangerMin:
		return TierDanger
	case increase > 20:
		return TierHigh
	case increase > 10:
		return TierElevated
	default:
		return TierOptimal
	}
}
