package plans

import (
	"errors"

	"github.com/stridecoach/stridecoach/internal/activities"
	"github.com/stridecoach/stridecoach/internal/dates"
)

var (
	ErrPlanNotFound     = errors.New("plan not found")
	ErrPlanExists       = errors.New("plan already exists")
	ErrInvalidPlanShape = errors.New("invalid plan shape")
)

type SessionType string

const (
	TypeEasy       SessionType = "easy"
	TypeTempo      SessionType = "tempo"
	TypeLong       SessionType = "long"
	TypeIntervals  SessionType = "intervals"
	TypeRecovery   SessionType = "recovery"
	TypeRest       SessionType = "rest"
	TypeStrength   SessionType = "strength"
	TypeCrossTrain SessionType = "cross_train"
)

// Class is what a planned day counts as when matched against the
// activity log.
type Class string

const (
	ClassRest Class = "rest"
	ClassRun  Class = "run"
	ClassLift Class = "lift"
)

// DayLabels is the fixed weekly order, Monday first.
var DayLabels = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

type Day struct {
	Day         string      `json:"day"`
	Type        SessionType `json:"type"`
	TargetMiles float64     `json:"targetMiles"`
	Description string      `json:"description"`
	Rest        bool        `json:"rest"`
}

type Week struct {
	Number     int     `json:"number"`
	Theme      string  `json:"theme"`
	TotalMiles float64 `json:"totalMiles"`
	Days       []Day   `json:"days"`
}

type Plan struct {
	ID        string `json:"id"`
	UserID    int    `json:"userId"`
	WeekStart string `json:"weekStart"`
	Weeks     []Week `json:"weeks"`
}

// Classify maps a planned day onto the activity stream it is matched
// against. Unknown session types count as runs, so an unexpected type
// coming from the plan generator keeps being tracked instead of being
// silently dropped.
func (d Day) Classify() Class {
	if d.Rest || d.Type == TypeRest {
		return ClassRest
	}
	if d.Type == TypeStrength || d.Type == TypeCrossTrain {
		return ClassLift
	}
	return ClassRun
}

// Kind is the activity kind a non-rest day is matched against.
// Must not be called for rest days.
func (d Day) Kind() activities.Kind {
	if d.Classify() == ClassLift {
		return activities.KindLift
	}
	return activities.KindRun
}

// DateFor maps a day label onto a concrete date, Mon = weekStart,
// Sun = weekStart+6. Unrecognized labels yield an empty string and the
// caller must skip the day.
func DateFor(weekStart, dayLabel string) string {
	for i, label := range DayLabels {
		if label == dayLabel {
			return dates.AddDays(weekStart, i)
		}
	}
	return ""
}

// FirstWeek returns the plan's week index 0, the only week compliance
// is tracked against. A missing or malformed week (not exactly 7 days)
// is ErrInvalidPlanShape.
func (p *Plan) FirstWeek() (*Week, error) {
	if p == nil || len(p.Weeks) == 0 {
		return nil, ErrInvalidPlanShape
	}
	week := &p.Weeks[0]
	if len(week.Days) != 7 {
		return nil, ErrInvalidPlanShape
	}
	return week, nil
}
