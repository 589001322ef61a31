package compliance

import (
	"math"

	"github.com/stridecoach/stridecoach/internal/activities"
	"github.com/stridecoach/stridecoach/internal/dates"
	"github.com/stridecoach/stridecoach/internal/plans"
)

// dateTolerance is how many days a logged activity may drift from its
// planned date and still count, to cover late-night and early-morning
// logging.
const dateTolerance = 1

type PlannedSession struct {
	Index       int               `json:"index"`
	Day         string            `json:"day"`
	Date        string            `json:"date"`
	Type        plans.SessionType `json:"type"`
	TargetMiles float64           `json:"targetMiles"`
	Kind        activities.Kind   `json:"kind"`
}

type Streak struct {
	Current int `json:"current"`
	Best    int `json:"best"`
}

type Snapshot struct {
	Planned   int              `json:"planned"`
	Completed int              `json:"completed"`
	Score     int              `json:"score"`
	Missed    []PlannedSession `json:"missed"`
	Streak    Streak           `json:"streak"`
}

// EmptySnapshot is what a user without a (usable) plan gets. Absence of
// a plan is a normal state for a new user, not an error.
func EmptySnapshot() Snapshot {
	return Snapshot{Missed: []PlannedSession{}}
}

// PlannedSessions lists the non-rest days of the plan's first week
// whose date, anchored to the given week start, falls in
// [weekStart, weekEnd). Days with unrecognized labels are skipped.
func PlannedSessions(plan *plans.Plan, weekStart, weekEnd string) ([]PlannedSession, error) {
	week, err := plan.FirstWeek()
	if err != nil {
		return nil, err
	}

	var planned []PlannedSession
	for i, day := range week.Days {
		if day.Classify() == plans.ClassRest {
			continue
		}
		date := plans.DateFor(weekStart, day.Day)
		if date == "" {
			continue
		}
		if date < weekStart || date >= weekEnd {
			continue
		}
		planned = append(planned, PlannedSession{
			Index:       i,
			Day:         day.Day,
			Date:        date,
			Type:        day.Type,
			TargetMiles: day.TargetMiles,
			Kind:        day.Kind(),
		})
	}
	return planned, nil
}

// Compute derives the compliance snapshot for one week. It is a pure
// function of its inputs; runs and lifts must be in stable date
// ascending order so that the greedy matching stays deterministic.
func Compute(
	plan *plans.Plan,
	runs, lifts []activities.Activity,
	weekStart, weekEnd, today string,
) Snapshot {
	planned, err := PlannedSessions(plan, weekStart, weekEnd)
	if err != nil {
		return EmptySnapshot()
	}

	matched := matchSessions(planned, runs, lifts)

	snapshot := Snapshot{
		Planned: len(planned),
		Missed:  []PlannedSession{},
	}
	for i, session := range planned {
		if matched[i] {
			snapshot.Completed++
			snapshot.Streak.Current++
			if snapshot.Streak.Current > snapshot.Streak.Best {
				snapshot.Streak.Best = snapshot.Streak.Current
			}
			continue
		}

		snapshot.Streak.Current = 0
		// future unmet sessions are not missed, just not yet due
		if session.Date < today {
			snapshot.Missed = append(snapshot.Missed, session)
		}
	}

	if snapshot.Planned > 0 {
		snapshot.Score = int(math.Round(
			float64(snapshot.Completed) / float64(snapshot.Planned) * 100,
		))
	}

	return snapshot
}

// matchSessions pairs planned sessions with activity records of the
// matching kind, greedy first-fit in day order: the first unused record
// within the date tolerance wins. A record never satisfies two planned
// sessions. First-fit keeps the result deterministic; with a handful of
// sessions per week an optimal assignment buys nothing.
func matchSessions(planned []PlannedSession, runs, lifts []activities.Activity) []bool {
	matched := make([]bool, len(planned))
	usedRuns := make([]bool, len(runs))
	usedLifts := make([]bool, len(lifts))

	for i, session := range planned {
		candidates := runs
		used := usedRuns
		if session.Kind == activities.KindLift {
			candidates = lifts
			used = usedLifts
		}

		for j, record := range candidates {
			if used[j] {
				continue
			}
			if !dates.WithinDays(session.Date, record.Date, dateTolerance) {
				continue
			}
			used[j] = true
			matched[i] = true
			break
		}
	}

	return matched
}
