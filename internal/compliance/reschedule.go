package compliance

import (
	"errors"

	"github.com/stridecoach/stridecoach/internal/plans"
)

var ErrSessionNotFound = errors.New("session not found")

const rescheduledDayDescription = "Rescheduled recovery day"

type Move struct {
	MovedFrom string `json:"movedFrom"`
	MovedTo   string `json:"movedTo"`
}

// Reschedule moves the planned session at the given day index of the
// plan's first week to the next rest day of the same week. When the
// week has no rest day left, the session lands on the last day of the
// week, overwriting whatever was there: rescheduling never fails once
// the session exists, it degrades to overwriting the last slot.
//
// The plan is treated as a value; the returned plan is a fresh document
// with a copied first week, so the caller persists it with a whole
// document replace.
func Reschedule(plan plans.Plan, sessionIndex int) (plans.Plan, Move, error) {
	week, err := plan.FirstWeek()
	if err != nil {
		return plans.Plan{}, Move{}, ErrSessionNotFound
	}

	if sessionIndex < 0 || sessionIndex >= len(week.Days) {
		return plans.Plan{}, Move{}, ErrSessionNotFound
	}
	session := week.Days[sessionIndex]
	if session.Classify() == plans.ClassRest {
		return plans.Plan{}, Move{}, ErrSessionNotFound
	}

	// first rest day after the session, else the last day of the week
	target := len(week.Days) - 1
	for i := sessionIndex + 1; i < len(week.Days); i++ {
		if week.Days[i].Classify() == plans.ClassRest {
			target = i
			break
		}
	}

	days := make([]plans.Day, len(week.Days))
	copy(days, week.Days)

	days[sessionIndex] = plans.Day{
		Day:         session.Day,
		Type:        plans.TypeRest,
		Description: rescheduledDayDescription,
		Rest:        true,
	}
	days[target] = plans.Day{
		Day:         days[target].Day,
		Type:        session.Type,
		TargetMiles: session.TargetMiles,
		Description: session.Description + " (rescheduled)",
	}

	weeks := make([]plans.Week, len(plan.Weeks))
	copy(weeks, plan.Weeks)
	weeks[0].Days = days

	updated := plan
	updated.Weeks = weeks

	return updated, Move{
		MovedFrom: session.Day,
		MovedTo:   days[target].Day,
	}, nil
}
