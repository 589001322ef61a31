package activities

import "time"

type Kind string

const (
	KindRun  Kind = "run"
	KindLift Kind = "lift"
)

func (k Kind) Valid() bool {
	return k == KindRun || k == KindLift
}

// Activity is one completed training session. Date is a local calendar
// date (YYYY-MM-DD), day granularity, no timezone. Effort is the perceived
// effort 1-10 and is set for runs only.
type Activity struct {
	ID              int       `json:"id"`
	UserID          int       `json:"userId"`
	Kind            Kind      `json:"kind"`
	Date            string    `json:"date"`
	DistanceMiles   float64   `json:"distanceMiles"`
	DurationSeconds int       `json:"durationSeconds"`
	Effort          int       `json:"effort,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

type RangeParams struct {
	UserID int
	Kind   Kind
	// [From, To) date interval, both YYYY-MM-DD
	From string
	To   string
}

type ListParams struct {
	UserID int
	Kind   Kind // empty for all kinds
	Page   int
	Size   int
}
