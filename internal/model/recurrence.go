package model

import (
	"errors"
	"fmt"
	"time"
)

type RecurrenceKind string

const (
	RecurrenceNone    RecurrenceKind = "unica"
	RecurrenceDaily   RecurrenceKind = "diaria"
	RecurrenceWeekly  RecurrenceKind = "semanal"
	RecurrenceMonthly RecurrenceKind = "mensual"
)

var (
	ErrInvalidRecurrenceKind = errors.New("model: invalid recurrence kind")
	ErrInvalidInterval       = errors.New("model: invalid recurrence interval")
	ErrNoRecurrence          = errors.New("model: rule has no recurrence")
)

// RecurrenceRule is the single representation of a programada's repetition.
// The previous system stored this as loose string columns with drifting names;
// here it is always a kind plus an interval count (default 1).
type RecurrenceRule struct {
	Kind     RecurrenceKind
	Interval int
}

func (r RecurrenceRule) Validate() error {
	switch r.Kind {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRecurrenceKind, r.Kind)
	}
	if r.Interval < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidInterval, r.Interval)
	}
	return nil
}

func (r RecurrenceRule) Repeats() bool {
	return r.Kind != RecurrenceNone && r.Kind != ""
}

func (r RecurrenceRule) interval() int {
	if r.Interval <= 0 {
		return 1
	}
	return r.Interval
}

// Next computes the due time of the occurrence following one due at dueAt.
// The clock component of dueAt is preserved exactly. For rules without
// recurrence it returns ErrNoRecurrence; callers treat that as "no successor",
// not as a fault.
func (r RecurrenceRule) Next(dueAt time.Time) (time.Time, error) {
	if err := r.Validate(); err != nil {
		return time.Time{}, err
	}
	switch r.Kind {
	case RecurrenceNone:
		return time.Time{}, ErrNoRecurrence
	case RecurrenceDaily:
		return dueAt.AddDate(0, 0, r.interval()), nil
	case RecurrenceWeekly:
		return dueAt.AddDate(0, 0, 7*r.interval()), nil
	case RecurrenceMonthly:
		return addMonthsClamped(dueAt, r.interval()), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidRecurrenceKind, r.Kind)
	}
}

// addMonthsClamped advances by whole calendar months, clamping the day of
// month to the last day of the target month instead of letting AddDate
// overflow into the following month (Jan 31 + 1 month = Feb 28/29, not Mar 3).
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	firstOfTarget = firstOfTarget.AddDate(0, months, 0)

	ty, tm, _ := firstOfTarget.Date()
	last := daysInMonth(ty, tm)
	if d > last {
		d = last
	}
	return time.Date(ty, tm, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(y int, m time.Month) int {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
}
