// Package timemath holds the elapsed/remaining time arithmetic shared by
// pedidos and programadas. All functions are pure; direction semantics are
// the caller's concern.
package timemath

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidTimestamp = errors.New("timemath: invalid timestamp")

// Duration is a wall-clock difference split into display components.
// Hours is always < 24 and Minutes < 60.
type Duration struct {
	Days    int
	Hours   int
	Minutes int
}

func (d Duration) IsZero() bool {
	return d.Days == 0 && d.Hours == 0 && d.Minutes == 0
}

// String renders "{d}d {h}h {m}m", dropping zero-valued leading components.
// Minutes always render, so a zero duration is "0m".
func (d Duration) String() string {
	parts := make([]string, 0, 3)
	if d.Days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", d.Days))
	}
	if d.Hours > 0 || d.Days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", d.Hours))
	}
	parts = append(parts, fmt.Sprintf("%dm", d.Minutes))
	return strings.Join(parts, " ")
}

// ElapsedBetween splits the absolute difference between start and end into
// whole days, remaining hours and remaining minutes. Components are never
// negative regardless of argument order.
func ElapsedBetween(start, end time.Time) Duration {
	diff := end.Sub(start)
	if diff < 0 {
		diff = -diff
	}
	totalMinutes := int(diff / time.Minute)
	return Duration{
		Days:    totalMinutes / (24 * 60),
		Hours:   (totalMinutes % (24 * 60)) / 60,
		Minutes: totalMinutes % 60,
	}
}

// FormatDuration is a convenience wrapper over Duration.String.
func FormatDuration(d Duration) string {
	return d.String()
}

// FromMinutes splits a minute count into display components. Negative input
// is treated as its magnitude.
func FromMinutes(minutes int) Duration {
	if minutes < 0 {
		minutes = -minutes
	}
	return Duration{
		Days:    minutes / (24 * 60),
		Hours:   (minutes % (24 * 60)) / 60,
		Minutes: minutes % 60,
	}
}

// MinutesBetween returns b - a in whole minutes, truncated toward zero.
// Positive means b is after a.
func MinutesBetween(a, b time.Time) int {
	return int(b.Sub(a) / time.Minute)
}

// Layouts accepted by ParseTimestamp, tried in order. The store writes
// RFC3339; the date/time split forms show up in rows imported from the
// previous system.
var parseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a stored timestamp string. A failure wraps
// ErrInvalidTimestamp so batch callers can skip the record instead of
// aborting the whole evaluation.
func ParseTimestamp(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidTimestamp)
	}
	for _, layout := range parseLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, raw)
}
