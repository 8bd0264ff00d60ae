// Package timer derives remaining attempt time purely from the
// server-recorded start timestamp and the blueprint duration. Recomputing
// after a page reload re-reads the same startedAt, so elapsed time cannot be
// reset or extended by client-side manipulation.
package timer

import "time"

// Remaining returns the whole seconds left for an attempt, never negative.
func Remaining(durationMinutes int, startedAt, now time.Time) int {
	total := durationMinutes * 60
	elapsed := int(now.Sub(startedAt) / time.Second)
	remaining := total - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether the attempt's time is up.
func Expired(durationMinutes int, startedAt, now time.Time) bool {
	return Remaining(durationMinutes, startedAt, now) == 0
}

// Elapsed returns the whole seconds spent on the attempt, clamped to the
// attempt duration. This is the server-derived value recorded at submit;
// client-reported figures are never trusted.
func Elapsed(durationMinutes int, startedAt, now time.Time) int {
	total := durationMinutes * 60
	elapsed := int(now.Sub(startedAt) / time.Second)
	if elapsed < 0 {
		return 0
	}
	if elapsed > total {
		return total
	}
	return elapsed
}
