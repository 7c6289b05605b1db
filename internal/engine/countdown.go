package engine

import (
	"fmt"
	"time"
)

// Remaining derives the countdown from the start timestamp and the
// current clock reading instead of accumulating per-tick decrements, so
// tick drift can never skew the deadline. It is non-increasing over any
// tick sequence and clamps at zero.
func (a *Attempt) Remaining() time.Duration {
	return a.remainingAt(a.clock.Now())
}

// Deadline returns the instant the countdown expires.
func (a *Attempt) Deadline() time.Time {
	return a.startedAt.Add(a.duration)
}

func (a *Attempt) remainingAt(now time.Time) time.Duration {
	remaining := a.duration - now.Sub(a.startedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether the countdown has reached zero.
func (a *Attempt) Expired() bool {
	return a.Remaining() == 0
}

// FormatClock renders a duration as MM:SS, or H:MM:SS past the hour.
func FormatClock(d time.Duration) string {
	total := int(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
