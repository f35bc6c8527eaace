package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze time via SetClock.
// Production code uses the real clock; tests inject a fake for deterministic output.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for timestamps and signal dates. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current time of the domain clock in UTC.
func Now() time.Time {
	return clock.Now().UTC()
}

// Today returns midnight UTC of the current domain-clock day.
func Today() time.Time {
	return startOfDay(Now())
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayOf returns midnight UTC of the day containing t.
func DayOf(t time.Time) time.Time {
	return startOfDay(t)
}
