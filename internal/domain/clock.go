package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze time via SetClock.
// It stamps query times and generated-at labels.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current time from the package clock.
func Now() time.Time {
	return clock.Now()
}

// ResolveTime returns q.Time, or the current epoch second when it is zero.
func (q Query) ResolveTime() int64 {
	if q.Time != 0 {
		return q.Time
	}
	return clock.Now().Unix()
}
