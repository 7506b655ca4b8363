// Package clock provides a small time abstraction so that freshness-window
// logic can be tested without real time passing.
package clock

import "time"

// Clock returns the current time. Production code uses System; tests inject
// a fixed or advancing fake.
type Clock interface {
	Now() time.Time
}

// System is the real wall clock.
type System struct{}

// Now implements Clock.
func (System) Now() time.Time { return time.Now() }

// Fixed is a Clock pinned to a settable instant.
type Fixed struct {
	T time.Time
}

// Now implements Clock.
func (f *Fixed) Now() time.Time { return f.T }

// Advance moves the fixed clock forward by d.
func (f *Fixed) Advance(d time.Duration) { f.T = f.T.Add(d) }
