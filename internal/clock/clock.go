// Package clock abstracts time so the exercise sequencer can be driven by
// the wall clock in the app and by a virtual clock in tests.
package clock

import (
	"time"
)

// Timer is a pending callback
type Timer interface {
	// Stop prevents the callback from running. It reports false if the
	// callback already ran or the timer was already stopped.
	Stop() bool
}

// Clock tells the time and schedules callbacks
type Clock interface {
	Now() time.Time

	// AfterFunc runs fn in its own goroutine (Real) or from Advance
	// (Virtual) once d has elapsed
	AfterFunc(d time.Duration, fn func()) Timer
}

// Real returns the wall clock
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
