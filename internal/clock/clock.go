// Package clock abstracts time so timers in the world loop, flood control
// and the directory retry loop can be driven deterministically in tests.
package clock

import "time"

type Clock interface {
	Now() time.Time
	// After returns a channel that receives once d has elapsed.
	After(d time.Duration) <-chan time.Time
	// AfterFunc calls f once d has elapsed, on an unspecified goroutine
	// (Real) or synchronously inside Advance (Fake).
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer cancels a pending AfterFunc. Stop reports whether the call stopped
// the timer before it fired.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func Real() Clock { return realClock{} }

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
