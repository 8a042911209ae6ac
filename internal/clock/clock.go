// Package clock abstracts scheduled callbacks so countdowns can run on a
// virtual clock in tests.
package clock

import "time"

// Timer represents a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock provides time-related operations.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

// System is the wall-clock implementation backed by the time package.
var System Clock = systemClock{}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (systemClock) Now() time.Time {
	return time.Now()
}
