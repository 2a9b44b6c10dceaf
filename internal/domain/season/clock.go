package season

import "time"

// Clock supplies the wall-clock date used to derive the current season.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant. Useful in tests and for
// replaying history "as of" a given date.
type FixedClock time.Time

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return time.Time(c) }

// CurrentFrom derives the current season from clock. A nil clock falls back
// to SystemClock.
func CurrentFrom(clock Clock) ID {
	if clock == nil {
		clock = SystemClock{}
	}
	return Current(clock.Now())
}
