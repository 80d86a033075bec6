package service

import "time"

// Clock supplies the current instant. Injected so every operation sees an
// explicit "now" and tests stay deterministic.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// SystemClock returns a Clock backed by the wall clock, in UTC.
func SystemClock() Clock {
	return systemClock{}
}
