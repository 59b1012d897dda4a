// Package clock provides an injectable time source so batch passes can run
// against a single frozen "now".
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// NewSystem returns a Clock backed by the system clock in UTC.
func NewSystem() Clock {
	return systemClock{}
}
