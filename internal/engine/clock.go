package engine

import "time"

// Clock supplies wall-clock time to the attempt engine. Injecting it
// keeps every timer derivation deterministic under test.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the production clock.
var SystemClock Clock = systemClock{}
