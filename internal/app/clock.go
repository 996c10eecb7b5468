package app

import "time"

// Clock supplies the current time. Injected so that auto-send eligibility and
// month-boundary checks are testable (time comparisons never call time.Now
// directly in the services).
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }
