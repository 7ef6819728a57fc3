package ports

import "time"

// Clock abstracts wall-clock access so session boundaries and cadences are
// deterministic in tests. Production uses RealClock; tests use a manual one.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock backed by time.Now.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
