package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts wall time so run timestamps are testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

func NewSystemClock() Clock {
	return systemClock{}
}

// Module provides the system clock.
var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)
