package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts time for components that stamp records or synthesize
// time-derived identifiers, so tests can run deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func NewSystemClock() Clock { return systemClock{} }

var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)
