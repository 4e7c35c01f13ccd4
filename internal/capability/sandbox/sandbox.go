package sandbox

import (
	"time"

	"github.com/BTreeMap/FieldOps/internal/capability"
)

// Fixture groups one instance of every sandbox capability.
type Fixture struct {
	Auth        *Auth
	SDK         *SDK
	Remote      *Remote
	DeepLinks   *DeepLinks
	Network     *Network
	Diagnostics *Recorder
	Clock       *ManualClock
}

// NewFixture builds a fresh, empty set of capabilities.
func NewFixture() *Fixture {
	auth := NewAuth()
	return &Fixture{
		Auth:        auth,
		SDK:         NewSDK(),
		Remote:      NewRemote(auth),
		DeepLinks:   NewDeepLinks(),
		Network:     NewNetwork(),
		Diagnostics: NewRecorder(),
		Clock:       NewManualClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)),
	}
}

// Env wires the fixture with the given persistence. A nil clock keeps the manual clock.
func (f *Fixture) Env(p capability.Persistence, clock capability.Clock) capability.Env {
	if clock == nil {
		clock = f.Clock
	}
	return capability.Env{
		Auth:           f.Auth,
		SDK:            f.SDK,
		Remote:         f.Remote,
		DeepLinks:      f.DeepLinks,
		Persistence:    p,
		Diagnostics:    f.Diagnostics,
		Network:        f.Network,
		Clock:          clock,
		DeepLinkWindow: capability.DefaultDeepLinkWindow,
	}
}
