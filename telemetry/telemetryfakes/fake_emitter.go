package telemetryfakes

import (
	"sync"

	"github.com/OliverPistillo/Doflow-PaaS-sub003/telemetry"
)

var _ telemetry.Emitter = (*FakeEmitter)(nil)

// FakeEmitter records emitted events for assertions.
type FakeEmitter struct {
	events []telemetry.Event
	lock   sync.Mutex
}

func NewFakeEmitter() *FakeEmitter {
	return &FakeEmitter{}
}

func (f *FakeEmitter) Emit(event telemetry.Event) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.events = append(f.events, event)
}

func (f *FakeEmitter) Events() []telemetry.Event {
	f.lock.Lock()
	defer f.lock.Unlock()
	out := make([]telemetry.Event, len(f.events))
	copy(out, f.events)
	return out
}
