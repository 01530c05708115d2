package hook

import "sync"

// FakeBackend is an in-memory Backend for tests and for environments where
// no OS hook is available. Events pushed via Emit flow through the manager
// exactly like platform events.
type FakeBackend struct {
	mu      sync.Mutex
	ch      chan Event
	started bool

	// FailStart, when set, is returned from StartHook to simulate a
	// rejected platform registration.
	FailStart error
}

// NewFakeBackend creates a fake hook backend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{}
}

func (f *FakeBackend) StartHook() (<-chan Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailStart != nil {
		return nil, f.FailStart
	}
	f.ch = make(chan Event, subBuffer)
	f.started = true
	return f.ch, nil
}

func (f *FakeBackend) StopHook() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		close(f.ch)
		f.started = false
	}
	return nil
}

// Emit injects an event as if the OS delivered it. Emitting while stopped is
// a no-op.
func (f *FakeBackend) Emit(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		f.ch <- ev
	}
}

// Started reports whether the hook is currently registered.
func (f *FakeBackend) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}
