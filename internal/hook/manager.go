package hook

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// subBuffer is the per-subscriber channel depth. Human input runs at tens of
// events per second, so 256 absorbs any realistic burst; a subscriber that
// falls further behind loses events rather than blocking the pump.
const subBuffer = 256

// Manager owns the process-wide hook backend and enforces the one-session-
// per-device-class invariant. Events from the backend are fanned out to
// subscribers on the manager's own goroutine, never on the OS dispatch
// context.
type Manager struct {
	backend Backend
	logger  *slog.Logger

	mu      sync.Mutex
	held    DeviceClass
	subs    map[int]chan Event
	nextSub int
	done    chan struct{}

	dropped atomic.Uint64
}

// NewManager creates a manager over the given platform backend.
func NewManager(backend Backend, logger *slog.Logger) *Manager {
	return &Manager{
		backend: backend,
		logger:  logger.With("component", "hook"),
		subs:    make(map[int]chan Event),
	}
}

// Session is an acquired hook registration for a set of device classes.
// Stop releases it; Stop is idempotent and must run on every exit path.
type Session struct {
	mgr     *Manager
	classes DeviceClass
	once    sync.Once
}

// Classes returns the device classes this session covers.
func (s *Session) Classes() DeviceClass { return s.classes }

// Stop releases the session. The underlying OS hook is torn down when the
// last session is released.
func (s *Session) Stop() {
	s.once.Do(func() { s.mgr.release(s.classes) })
}

// Acquire registers a hook session for the requested device classes. It
// fails with ErrHookActive if any requested class is already held, and with
// ErrHookRegistration if the platform rejects the hook.
func (m *Manager) Acquire(classes DeviceClass) (*Session, error) {
	if classes == 0 {
		return nil, fmt.Errorf("acquire hook: no device classes requested")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if overlap := m.held & classes; overlap != 0 {
		return nil, fmt.Errorf("%w for %s", ErrHookActive, overlap)
	}

	if m.held == 0 {
		events, err := m.backend.StartHook()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHookRegistration, err)
		}
		m.done = make(chan struct{})
		go m.pump(events, m.done)
		m.logger.Info("hook registered", "classes", classes.String())
	}

	m.held |= classes
	return &Session{mgr: m, classes: classes}, nil
}

func (m *Manager) release(classes DeviceClass) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.held &^= classes
	if m.held != 0 {
		return
	}

	if err := m.backend.StopHook(); err != nil {
		m.logger.Error("hook unregister", "err", err)
	}
	close(m.done)
	m.done = nil
	m.logger.Info("hook released")
}

// Subscribe returns a bounded event channel and a cancel function. The
// channel only carries events for device classes currently held by a
// session.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan Event, subBuffer)
	m.subs[id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Active reports whether any hook session currently holds the given class.
func (m *Manager) Active(class DeviceClass) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held&class != 0
}

// Dropped returns the number of events discarded because a subscriber
// channel was full.
func (m *Manager) Dropped() uint64 { return m.dropped.Load() }

// pump moves backend events to subscribers. Sends never block: a full
// subscriber loses the event and the drop is counted.
func (m *Manager) pump(events <-chan Event, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.dispatch(ev)
		}
	}
}

func (m *Manager) dispatch(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.held&ev.Kind.Class() == 0 {
		return
	}
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
			if n := m.dropped.Add(1); n%100 == 1 {
				m.logger.Warn("subscriber behind, dropping events", "dropped", n)
			}
		}
	}
}
