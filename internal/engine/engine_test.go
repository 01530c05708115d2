package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/keyforge/keyforge/internal/config"
	"github.com/keyforge/keyforge/internal/hook"
	"github.com/keyforge/keyforge/internal/platform"
	"github.com/keyforge/keyforge/internal/player"
	"github.com/keyforge/keyforge/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nullInjector struct {
	mu    sync.Mutex
	calls int
}

func (n *nullInjector) bump() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return nil
}

func (n *nullInjector) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

func (n *nullInjector) KeyDown(string) error               { return n.bump() }
func (n *nullInjector) KeyUp(string) error                 { return n.bump() }
func (n *nullInjector) TypeText(string) error              { return n.bump() }
func (n *nullInjector) Click(int, int, string, bool) error { return n.bump() }
func (n *nullInjector) MoveMouse(int, int) error           { return n.bump() }
func (n *nullInjector) Scroll(int, int) error              { return n.bump() }

type fixture struct {
	eng     *Engine
	backend *hook.FakeBackend
	inj     *nullInjector
	store   store.Store
	cfg     *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.NewBoltStore(filepath.Join(t.TempDir(), "scripts.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	backend := hook.NewFakeBackend()
	inj := &nullInjector{}
	cfg := config.Default()
	provider := &platform.Provider{Injector: inj, Hooker: backend}

	return &fixture{
		eng:     New(provider, st, cfg, testLogger()),
		backend: backend,
		inj:     inj,
		store:   st,
		cfg:     cfg,
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestRecordingFlow(t *testing.T) {
	f := newFixture(t)

	s, err := f.eng.StartRecording("smoke")
	if err != nil {
		t.Fatal(err)
	}
	if !f.eng.Recording() {
		t.Fatal("engine must report an active recording")
	}
	if !f.backend.Started() {
		t.Fatal("hook backend must be registered while recording")
	}

	now := time.Now()
	f.backend.Emit(hook.Event{Kind: hook.KeyDown, Key: "a", When: now})
	f.backend.Emit(hook.Event{Kind: hook.KeyUp, Key: "a", When: now.Add(50 * time.Millisecond)})
	f.backend.Emit(hook.Event{Kind: hook.MouseDown, Button: "left", X: 3, Y: 4, When: now.Add(100 * time.Millisecond)})

	waitFor(t, "events to reach the recorder", func() bool { return f.eng.RecordedActions() >= 3 })

	saved, err := f.eng.StopRecording()
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID != s.ID {
		t.Errorf("saved id = %s, want %s", saved.ID, s.ID)
	}
	if saved.Len() != 3 {
		t.Errorf("actions = %d, want 3", saved.Len())
	}

	// The recording must be in the store.
	got, err := f.store.Load(s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "smoke" || got.Len() != 3 {
		t.Errorf("stored %q with %d actions", got.Name, got.Len())
	}
}

func TestStartRecording_DefaultName(t *testing.T) {
	f := newFixture(t)
	s, err := f.eng.StartRecording("")
	if err != nil {
		t.Fatal(err)
	}
	if s.Name == "" {
		t.Error("unnamed recordings must get a generated name")
	}
	if _, err := f.eng.StopRecording(); err != nil {
		t.Fatal(err)
	}
}

func TestStartRecording_Twice(t *testing.T) {
	f := newFixture(t)
	if _, err := f.eng.StartRecording("one"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.eng.StartRecording("two"); err == nil {
		t.Error("expected error for a second concurrent recording")
	}
	if _, err := f.eng.StopRecording(); err != nil {
		t.Fatal(err)
	}
}

func TestStopRecording_Idle(t *testing.T) {
	f := newFixture(t)
	if _, err := f.eng.StopRecording(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("err = %v, want ErrNotRecording", err)
	}
}

func TestStartRecording_HookFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.backend.FailStart = errors.New("permission denied")

	if _, err := f.eng.StartRecording("doomed"); err == nil {
		t.Fatal("expected hook registration error")
	}
	if f.eng.Recording() {
		t.Error("recorder must be rolled back after a hook failure")
	}

	// The recorder is free again once the backend recovers.
	f.backend.FailStart = nil
	if _, err := f.eng.StartRecording("retry"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.eng.StopRecording(); err != nil {
		t.Fatal(err)
	}
}

func TestResolve(t *testing.T) {
	f := newFixture(t)
	s, err := f.eng.StartRecording("named")
	if err != nil {
		t.Fatal(err)
	}
	f.backend.Emit(hook.Event{Kind: hook.KeyDown, Key: "a", When: time.Now()})
	waitFor(t, "event", func() bool { return f.eng.RecordedActions() >= 1 })
	if _, err := f.eng.StopRecording(); err != nil {
		t.Fatal(err)
	}

	byName, err := f.eng.Resolve("named")
	if err != nil {
		t.Fatal(err)
	}
	if byName.ID != s.ID {
		t.Errorf("by name: id = %s, want %s", byName.ID, s.ID)
	}

	byID, err := f.eng.Resolve(s.ID.String())
	if err != nil {
		t.Fatal(err)
	}
	if byID.ID != s.ID {
		t.Errorf("by id: id = %s, want %s", byID.ID, s.ID)
	}

	if _, err := f.eng.Resolve("missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPlayByID(t *testing.T) {
	f := newFixture(t)

	s, err := f.eng.StartRecording("replay me")
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	f.backend.Emit(hook.Event{Kind: hook.KeyDown, Key: "a", When: now})
	f.backend.Emit(hook.Event{Kind: hook.KeyUp, Key: "a", When: now.Add(5 * time.Millisecond)})
	waitFor(t, "events", func() bool { return f.eng.RecordedActions() >= 2 })
	if _, err := f.eng.StopRecording(); err != nil {
		t.Fatal(err)
	}

	if _, err := f.eng.Play(context.Background(), s.ID, f.eng.PlayOpts(0, 0, nil)); err != nil {
		t.Fatal(err)
	}

	select {
	case <-f.eng.Player().Wait():
	case <-time.After(5 * time.Second):
		t.Fatal("playback did not finish")
	}
	if got := f.inj.count(); got != 2 {
		t.Errorf("injected %d calls, want 2", got)
	}
	if st := f.eng.Player().Status(); st.State != player.StateStopped {
		t.Errorf("state = %s, want stopped", st.State)
	}
}

func TestPlayOpts_ResolvesFromConfig(t *testing.T) {
	f := newFixture(t)
	f.cfg.Playback.Speed = 1.5
	f.cfg.Playback.StopOnError = true
	f.cfg.Playback.DelayFloorMs = 10

	opts := f.eng.PlayOpts(0, 0, nil)
	if opts.Speed != 1.5 || !opts.StopOnError || opts.DelayFloor != 10*time.Millisecond {
		t.Errorf("opts = %+v, want config values", opts)
	}

	// Explicit flags override config.
	off := false
	opts = f.eng.PlayOpts(3.0, 7, &off)
	if opts.Speed != 3.0 || opts.RepeatOverride != 7 || opts.StopOnError {
		t.Errorf("opts = %+v, want overrides", opts)
	}
}

func TestRun_HotkeyRecordingSession(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	runDone := make(chan error, 1)
	go func() { runDone <- f.eng.Run(ctx) }()

	waitFor(t, "daemon hook", func() bool { return f.backend.Started() })

	// Press ctrl+f6: recording starts. The chord's releases arrive after
	// the recording is live and must not land in it.
	f.backend.Emit(hook.Event{Kind: hook.KeyDown, Key: "ctrl", When: time.Now()})
	f.backend.Emit(hook.Event{Kind: hook.KeyDown, Key: "f6", When: time.Now()})
	waitFor(t, "recording to start", func() bool { return f.eng.Recording() })
	f.backend.Emit(hook.Event{Kind: hook.KeyUp, Key: "f6", When: time.Now()})
	f.backend.Emit(hook.Event{Kind: hook.KeyUp, Key: "ctrl", When: time.Now()})

	// Some payload input.
	now := time.Now()
	f.backend.Emit(hook.Event{Kind: hook.KeyDown, Key: "h", When: now})
	f.backend.Emit(hook.Event{Kind: hook.KeyUp, Key: "h", When: now.Add(20 * time.Millisecond)})
	waitFor(t, "payload events", func() bool { return f.eng.RecordedActions() >= 2 })

	// Press ctrl+f7: recording stops and the script is saved. Releases
	// follow once the recorder is idle again.
	f.backend.Emit(hook.Event{Kind: hook.KeyDown, Key: "ctrl", When: time.Now()})
	f.backend.Emit(hook.Event{Kind: hook.KeyDown, Key: "f7", When: time.Now()})
	waitFor(t, "recording to stop", func() bool { return !f.eng.Recording() })
	f.backend.Emit(hook.Event{Kind: hook.KeyUp, Key: "f7", When: time.Now()})
	f.backend.Emit(hook.Event{Kind: hook.KeyUp, Key: "ctrl", When: time.Now()})

	scripts, err := f.store.ListAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(scripts) != 1 {
		t.Fatalf("stored scripts = %d, want 1", len(scripts))
	}
	// The stop chord's ctrl press must not be in the recording.
	actions := scripts[0].Actions()
	if n := len(actions); n != 2 {
		t.Errorf("recorded %d actions, want 2 (chord excluded)", n)
	}
	for _, a := range actions {
		if a.Key == "f6" || a.Key == "f7" {
			t.Errorf("hotkey %s leaked into the recording", a.Key)
		}
	}

	cancel()
	select {
	case err := <-runDone:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not exit")
	}
	if f.backend.Started() {
		t.Error("hook must be released on daemon shutdown")
	}
}

func TestApplyConfig_RebindsHotkeys(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- f.eng.Run(ctx) }()
	waitFor(t, "daemon hook", func() bool { return f.backend.Started() })

	next := config.Default()
	next.Hotkeys.StartRecording = "ctrl+alt+f2"
	f.eng.ApplyConfig(next)

	// Old chord is dead.
	f.backend.Emit(hook.Event{Kind: hook.KeyDown, Key: "ctrl", When: time.Now()})
	f.backend.Emit(hook.Event{Kind: hook.KeyDown, Key: "f6", When: time.Now()})
	f.backend.Emit(hook.Event{Kind: hook.KeyUp, Key: "f6", When: time.Now()})
	time.Sleep(100 * time.Millisecond)
	if f.eng.Recording() {
		t.Fatal("old chord must not start a recording after rebind")
	}

	// New chord works (ctrl still held from above).
	f.backend.Emit(hook.Event{Kind: hook.KeyDown, Key: "alt", When: time.Now()})
	f.backend.Emit(hook.Event{Kind: hook.KeyDown, Key: "f2", When: time.Now()})
	waitFor(t, "recording via new chord", func() bool { return f.eng.Recording() })

	cancel()
	<-runDone
}

func TestRun_ShutdownFinalizesRecording(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	runDone := make(chan error, 1)
	go func() { runDone <- f.eng.Run(ctx) }()
	waitFor(t, "daemon hook", func() bool { return f.backend.Started() })

	f.backend.Emit(hook.Event{Kind: hook.KeyDown, Key: "ctrl", When: time.Now()})
	f.backend.Emit(hook.Event{Kind: hook.KeyDown, Key: "f6", When: time.Now()})
	waitFor(t, "recording", func() bool { return f.eng.Recording() })

	cancel()
	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not exit")
	}

	// The in-flight recording was saved on shutdown.
	scripts, err := f.store.ListAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(scripts) != 1 {
		t.Errorf("stored scripts = %d, want 1", len(scripts))
	}
}
