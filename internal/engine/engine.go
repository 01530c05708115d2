// Package engine wires the hook manager, hotkey manager, recorder, player
// and store into one controller. The engine owns the single event dispatch
// loop: every hook event is offered to the hotkey manager first, and only
// events that are not part of a matched chord reach the recorder. That
// ordering is what keeps the stop hotkey out of recordings.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/keyforge/keyforge/internal/config"
	"github.com/keyforge/keyforge/internal/hook"
	"github.com/keyforge/keyforge/internal/hotkey"
	"github.com/keyforge/keyforge/internal/luaengine"
	"github.com/keyforge/keyforge/internal/platform"
	"github.com/keyforge/keyforge/internal/player"
	"github.com/keyforge/keyforge/internal/recorder"
	"github.com/keyforge/keyforge/internal/script"
	"github.com/keyforge/keyforge/internal/store"
)

// ErrNotRecording is returned by StopRecording when no recording session is
// active.
var ErrNotRecording = errors.New("no recording in progress")

// Engine is the controller behind the CLI, the hotkey daemon and the MCP
// server.
type Engine struct {
	logger  *slog.Logger
	hooks   *hook.Manager
	hotkeys *hotkey.Manager
	rec     *recorder.Recorder
	player  *player.Player
	store   store.Store

	mu      sync.Mutex
	cfg     *config.Config
	session *hook.Session
	unsub   func()
	loopWG  sync.WaitGroup
}

// New builds an engine from a platform provider, an open store and a
// config. The provider's Hooker may be replaced by a fake in tests.
func New(p *platform.Provider, st store.Store, cfg *config.Config, logger *slog.Logger) *Engine {
	lua := luaengine.New(p.Screenshotter, logger)
	return &Engine{
		logger:  logger.With("component", "engine"),
		hooks:   hook.NewManager(p.Hooker, logger),
		hotkeys: hotkey.NewManager(logger),
		rec:     recorder.New(logger),
		player:  player.New(p.Injector, lua, logger),
		store:   st,
		cfg:     cfg,
	}
}

// Hooks exposes the hook manager, mainly for status output.
func (e *Engine) Hooks() *hook.Manager { return e.hooks }

// Hotkeys exposes the hotkey manager for commands that bind extra chords.
func (e *Engine) Hotkeys() *hotkey.Manager { return e.hotkeys }

// Player exposes the playback controller.
func (e *Engine) Player() *player.Player { return e.player }

// Store exposes script persistence.
func (e *Engine) Store() store.Store { return e.store }

// Recording reports whether a recording session is active.
func (e *Engine) Recording() bool { return e.rec.IsRecording() }

// RecordedActions returns the live action count of the current recording.
func (e *Engine) RecordedActions() int { return e.rec.ActionCount() }

// StartRecording acquires the input hook (if this engine does not hold one
// yet) and begins recording into a new script. The script is not persisted
// until StopRecording.
func (e *Engine) StartRecording(name string) (*script.Script, error) {
	if name == "" {
		name = "recording " + time.Now().Format("2006-01-02 15:04:05")
	}

	s := script.New(name)
	if err := e.rec.Start(s); err != nil {
		return nil, err
	}
	if err := e.ensureHook(); err != nil {
		e.rec.Stop()
		return nil, err
	}
	return s, nil
}

// StopRecording finalizes the active recording, saves the script, and
// returns it.
func (e *Engine) StopRecording() (*script.Script, error) {
	s := e.rec.Stop()
	if s == nil {
		return nil, ErrNotRecording
	}
	e.releaseHookIfIdle()
	if err := e.store.Save(s); err != nil {
		return nil, fmt.Errorf("save recording: %w", err)
	}
	e.logger.Info("recording saved", "script", s.Name, "id", s.ID, "actions", s.Len())
	return s, nil
}

// PlayOpts resolves playback options from config with optional overrides.
func (e *Engine) PlayOpts(speed float64, repeatOverride int, stopOnError *bool) player.Opts {
	e.mu.Lock()
	cfg := e.cfg
	e.mu.Unlock()

	opts := player.Opts{
		Speed:          cfg.Playback.Speed,
		RepeatOverride: repeatOverride,
		StopOnError:    cfg.Playback.StopOnError,
		DelayFloor:     cfg.DelayFloor(),
	}
	if speed > 0 {
		opts.Speed = speed
	}
	if stopOnError != nil {
		opts.StopOnError = *stopOnError
	}
	return opts
}

// Play loads a script by id and starts playback.
func (e *Engine) Play(ctx context.Context, id uuid.UUID, opts player.Opts) (*script.Script, error) {
	s, err := e.store.Load(id)
	if err != nil {
		return nil, err
	}
	if err := e.player.Play(ctx, s, opts); err != nil {
		return nil, err
	}
	return s, nil
}

// Resolve finds a script by UUID string or by exact name.
func (e *Engine) Resolve(ref string) (*script.Script, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return e.store.Load(id)
	}
	return e.store.FindByName(ref)
}

// Run starts the hotkey daemon: it acquires the hook, registers the
// configured hotkeys and blocks until ctx is cancelled. The hook session is
// released on every exit path.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.ensureHook(); err != nil {
		return err
	}
	defer e.shutdownHook()

	if err := e.applyHotkeys(e.snapshotConfig()); err != nil {
		return err
	}

	e.logger.Info("listening for hotkeys", "bindings", hotkey.SortedNames(e.hotkeys.Bindings()))
	<-ctx.Done()

	if e.rec.IsRecording() {
		if _, err := e.StopRecording(); err != nil && !errors.Is(err, ErrNotRecording) {
			e.logger.Error("stop recording on shutdown", "err", err)
		}
	}
	if st := e.player.Status(); st.State == player.StateRunning || st.State == player.StatePaused {
		if err := e.player.Stop(); err != nil {
			e.logger.Error("stop playback on shutdown", "err", err)
		}
	}
	return nil
}

// ApplyConfig swaps the live configuration. Hotkey bindings are re-applied;
// playback tunables take effect on the next Play.
func (e *Engine) ApplyConfig(cfg *config.Config) {
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
	if err := e.applyHotkeys(cfg); err != nil {
		e.logger.Error("apply hotkeys", "err", err)
	}
}

func (e *Engine) snapshotConfig() *config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// applyHotkeys rebinds the configured chords. Bindings are cleared first so
// a reload can change combinations without duplicate errors.
func (e *Engine) applyHotkeys(cfg *config.Config) error {
	e.hotkeys.Clear()
	for _, b := range []struct {
		spec string
		fn   func()
	}{
		{cfg.Hotkeys.StartRecording, e.hotkeyStartRecording},
		{cfg.Hotkeys.StopRecording, e.hotkeyStopRecording},
		{cfg.Hotkeys.TogglePlayback, e.hotkeyTogglePlayback},
		{cfg.Hotkeys.StopPlayback, e.hotkeyStopPlayback},
	} {
		if b.spec == "" {
			continue
		}
		if err := e.hotkeys.Register(b.spec, b.fn); err != nil {
			return fmt.Errorf("bind %s: %w", b.spec, err)
		}
	}
	return nil
}

func (e *Engine) hotkeyStartRecording() {
	if _, err := e.StartRecording(""); err != nil {
		e.logger.Error("hotkey start recording", "err", err)
	}
}

func (e *Engine) hotkeyStopRecording() {
	if _, err := e.StopRecording(); err != nil && !errors.Is(err, ErrNotRecording) {
		e.logger.Error("hotkey stop recording", "err", err)
	}
}

// hotkeyTogglePlayback replays the most recently updated script, or pauses
// and resumes the active playback.
func (e *Engine) hotkeyTogglePlayback() {
	switch e.player.Status().State {
	case player.StateRunning:
		if err := e.player.Pause(); err != nil {
			e.logger.Error("hotkey pause", "err", err)
		}
	case player.StatePaused:
		if err := e.player.Resume(); err != nil {
			e.logger.Error("hotkey resume", "err", err)
		}
	default:
		s, err := e.latestScript()
		if err != nil {
			e.logger.Error("hotkey play", "err", err)
			return
		}
		if err := e.player.Play(context.Background(), s, e.PlayOpts(0, 0, nil)); err != nil {
			e.logger.Error("hotkey play", "script", s.Name, "err", err)
		}
	}
}

func (e *Engine) hotkeyStopPlayback() {
	if err := e.player.Stop(); err != nil && !errors.Is(err, player.ErrInvalidTransition) {
		e.logger.Error("hotkey stop playback", "err", err)
	}
}

func (e *Engine) latestScript() (*script.Script, error) {
	scripts, err := e.store.ListAll()
	if err != nil {
		return nil, err
	}
	if len(scripts) == 0 {
		return nil, fmt.Errorf("no scripts recorded yet")
	}
	latest := scripts[0]
	for _, s := range scripts[1:] {
		if s.UpdatedAt.After(latest.UpdatedAt) {
			latest = s
		}
	}
	return latest, nil
}

// ensureHook acquires the keyboard+mouse session and starts the dispatch
// loop if this engine does not already hold one.
func (e *Engine) ensureHook() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		return nil
	}

	session, err := e.hooks.Acquire(hook.DeviceKeyboard | hook.DeviceMouse)
	if err != nil {
		return err
	}
	events, unsub := e.hooks.Subscribe()

	e.session = session
	e.unsub = unsub
	e.loopWG.Add(1)
	go e.dispatch(events)
	return nil
}

// releaseHookIfIdle drops the hook session when neither recording nor the
// daemon needs it. The daemon holds its own reference via Run's defer, so
// this only releases after one-shot recordings.
func (e *Engine) releaseHookIfIdle() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil || len(e.hotkeys.Bindings()) > 0 {
		return
	}
	e.stopHookLocked()
}

func (e *Engine) shutdownHook() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopHookLocked()
}

func (e *Engine) stopHookLocked() {
	if e.session == nil {
		return
	}
	e.unsub()
	e.session.Stop()
	e.session = nil
	e.unsub = nil
	e.mu.Unlock()
	e.loopWG.Wait()
	e.mu.Lock()
}

// dispatch is the single event loop: hotkeys classify first, the recorder
// consumes the rest.
func (e *Engine) dispatch(events <-chan hook.Event) {
	defer e.loopWG.Done()
	for ev := range events {
		if e.hotkeys.HandleEvent(ev) {
			continue
		}
		e.rec.Feed(ev)
	}
}
