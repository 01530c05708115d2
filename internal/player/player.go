// Package player replays a script's action sequence through the platform
// injector with differential-delay timing: each wait is the difference
// between consecutive recorded offsets (divided by the speed multiplier),
// so pause and resume preserve relative spacing instead of racing toward
// the original absolute timestamps.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/keyforge/keyforge/internal/action"
	"github.com/keyforge/keyforge/internal/platform"
	"github.com/keyforge/keyforge/internal/script"
)

var (
	// ErrEmptyScript is returned by Play for a script with no actions; the
	// player stays Idle. An empty playback request is almost always a user
	// mistake, so it is reported instead of silently succeeding.
	ErrEmptyScript = errors.New("script has no actions")

	// ErrAlreadyPlaying is returned when Play is called while a playback is
	// running or paused.
	ErrAlreadyPlaying = errors.New("playback already in progress")

	// ErrInvalidTransition is returned by Pause, Resume and Stop when the
	// current state does not permit the transition.
	ErrInvalidTransition = errors.New("invalid playback state transition")
)

// ConditionRunner evaluates a lua action's code. A false result skips the
// remainder of the current pass.
type ConditionRunner interface {
	Eval(ctx context.Context, code string) (bool, error)
}

// Opts configures one playback.
type Opts struct {
	// Speed divides inter-action delays; 1.0 replays at recorded speed,
	// 2.0 at double speed. Zero or negative means 1.0.
	Speed float64

	// RepeatOverride, when > 0, replaces the script's RepeatCount for this
	// playback. Ignored for looping scripts.
	RepeatOverride int

	// StopOnError escalates a failed injection to the Failed state instead
	// of skipping the action.
	StopOnError bool

	// DelayFloor is the minimum wait enforced before each injected action
	// after the first. Zero disables the floor.
	DelayFloor time.Duration
}

// ActionError records a non-fatal per-action injection failure with enough
// context to diagnose a broken script.
type ActionError struct {
	Index int         `yaml:"index" json:"index"`
	Kind  action.Kind `yaml:"kind"  json:"kind"`
	Err   string      `yaml:"error" json:"error"`
}

// Status is a snapshot of the in-flight (or finished) playback.
type Status struct {
	State       State
	ScriptID    uuid.UUID
	ScriptName  string
	ActionIndex int
	Iterations  int
	Errors      []ActionError
}

// Player replays scripts. A player runs at most one playback at a time; the
// wait-then-inject loop runs on its own goroutine, separate from the hook
// dispatch context.
type Player struct {
	inj    platform.Injector
	cond   ConditionRunner // may be nil; lua actions then fail per-action
	logger *slog.Logger

	mu          sync.Mutex
	state       State
	scriptID    uuid.UUID
	scriptName  string
	actionIndex int
	iterations  int
	actionErrs  []ActionError
	cancel      context.CancelFunc
	pauseCh     chan struct{}
	resumeCh    chan struct{}
	done        chan struct{}
}

// New creates a player over the given injector. cond may be nil when lua
// actions are not in use.
func New(inj platform.Injector, cond ConditionRunner, logger *slog.Logger) *Player {
	return &Player{
		inj:    inj,
		cond:   cond,
		logger: logger.With("component", "player"),
		state:  StateIdle,
	}
}

// Play starts replaying s asynchronously and transitions to Running.
// Use Wait to block until the playback finishes.
func (p *Player) Play(ctx context.Context, s *script.Script, opts Opts) error {
	if err := s.Validate(); err != nil {
		return err
	}
	actions := s.Actions()
	if len(actions) == 0 {
		return fmt.Errorf("%w: %q", ErrEmptyScript, s.Name)
	}

	if opts.Speed <= 0 {
		opts.Speed = 1.0
	}
	repeats := s.RepeatCount
	if opts.RepeatOverride > 0 {
		repeats = opts.RepeatOverride
	}

	p.mu.Lock()
	if !p.state.Terminal() {
		p.mu.Unlock()
		return fmt.Errorf("%w (state %s)", ErrAlreadyPlaying, p.state)
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.state = StateRunning
	p.scriptID = s.ID
	p.scriptName = s.Name
	p.actionIndex = 0
	p.iterations = 0
	p.actionErrs = nil
	p.cancel = cancel
	p.pauseCh = make(chan struct{}, 1)
	p.resumeCh = make(chan struct{}, 1)
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	p.logger.Info("playback started", "script", s.Name, "actions", len(actions),
		"speed", opts.Speed, "loop", s.Loop, "repeats", repeats)

	go func() {
		defer cancel()
		defer close(done)
		p.run(runCtx, actions, s.Loop, repeats, opts)
	}()
	return nil
}

// Pause suspends the scheduling loop at the next boundary between actions.
// The in-flight inter-action wait keeps its remaining portion for Resume.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateRunning {
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, p.state)
	}
	p.state = StatePaused
	select {
	case p.pauseCh <- struct{}{}:
	default:
	}
	p.logger.Info("playback paused", "script", p.scriptName, "action", p.actionIndex)
	return nil
}

// Resume continues a paused playback, waiting only the remainder of the
// interrupted inter-action delay.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StatePaused {
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, p.state)
	}
	p.state = StateRunning
	select {
	case p.resumeCh <- struct{}{}:
	default:
	}
	p.logger.Info("playback resumed", "script", p.scriptName)
	return nil
}

// Stop cancels the playback, including any pending inter-action wait.
// Already-injected actions are not rolled back.
func (p *Player) Stop() error {
	p.mu.Lock()
	if p.state != StateRunning && p.state != StatePaused {
		p.mu.Unlock()
		return fmt.Errorf("%w: stop from %s", ErrInvalidTransition, p.state)
	}
	p.state = StateStopped
	cancel := p.cancel
	p.mu.Unlock()

	cancel()
	p.logger.Info("playback stopped", "script", p.scriptName)
	return nil
}

// Wait returns a channel closed when the current playback's goroutine
// exits, or nil if no playback has started.
func (p *Player) Wait() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Status returns a snapshot of the playback state.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	errs := make([]ActionError, len(p.actionErrs))
	copy(errs, p.actionErrs)
	return Status{
		State:       p.state,
		ScriptID:    p.scriptID,
		ScriptName:  p.scriptName,
		ActionIndex: p.actionIndex,
		Iterations:  p.iterations,
		Errors:      errs,
	}
}

// run executes passes over the action sequence until the repeat budget is
// exhausted, the context is cancelled, or a failure escalates.
func (p *Player) run(ctx context.Context, actions []action.Action, loop bool, repeats int, opts Opts) {
	for pass := 0; loop || pass < repeats; pass++ {
		if !p.runPass(ctx, actions, opts) {
			return
		}
		p.mu.Lock()
		p.iterations++
		p.mu.Unlock()
	}
	p.finish(StateStopped)
}

// runPass plays one full pass. It returns false when playback must not
// continue (cancelled or escalated to Failed).
func (p *Player) runPass(ctx context.Context, actions []action.Action, opts Opts) bool {
	prevOffset := actions[0].Offset
	for i, a := range actions {
		delay := time.Duration(float64(a.Offset-prevOffset) / opts.Speed)
		if delay < 0 {
			delay = 0
		}
		if i > 0 && a.Kind != action.KindDelay && delay < opts.DelayFloor {
			delay = opts.DelayFloor
		}
		prevOffset = a.Offset

		if !p.wait(ctx, delay) {
			return false
		}

		p.mu.Lock()
		p.actionIndex = i
		p.mu.Unlock()

		skipRest, err := p.execute(ctx, a, opts)
		if err != nil {
			p.recordError(i, a, err)
			if opts.StopOnError {
				p.logger.Error("playback failed", "script", p.scriptName, "action", i, "err", err)
				p.finish(StateFailed)
				return false
			}
			p.logger.Warn("action failed, continuing", "action", i, "kind", a.Kind, "err", err)
			continue
		}
		if skipRest {
			return true
		}
	}
	return true
}

// execute performs one action. The bool result requests skipping the rest
// of the current pass (lua condition returned false).
func (p *Player) execute(ctx context.Context, a action.Action, opts Opts) (bool, error) {
	switch a.Kind {
	case action.KindKeyDown:
		return false, p.inj.KeyDown(a.Key)
	case action.KindKeyUp:
		return false, p.inj.KeyUp(a.Key)
	case action.KindKeyType:
		return false, p.inj.TypeText(a.Text)
	case action.KindMouseMove:
		return false, p.inj.MoveMouse(a.X, a.Y)
	case action.KindMouseClick:
		return false, p.inj.Click(a.X, a.Y, a.Button, a.Double)
	case action.KindMouseScroll:
		return false, p.inj.Scroll(a.DX, a.DY)
	case action.KindDelay:
		d := time.Duration(float64(a.Duration) / opts.Speed)
		p.wait(ctx, d)
		return false, nil
	case action.KindLua:
		if p.cond == nil {
			return false, fmt.Errorf("lua action: no condition runner configured")
		}
		ok, err := p.cond.Eval(ctx, a.Code)
		if err != nil {
			return false, fmt.Errorf("lua action: %w", err)
		}
		return !ok, nil
	default:
		return false, fmt.Errorf("unknown action kind %q", a.Kind)
	}
}

// wait sleeps for d, observing pause and cancellation. A pause suspends the
// wait and preserves its remaining portion. Returns false when the playback
// was cancelled.
func (p *Player) wait(ctx context.Context, d time.Duration) bool {
	remaining := d
	for {
		// A pause requested between actions (zero remaining) must still
		// block here until resumed.
		select {
		case <-ctx.Done():
			p.finishCancelled()
			return false
		case <-p.pauseCh:
			if !p.blockWhilePaused(ctx) {
				return false
			}
		default:
		}

		if remaining <= 0 {
			return true
		}

		start := time.Now()
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.finishCancelled()
			return false
		case <-p.pauseCh:
			timer.Stop()
			remaining -= time.Since(start)
			if remaining < 0 {
				remaining = 0
			}
			if !p.blockWhilePaused(ctx) {
				return false
			}
		case <-timer.C:
			return true
		}
	}
}

func (p *Player) blockWhilePaused(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		p.finishCancelled()
		return false
	case <-p.resumeCh:
		return true
	}
}

func (p *Player) recordError(index int, a action.Action, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actionErrs = append(p.actionErrs, ActionError{Index: index, Kind: a.Kind, Err: err.Error()})
}

// finish sets a terminal state reached by the run goroutine itself.
func (p *Player) finish(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
}

// finishCancelled preserves a state already set by Stop; any other
// cancellation (parent context) lands in Stopped as well.
func (p *Player) finishCancelled() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateRunning || p.state == StatePaused {
		p.state = StateStopped
	}
}
