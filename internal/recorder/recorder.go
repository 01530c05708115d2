// Package recorder converts hook events into a timed action sequence on a
// script. The recorder does not own a hook subscription itself; the engine
// routes events through the hotkey manager first and feeds the remainder
// here, which is what keeps the stop hotkey out of recordings.
package recorder

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/keyforge/keyforge/internal/action"
	"github.com/keyforge/keyforge/internal/hook"
	"github.com/keyforge/keyforge/internal/hotkey"
	"github.com/keyforge/keyforge/internal/script"
)

// ErrAlreadyRecording is returned when a recording session is already
// active.
var ErrAlreadyRecording = errors.New("recording already in progress")

// Recorder appends incoming events to a target script with offsets measured
// from the recording start.
type Recorder struct {
	logger *slog.Logger

	mu        sync.Mutex
	recording bool
	target    *script.Script
	t0        time.Time
	down      map[string]bool
}

// New creates a recorder.
func New(logger *slog.Logger) *Recorder {
	return &Recorder{logger: logger.With("component", "recorder")}
}

// Start begins recording into s and records the start timestamp. Fails with
// ErrAlreadyRecording if a session is active.
func (r *Recorder) Start(s *script.Script) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return ErrAlreadyRecording
	}
	r.recording = true
	r.target = s
	r.t0 = time.Now()
	r.down = make(map[string]bool)
	r.logger.Info("recording started", "script", s.Name, "id", s.ID)
	return nil
}

// Feed converts one hook event into an action on the target script. Events
// arriving while not recording are ignored.
func (r *Recorder) Feed(ev hook.Event) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return
	}
	switch ev.Kind {
	case hook.KeyDown:
		r.down[ev.Key] = true
	case hook.KeyUp:
		// A release for a key whose press predates the recording (the
		// start chord, typically) carries nothing playable.
		if !r.down[ev.Key] {
			r.mu.Unlock()
			return
		}
		delete(r.down, ev.Key)
	}
	target := r.target
	when := ev.When
	if when.IsZero() {
		when = time.Now()
	}
	// The script file carries offsets as whole milliseconds; truncating here
	// keeps the in-memory sequence identical to its saved form.
	offset := when.Sub(r.t0).Truncate(time.Millisecond)
	if offset < 0 {
		offset = 0
	}
	r.mu.Unlock()

	a, ok := eventToAction(ev, offset)
	if !ok {
		return
	}
	if err := target.Append(a); err != nil {
		r.logger.Warn("drop unrecordable event", "err", err)
	}
}

// Stop finalizes the recording: trailing modifier key-downs left over from
// the stop chord are trimmed, and the script's version and update timestamp
// are bumped. Stop is idempotent; the finished script is returned, or nil if
// no recording was active.
func (r *Recorder) Stop() *script.Script {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return nil
	}
	r.recording = false
	target := r.target
	r.target = nil
	r.mu.Unlock()

	trimStopChordTail(target)
	target.Touch()
	r.logger.Info("recording stopped", "script", target.Name, "actions", target.Len())
	return target
}

// IsRecording reports whether a session is active.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// ActionCount returns the number of actions recorded so far, or 0 when not
// recording.
func (r *Recorder) ActionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return 0
	}
	return r.target.Len()
}

// Elapsed returns the time since recording started, or 0 when idle.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return 0
	}
	return time.Since(r.t0)
}

// eventToAction maps a hook event to its recorded action. Mouse-move events
// are recorded as-is; coalescing is a playback concern, not a recording one.
func eventToAction(ev hook.Event, offset time.Duration) (action.Action, bool) {
	switch ev.Kind {
	case hook.KeyDown:
		return action.KeyDown(ev.Key, offset), true
	case hook.KeyUp:
		return action.KeyUp(ev.Key, offset), true
	case hook.MouseDown:
		return action.MouseClick(ev.Button, ev.X, ev.Y, false, offset), true
	case hook.MouseUp:
		// Click actions are recorded on the down transition; the up edge
		// carries no extra information for playback.
		return action.Action{}, false
	case hook.MouseMove:
		return action.MouseMove(ev.X, ev.Y, offset), true
	case hook.MouseWheel:
		return action.MouseScroll(ev.DX, ev.DY, offset), true
	default:
		return action.Action{}, false
	}
}

// trimStopChordTail drops the stop chord's residue from the end of a
// recording. The chord's triggering key never reaches the recorder (the
// hotkey manager claims it), but the chord's modifier presses do, and when a
// modifier release outruns the asynchronous stop callback its key-up lands
// as well. The trailing run of modifier key events is trimmed back to the
// newest release that has no matching press inside the run; trimming past
// such a release would strand an earlier press held through the recording.
func trimStopChordTail(s *script.Script) {
	actions := s.Actions()
	n := len(actions)
	cut := n
	pending := make(map[string]int)
	unpaired := 0
	for i := n - 1; i >= 0; i-- {
		a := actions[i]
		if (a.Kind != action.KindKeyDown && a.Kind != action.KindKeyUp) || !hotkey.IsModifierKey(a.Key) {
			break
		}
		if a.Kind == action.KindKeyUp {
			pending[a.Key]++
			unpaired++
			continue
		}
		if pending[a.Key] > 0 {
			pending[a.Key]--
			unpaired--
		}
		if unpaired == 0 {
			cut = i
		}
	}
	s.TrimTail(n - cut)
}
