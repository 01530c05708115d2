package script

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/keyforge/keyforge/internal/action"
)

// Script is an ordered, named sequence of timed actions plus playback
// metadata. The action list is shared between the recorder (writer) and
// concurrent readers, so all access goes through the script's mutex.
type Script struct {
	ID          uuid.UUID
	Name        string
	Description string
	RepeatCount int
	Loop        bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Version     uint64

	mu      sync.Mutex
	actions []action.Action
}

// New creates an empty script with a fresh ID and RepeatCount 1.
func New(name string) *Script {
	now := time.Now()
	return &Script{
		ID:          uuid.New(),
		Name:        name,
		RepeatCount: 1,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
}

// Append adds an action to the end of the script. Offsets are clamped so the
// sequence stays monotonically non-decreasing even if the wall clock steps
// backwards between events.
func (s *Script) Append(a action.Action) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("append action: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.actions); n > 0 && a.Offset < s.actions[n-1].Offset {
		a.Offset = s.actions[n-1].Offset
	}
	s.actions = append(s.actions, a)
	return nil
}

// Len returns the number of actions.
func (s *Script) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actions)
}

// Actions returns a copy of the action sequence, safe to use without
// holding the script lock.
func (s *Script) Actions() []action.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]action.Action, len(s.actions))
	copy(out, s.actions)
	return out
}

// SetActions replaces the action sequence. Used by script editing and by
// the JSON decoder.
func (s *Script) SetActions(actions []action.Action) error {
	for i, a := range actions {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
		if i > 0 && a.Offset < actions[i-1].Offset {
			return fmt.Errorf("action %d: offset %s before previous %s", i, a.Offset, actions[i-1].Offset)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = make([]action.Action, len(actions))
	copy(s.actions, actions)
	return nil
}

// TrimTail removes the last n actions. Used by the recorder to drop the
// stop-hotkey chord from the end of a recording.
func (s *Script) TrimTail(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.actions) {
		n = len(s.actions)
	}
	s.actions = s.actions[:len(s.actions)-n]
}

// LastAction returns the final action and true, or false if the script is
// empty.
func (s *Script) LastAction() (action.Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.actions) == 0 {
		return action.Action{}, false
	}
	return s.actions[len(s.actions)-1], true
}

// Touch bumps the version counter and update timestamp. Call after any
// mutation that should be visible as a new revision.
func (s *Script) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Version++
	s.UpdatedAt = time.Now()
}

// Validate checks playback metadata invariants.
func (s *Script) Validate() error {
	if s.ID == uuid.Nil {
		return fmt.Errorf("script %q: missing id", s.Name)
	}
	if s.RepeatCount < 1 {
		return fmt.Errorf("script %q: repeatCount must be >= 1, got %d", s.Name, s.RepeatCount)
	}
	return nil
}

// scriptJSON is the persisted script document.
type scriptJSON struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Actions     []action.Action `json:"actions"`
	RepeatCount int             `json:"repeatCount"`
	Loop        bool            `json:"loop"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Version     uint64          `json:"version"`
}

// MarshalJSON implements json.Marshaler.
func (s *Script) MarshalJSON() ([]byte, error) {
	s.mu.Lock()
	actions := make([]action.Action, len(s.actions))
	copy(actions, s.actions)
	s.mu.Unlock()
	return json.Marshal(scriptJSON{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Actions:     actions,
		RepeatCount: s.RepeatCount,
		Loop:        s.Loop,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		Version:     s.Version,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Script) UnmarshalJSON(data []byte) error {
	var w scriptJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.ID = w.ID
	s.Name = w.Name
	s.Description = w.Description
	s.RepeatCount = w.RepeatCount
	s.Loop = w.Loop
	s.CreatedAt = w.CreatedAt
	s.UpdatedAt = w.UpdatedAt
	s.Version = w.Version
	if err := s.SetActions(w.Actions); err != nil {
		return err
	}
	return s.Validate()
}
