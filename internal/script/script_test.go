package script

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/keyforge/keyforge/internal/action"
)

func TestAppend_ClampsBackwardsOffset(t *testing.T) {
	s := New("clamp")
	if err := s.Append(action.KeyDown("a", 100*time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	// Wall clock stepped backwards between events.
	if err := s.Append(action.KeyUp("a", 50*time.Millisecond)); err != nil {
		t.Fatal(err)
	}

	actions := s.Actions()
	if actions[1].Offset != 100*time.Millisecond {
		t.Errorf("offset = %s, want clamped to 100ms", actions[1].Offset)
	}
}

func TestAppend_RejectsInvalidAction(t *testing.T) {
	s := New("bad")
	if err := s.Append(action.Action{Kind: "warp"}); err == nil {
		t.Error("expected error for unknown kind")
	}
	if s.Len() != 0 {
		t.Errorf("len = %d, want 0 after rejected append", s.Len())
	}
}

func TestSetActions_RejectsNonMonotonic(t *testing.T) {
	s := New("order")
	err := s.SetActions([]action.Action{
		action.KeyDown("a", 100*time.Millisecond),
		action.KeyUp("a", 50*time.Millisecond),
	})
	if err == nil {
		t.Error("expected error for decreasing offsets")
	}
}

func TestActions_ReturnsCopy(t *testing.T) {
	s := New("copy")
	if err := s.Append(action.KeyDown("a", 0)); err != nil {
		t.Fatal(err)
	}
	got := s.Actions()
	got[0].Key = "mutated"
	if s.Actions()[0].Key != "a" {
		t.Error("Actions must return a copy, not the backing slice")
	}
}

func TestTrimTail(t *testing.T) {
	s := New("trim")
	for i, key := range []string{"a", "b", "c"} {
		if err := s.Append(action.KeyDown(key, time.Duration(i)*time.Millisecond)); err != nil {
			t.Fatal(err)
		}
	}
	s.TrimTail(2)
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
	last, ok := s.LastAction()
	if !ok || last.Key != "a" {
		t.Errorf("last = %+v, want key-down(a)", last)
	}

	// Over-trim clears the script instead of panicking.
	s.TrimTail(5)
	if s.Len() != 0 {
		t.Errorf("len = %d, want 0", s.Len())
	}
}

func TestTouch_BumpsVersion(t *testing.T) {
	s := New("touch")
	before := s.Version
	s.Touch()
	if s.Version != before+1 {
		t.Errorf("version = %d, want %d", s.Version, before+1)
	}
}

func TestValidate(t *testing.T) {
	s := New("ok")
	if err := s.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	s.RepeatCount = 0
	if err := s.Validate(); err == nil {
		t.Error("expected error for repeatCount 0")
	}
}

func TestJSON_RoundTrip(t *testing.T) {
	orig := New("login sequence")
	orig.Description = "types the password"
	orig.RepeatCount = 3
	orig.Loop = false
	if err := orig.SetActions([]action.Action{
		action.KeyDown("a", 0),
		action.KeyUp("a", 80*time.Millisecond),
		action.MouseClick("left", 640, 480, false, 200*time.Millisecond),
	}); err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatal(err)
	}

	var got Script
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}

	if got.ID != orig.ID || got.Name != orig.Name || got.RepeatCount != 3 {
		t.Errorf("metadata changed: got %s %q repeat=%d", got.ID, got.Name, got.RepeatCount)
	}
	if got.Len() != 3 {
		t.Fatalf("actions = %d, want 3", got.Len())
	}
	if got.Actions()[2].Offset != 200*time.Millisecond {
		t.Errorf("offset = %s, want 200ms", got.Actions()[2].Offset)
	}
}

func TestJSON_CamelCaseKeys(t *testing.T) {
	s := New("keys")
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	doc := string(data)
	for _, want := range []string{`"repeatCount"`, `"createdAt"`, `"updatedAt"`, `"version"`} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %s: %s", want, doc)
		}
	}
}

func TestUnmarshal_RejectsBrokenDocument(t *testing.T) {
	var s Script
	// Valid JSON, but actions out of order.
	doc := `{"id":"6ba7b810-9dad-11d1-80b4-00c04fd430c8","name":"x","repeatCount":1,
		"actions":[{"kind":"key-down","offsetMs":100,"key":"a"},
		           {"kind":"key-up","offsetMs":50,"key":"a"}],
		"createdAt":"2026-01-01T00:00:00Z","updatedAt":"2026-01-01T00:00:00Z","version":1}`
	if err := json.Unmarshal([]byte(doc), &s); err == nil {
		t.Error("expected error for out-of-order offsets")
	}
}
