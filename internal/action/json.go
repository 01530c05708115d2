package action

import (
	"encoding/json"
	"time"
)

// actionJSON is the wire form of an Action. Durations are carried as integer
// milliseconds so script files stay readable and editable by hand.
type actionJSON struct {
	Kind       Kind   `json:"kind"`
	OffsetMs   int64  `json:"offsetMs"`
	Key        string `json:"key,omitempty"`
	Text       string `json:"text,omitempty"`
	Button     string `json:"button,omitempty"`
	Double     bool   `json:"double,omitempty"`
	X          int    `json:"x,omitempty"`
	Y          int    `json:"y,omitempty"`
	DX         int    `json:"dx,omitempty"`
	DY         int    `json:"dy,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
	Code       string `json:"code,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(actionJSON{
		Kind:       a.Kind,
		OffsetMs:   a.Offset.Milliseconds(),
		Key:        a.Key,
		Text:       a.Text,
		Button:     a.Button,
		Double:     a.Double,
		X:          a.X,
		Y:          a.Y,
		DX:         a.DX,
		DY:         a.DY,
		DurationMs: a.Duration.Milliseconds(),
		Code:       a.Code,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Action) UnmarshalJSON(data []byte) error {
	var w actionJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*a = Action{
		Kind:     w.Kind,
		Offset:   millis(w.OffsetMs),
		Key:      w.Key,
		Text:     w.Text,
		Button:   w.Button,
		Double:   w.Double,
		X:        w.X,
		Y:        w.Y,
		DX:       w.DX,
		DY:       w.DY,
		Duration: millis(w.DurationMs),
		Code:     w.Code,
	}
	return a.Validate()
}

func millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
