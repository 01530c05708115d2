package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Hotkeys.StartRecording != "ctrl+f6" {
		t.Errorf("start_recording = %q, want ctrl+f6", cfg.Hotkeys.StartRecording)
	}
	if cfg.Playback.Speed != 1.0 {
		t.Errorf("speed = %v, want 1.0", cfg.Playback.Speed)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log_level = %q, want info", cfg.LogLevel)
	}
}

func TestLoad_LayersOverDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
hotkeys:
  stop_recording: ctrl+alt+f12
playback:
  delay_floor_ms: 25
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Hotkeys.StopRecording != "ctrl+alt+f12" {
		t.Errorf("stop_recording = %q, want override", cfg.Hotkeys.StopRecording)
	}
	// Untouched keys keep their defaults.
	if cfg.Hotkeys.StartRecording != "ctrl+f6" {
		t.Errorf("start_recording = %q, want default", cfg.Hotkeys.StartRecording)
	}
	if cfg.DelayFloor() != 25*time.Millisecond {
		t.Errorf("delay floor = %s, want 25ms", cfg.DelayFloor())
	}
}

func TestLoad_RejectsBrokenYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "hotkeys: [this is not a map")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, false},
		{"zero speed", func(c *Config) { c.Playback.Speed = 0 }, false},
		{"negative speed", func(c *Config) { c.Playback.Speed = -1 }, false},
		{"negative floor", func(c *Config) { c.Playback.DelayFloorMs = -5 }, false},
		{"debug level", func(c *Config) { c.LogLevel = "debug" }, true},
	}
	for _, tt := range tests {
		cfg := Default()
		tt.mutate(cfg)
		err := cfg.Validate()
		if tt.ok && err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "log_level: info\n")

	loaded := make(chan *Config, 4)
	w, err := Watch(path, testLogger(), func(c *Config) { loaded <- c })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	writeConfig(t, dir, "log_level: debug\n")

	select {
	case cfg := <-loaded:
		if cfg.LogLevel != "debug" {
			t.Errorf("log_level = %q, want debug", cfg.LogLevel)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not reload")
	}
}

func TestWatch_KeepsPreviousOnParseFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "log_level: info\n")

	loaded := make(chan *Config, 4)
	w, err := Watch(path, testLogger(), func(c *Config) { loaded <- c })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	// Broken revision must not reach the callback.
	writeConfig(t, dir, "log_level: [broken\n")

	select {
	case cfg := <-loaded:
		t.Errorf("unexpected reload with %+v", cfg)
	case <-time.After(700 * time.Millisecond):
	}
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "log_level: info\n")

	loaded := make(chan *Config, 4)
	w, err := Watch(path, testLogger(), func(c *Config) { loaded <- c })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-loaded:
		t.Error("unrelated file must not trigger a reload")
	case <-time.After(700 * time.Millisecond):
	}
}
