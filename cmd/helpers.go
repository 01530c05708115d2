package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/keyforge/keyforge/internal/engine"
	"github.com/keyforge/keyforge/internal/platform"
	"github.com/keyforge/keyforge/internal/script"
	"github.com/keyforge/keyforge/internal/store"
)

// ScriptInfo is the per-script listing entry shared by several commands.
type ScriptInfo struct {
	ID          string `yaml:"id"                    json:"id"`
	Name        string `yaml:"name"                  json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Actions     int    `yaml:"actions"               json:"actions"`
	RepeatCount int    `yaml:"repeatCount"           json:"repeatCount"`
	Loop        bool   `yaml:"loop,omitempty"        json:"loop,omitempty"`
	UpdatedAt   string `yaml:"updatedAt"             json:"updatedAt"`
	Version     uint64 `yaml:"version"               json:"version"`
}

func scriptInfo(s *script.Script) ScriptInfo {
	return ScriptInfo{
		ID:          s.ID.String(),
		Name:        s.Name,
		Description: s.Description,
		Actions:     s.Len(),
		RepeatCount: s.RepeatCount,
		Loop:        s.Loop,
		UpdatedAt:   s.UpdatedAt.Format("2006-01-02 15:04:05"),
		Version:     s.Version,
	}
}

// resolveScript finds a script by UUID string or exact name.
func resolveScript(st store.Store, ref string) (*script.Script, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return st.Load(id)
	}
	return st.FindByName(ref)
}

// openStore opens the configured script store, creating its directory if
// needed.
func openStore() (store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.StorePath), 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return store.NewBoltStore(cfg.StorePath)
}

// newEngine builds an engine over the real platform provider and an open
// store. The caller closes the store.
func newEngine() (*engine.Engine, store.Store, error) {
	provider, err := platform.NewProvider()
	if err != nil {
		return nil, nil, err
	}
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	return engine.New(provider, st, cfg, logger), st, nil
}
