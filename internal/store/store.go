package store

import (
	"errors"

	"github.com/google/uuid"
	"github.com/keyforge/keyforge/internal/script"
)

// ErrNotFound is returned when a requested script does not exist in the store.
var ErrNotFound = errors.New("not found")

// Store defines the script persistence interface.
type Store interface {
	Save(s *script.Script) error
	Load(id uuid.UUID) (*script.Script, error)
	Delete(id uuid.UUID) error
	ListAll() ([]*script.Script, error)

	// FindByName returns the first script whose name matches exactly.
	// Returns ErrNotFound if no script has that name.
	FindByName(name string) (*script.Script, error)

	Close() error
}
