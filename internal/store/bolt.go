package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/keyforge/keyforge/internal/script"
	bolt "go.etcd.io/bbolt"
)

var bucketScripts = []byte("scripts")

// BoltStore implements Store using BoltDB. Scripts are stored as JSON
// documents keyed by their UUID string.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates a BoltDB database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketScripts)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Save(sc *script.Script) error {
	if err := sc.Validate(); err != nil {
		return fmt.Errorf("save script: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketScripts)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketScripts)
		}
		data, err := json.Marshal(sc)
		if err != nil {
			return err
		}
		return b.Put([]byte(sc.ID.String()), data)
	})
}

func (s *BoltStore) Load(id uuid.UUID) (*script.Script, error) {
	var sc script.Script
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketScripts)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketScripts)
		}
		data := b.Get([]byte(id.String()))
		if data == nil {
			return fmt.Errorf("script %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &sc)
	})
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

func (s *BoltStore) Delete(id uuid.UUID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketScripts)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketScripts)
		}
		return b.Delete([]byte(id.String()))
	})
}

func (s *BoltStore) ListAll() ([]*script.Script, error) {
	var scripts []*script.Script
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketScripts)
		if b == nil {
			return nil // no bucket = no scripts
		}
		scripts = make([]*script.Script, 0, b.Stats().KeyN)
		return b.ForEach(func(k, v []byte) error {
			var sc script.Script
			if err := json.Unmarshal(v, &sc); err != nil {
				return fmt.Errorf("script %s: %w", k, err)
			}
			scripts = append(scripts, &sc)
			return nil
		})
	})
	return scripts, err
}

func (s *BoltStore) FindByName(name string) (*script.Script, error) {
	scripts, err := s.ListAll()
	if err != nil {
		return nil, err
	}
	for _, sc := range scripts {
		if sc.Name == name {
			return sc, nil
		}
	}
	return nil, fmt.Errorf("script %q: %w", name, ErrNotFound)
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
