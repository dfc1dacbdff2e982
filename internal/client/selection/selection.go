// Package selection tracks which catalog items an operator has selected
// for a bulk action. The set is persisted per content type in a local
// BoltDB file so it survives across CLI invocations and paginated listing.
package selection

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

// One bucket per content type; keys are big-endian item ids so iteration
// order matches numeric order.
var knownTypes = []string{"movie", "series"}

// Store is a persisted per-content-type selection set.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the selection database under dir. An empty dir
// defaults to ~/.medialib.
func Open(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".medialib")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "selection.db")
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open selection db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range knownTypes {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func bucketFor(tx *bolt.Tx, contentType string) (*bolt.Bucket, error) {
	b := tx.Bucket([]byte(contentType))
	if b == nil {
		return nil, fmt.Errorf("unknown content type: %s", contentType)
	}
	return b, nil
}

func itemKey(id int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

// Add puts ids into the selection for a content type.
func (s *Store) Add(contentType string, ids ...int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucketFor(tx, contentType)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := b.Put(itemKey(id), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// Remove drops ids from the selection for a content type.
func (s *Store) Remove(contentType string, ids ...int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucketFor(tx, contentType)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := b.Delete(itemKey(id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Toggle flips one id's membership and reports whether it is now selected.
func (s *Store) Toggle(contentType string, id int64) (bool, error) {
	var selected bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucketFor(tx, contentType)
		if err != nil {
			return err
		}
		key := itemKey(id)
		if b.Get(key) != nil {
			return b.Delete(key)
		}
		selected = true
		return b.Put(key, nil)
	})
	return selected, err
}

// Clear empties the selection for a content type.
func (s *Store) Clear(contentType string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if _, err := bucketFor(tx, contentType); err != nil {
			return err
		}
		if err := tx.DeleteBucket([]byte(contentType)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(contentType))
		return err
	})
}

// IDs returns the selected ids for a content type in ascending order.
func (s *Store) IDs(contentType string) ([]int64, error) {
	var ids []int64
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucketFor(tx, contentType)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, _ []byte) error {
			ids = append(ids, int64(binary.BigEndian.Uint64(k)))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Count returns the selection size for a content type.
func (s *Store) Count(contentType string) (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucketFor(tx, contentType)
		if err != nil {
			return err
		}
		n = b.Stats().KeyN
		return nil
	})
	return n, err
}

// Contains reports whether an id is selected.
func (s *Store) Contains(contentType string, id int64) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucketFor(tx, contentType)
		if err != nil {
			return err
		}
		found = b.Get(itemKey(id)) != nil
		return nil
	})
	return found, err
}

// AllSelected reports whether every visible id is selected. This is always
// derived from the stored set, never cached, so a "select all" indicator
// cannot go stale.
func (s *Store) AllSelected(contentType string, visible []int64) (bool, error) {
	if len(visible) == 0 {
		return false, nil
	}
	all := true
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucketFor(tx, contentType)
		if err != nil {
			return err
		}
		for _, id := range visible {
			if b.Get(itemKey(id)) == nil {
				all = false
				return nil
			}
		}
		return nil
	})
	return all, err
}

// ToggleAll selects every visible id, or deselects all of them when every
// one is already selected. Mirrors a list page's header checkbox.
func (s *Store) ToggleAll(contentType string, visible []int64) error {
	all, err := s.AllSelected(contentType, visible)
	if err != nil {
		return err
	}
	if all {
		return s.Remove(contentType, visible...)
	}
	return s.Add(contentType, visible...)
}
