// Package configstore holds one application's configuration in memory behind
// a single lock. Stores for different applications are independent and never
// contend.
package configstore

import (
	"fmt"
	"sync"

	"github.com/c360/configbroker/errors"
	"github.com/c360/configbroker/variant"
)

// Store is the concurrent-safe typed key/value store for one application.
// During a session the store is the source of truth; the backing file is a
// best-effort mirror.
type Store struct {
	mu     sync.RWMutex
	values variant.Map
}

// New creates a store seeded with an independent copy of initial
func New(initial variant.Map) *Store {
	return &Store{values: initial.Clone()}
}

// GetAll returns a snapshot copy of all key/value pairs. The caller gets an
// independent map; later writes to the store are not observed through it.
func (s *Store) GetAll() variant.Map {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.Clone()
}

// Set replaces or inserts the entry for key. It fails with ErrInvalidArgument
// when key is empty or value is unset. No semantic validation beyond type and
// presence is performed: overwriting a key with an incompatible type, or
// setting a negative timeout, is accepted.
func (s *Store) Set(key string, value variant.Value) error {
	if key == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: key cannot be empty", errors.ErrInvalidArgument),
			"Store", "Set", "validate key")
	}
	if !value.IsSet() {
		return errors.WrapInvalid(
			fmt.Errorf("%w: value cannot be unset", errors.ErrInvalidArgument),
			"Store", "Set", "validate value")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Len returns the number of entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
