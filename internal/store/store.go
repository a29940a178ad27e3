// Package store persists presets and batch history in a local bitcask
// key/value store. Values are JSON documents keyed by a type prefix.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"git.mills.io/prologic/bitcask"
	log "github.com/sirupsen/logrus"
)

// ErrNotFound is returned when a key is not found in the store.
var ErrNotFound = errors.New("key not found")

// Key prefixes. Presets and batch run records share one store.
const (
	PresetPrefix = "preset_"
	RunPrefix    = "run_"
)

// maxValueSize bounds a single stored document. Batch records carry no image
// bytes, only metadata, so this is generous.
const maxValueSize = 16 << 20

// Store wraps the bitcask instance and provides JSON helpers.
type Store struct {
	db        *bitcask.Bitcask
	closeOnce sync.Once
	closeErr  error
}

// Open initializes and returns a Store rooted at path (a directory).
func Open(path string) (*Store, error) {
	parent := filepath.Dir(path)
	if parent != "." && parent != "/" {
		if err := os.MkdirAll(parent, 0700); err != nil {
			return nil, fmt.Errorf("failed to create store directory %s: %w", parent, err)
		}
	}

	db, err := bitcask.Open(path, bitcask.WithMaxValueSize(maxValueSize))
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", path, err)
	}

	log.Debugf("Store opened at %s", path)
	return &Store{db: db}, nil
}

// Get returns the raw value for key.
func (s *Store) Get(key []byte) ([]byte, error) {
	value, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, bitcask.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

// Put stores value under key.
func (s *Store) Put(key, value []byte) error {
	return s.db.Put(key, value)
}

// Delete removes key from the store.
func (s *Store) Delete(key []byte) error {
	return s.db.Delete(key)
}

// Has reports whether key exists.
func (s *Store) Has(key []byte) bool {
	return s.db.Has(key)
}

// Fold iterates all key/value pairs. The callback returning an error stops
// the iteration and propagates it.
func (s *Store) Fold(fn func(key, value []byte) error) error {
	return s.db.Fold(func(key []byte) error {
		value, err := s.db.Get(key)
		if err != nil {
			return err
		}
		return fn(key, value)
	})
}

// GetJSON unmarshals the value at key into out.
func (s *Store) GetJSON(key string, out interface{}) error {
	raw, err := s.Get([]byte(key))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal store entry %q: %w", key, err)
	}
	return nil
}

// PutJSON marshals v and stores it under key.
func (s *Store) PutJSON(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal store entry %q: %w", key, err)
	}
	return s.Put([]byte(key), raw)
}

// ListKeys returns every key carrying the given prefix, with the prefix
// stripped.
func (s *Store) ListKeys(prefix string) ([]string, error) {
	var keys []string
	err := s.db.Fold(func(key []byte) error {
		k := string(key)
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, strings.TrimPrefix(k, prefix))
		}
		return nil
	})
	return keys, err
}

// Close syncs and closes the underlying store. Safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}
