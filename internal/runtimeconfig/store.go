// Package runtimeconfig holds the mutable, process-wide settings store.
// Storage only: which keys exist, their types and whether a key is
// critical is owned by the static schema in internal/config.
package runtimeconfig

import (
	"os"
	"sync"

	"github.com/spf13/cast"
	log "github.com/sirupsen/logrus"
)

// Store is a thread-safe string key/value store. Values are always stored
// as strings; typed accessors parse on read and fall back to the supplied
// default on parse failure. Writes are mirrored into the process
// environment (best-effort) so code reading os.Getenv sees the same value.
type Store struct {
	mu     sync.Mutex
	values map[string]string
}

func New(seed map[string]string) *Store {
	s := &Store{values: make(map[string]string, len(seed))}
	for k, v := range seed {
		s.values[k] = v
	}
	return s
}

// NewFromEnvironment seeds the store with the current environment value of
// every key that is set; unset keys are left absent so reads fall back to
// schema defaults.
func NewFromEnvironment(keys []string) *Store {
	s := New(nil)
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			s.values[k] = v
		}
	}
	return s
}

func (s *Store) Get(key, def string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

func (s *Store) GetInt(key string, def int) int {
	s.mu.Lock()
	v, ok := s.values[key]
	s.mu.Unlock()
	if !ok {
		return def
	}
	parsed, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return parsed
}

func (s *Store) GetFloat(key string, def float64) float64 {
	s.mu.Lock()
	v, ok := s.values[key]
	s.mu.Unlock()
	if !ok {
		return def
	}
	parsed, err := cast.ToFloat64E(v)
	if err != nil {
		return def
	}
	return parsed
}

func (s *Store) GetBool(key string, def bool) bool {
	s.mu.Lock()
	v, ok := s.values[key]
	s.mu.Unlock()
	if !ok {
		return def
	}
	parsed, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return parsed
}

func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok
}

func (s *Store) Set(key, value string) {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	if err := os.Setenv(key, value); err != nil {
		log.Warnf("runtimeconfig: failed to mirror %s into environment: %v", key, err)
	}
}

// Update applies all entries under a single critical section so a
// concurrent All never observes a partial batch.
func (s *Store) Update(entries map[string]string) {
	s.mu.Lock()
	for k, v := range entries {
		s.values[k] = v
	}
	s.mu.Unlock()
	for k, v := range entries {
		if err := os.Setenv(k, v); err != nil {
			log.Warnf("runtimeconfig: failed to mirror %s into environment: %v", k, err)
		}
	}
}

// All returns an independent snapshot; callers never observe later mutations.
func (s *Store) All() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// ReloadFromEnvironment re-reads the given keys from the environment,
// overwriting stored values for keys that are set there.
func (s *Store) ReloadFromEnvironment(keys []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			s.values[k] = v
		}
	}
}
