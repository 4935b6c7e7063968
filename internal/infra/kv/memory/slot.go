// Package memory implements an in-memory kv.Slot for tests and ephemeral runs.
package memory

import (
	"context"
	"sync"

	"leadcrm/internal/infra/kv"
)

// Slot implements kv.Slot backed by process memory.
type Slot struct {
	mu   sync.RWMutex
	objs map[string][]byte
}

// New returns an empty in-memory slot.
func New() *Slot { return &Slot{objs: make(map[string][]byte)} }

// Driver returns the slot driver identifier.
func (s *Slot) Driver() kv.Driver { return kv.DriverMemory }

// Load returns a copy of the payload stored under key.
func (s *Slot) Load(_ context.Context, key string) ([]byte, bool, error) {
	if err := kv.CheckKey(key); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Save stores a copy of payload under key.
func (s *Slot) Save(_ context.Context, key string, payload []byte) error {
	if err := kv.CheckKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objs[key] = append([]byte(nil), payload...)
	return nil
}

// Close is a no-op.
func (s *Slot) Close() error { return nil }
