// Package snapshot provides the persistent store: the in-memory state holder
// written through to a durable kv.Slot as a single JSON document on every
// committed transaction.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"leadcrm/internal/infra/kv"
	"leadcrm/internal/infra/persistence/memory"
	"leadcrm/pkg/domain"
)

// DefaultKey is the slot key used when none is configured.
const DefaultKey = "leadcrm.state"

var _ domain.PersistentStore = (*Store)(nil)

// Store wraps memory.Store and persists every commit to a kv.Slot. Only the
// domain.PersistentStore surface is exported so the write-through hook and
// the held state cannot be replaced from outside.
type Store struct {
	mem    *memory.Store
	slot   kv.Slot
	key    string
	logger logrus.FieldLogger

	mu       sync.Mutex
	recovery error
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the slot key.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithLogger sets the logger used for recovery warnings.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open loads the snapshot held in slot and returns a store that writes through
// to it. A missing snapshot starts from domain.DefaultState. An unreadable
// snapshot is logged, replaced with defaults and re-persisted.
func Open(ctx context.Context, slot kv.Slot, engine *domain.RulesEngine, opts ...Option) (*Store, error) {
	s := &Store{
		mem:   memory.NewStore(engine),
		slot:  slot,
		key:   DefaultKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		s.logger = discard
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	s.mem.SetCommitHook(s.persist)
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	payload, ok, err := s.slot.Load(ctx, s.key)
	if err != nil {
		return fmt.Errorf("load %s: %w", s.key, err)
	}
	if !ok {
		return nil
	}
	state, err := Decode(payload)
	if err == nil {
		s.mem.ImportState(state)
		return nil
	}
	perr := &domain.PersistenceParseError{Key: s.key, Err: err}
	s.logger.WithFields(logrus.Fields{
		"key":    s.key,
		"driver": s.slot.Driver(),
	}).WithError(err).Warn("stored state unreadable; resetting to defaults")
	s.mu.Lock()
	s.recovery = perr
	s.mu.Unlock()

	defaults := domain.DefaultState()
	s.mem.ImportState(defaults)
	if err := s.persist(ctx, defaults); err != nil {
		return fmt.Errorf("re-persist defaults: %w", err)
	}
	return nil
}

// Decode parses a stored snapshot. Keys absent from payload keep their
// default values; null collections become empty.
func Decode(payload []byte) (domain.State, error) {
	state := domain.DefaultState()
	if err := json.Unmarshal(payload, &state); err != nil {
		return domain.State{}, err
	}
	return state.Normalize(), nil
}

// Encode renders state in the stored snapshot format.
func Encode(state domain.State) ([]byte, error) {
	return json.Marshal(state.Normalize())
}

func (s *Store) persist(ctx context.Context, state domain.State) error {
	payload, err := Encode(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := s.slot.Save(ctx, s.key, payload); err != nil {
		return fmt.Errorf("save %s: %w", s.key, err)
	}
	return nil
}

// RunInTransaction applies fn to a copy of the state and persists the result
// before committing it.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	return s.mem.RunInTransaction(ctx, fn)
}

// View runs fn against a read-only snapshot.
func (s *Store) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	return s.mem.View(ctx, fn)
}

// ExportState returns a deep copy of the committed state.
func (s *Store) ExportState() domain.State { return s.mem.ExportState() }

// Recovery returns the *domain.PersistenceParseError raised while loading,
// or nil when the stored snapshot was readable.
func (s *Store) Recovery() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recovery
}

// Key returns the slot key the store writes to.
func (s *Store) Key() string { return s.key }

// Driver returns the backing slot driver.
func (s *Store) Driver() kv.Driver { return s.slot.Driver() }

// Close releases the backing slot.
func (s *Store) Close() error { return s.slot.Close() }
