// Package state owns the persisted AppState document. Store is the only
// code path that writes it.
package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/concordia-classroom/concordia/internal/domain/classroom"
	"github.com/concordia-classroom/concordia/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATE STORE
// Load, apply, save, broadcast. The whole AppState is rewritten on every
// mutation; there is no partial write and no versioning.
// ══════════════════════════════════════════════════════════════════════════════

// Fallback reasons reported to the Recorder.
const (
	FallbackMissing   = "missing"
	FallbackRead      = "read_error"
	FallbackMalformed = "malformed"
)

// Recorder receives store metrics. metrics.Collector implements it.
type Recorder interface {
	StateUpdated()
	StateUpdateFailed()
	LoadFallback(reason string)
}

type noopRecorder struct{}

func (noopRecorder) StateUpdated()       {}
func (noopRecorder) StateUpdateFailed()  {}
func (noopRecorder) LoadFallback(string) {}

// Mutation transforms a loaded state into the next one. It must not keep
// references to the input slices.
type Mutation func(classroom.AppState) (classroom.AppState, error)

// Store persists AppState through a BlobStorage backend and announces changes
// on the event bus.
type Store struct {
	storage  classroom.BlobStorage
	key      string
	bus      shared.EventBus
	recorder Recorder
	logger   *slog.Logger

	// serializes Update within the process
	mu sync.Mutex
}

// StoreConfig contains configuration for Store.
type StoreConfig struct {
	Storage  classroom.BlobStorage
	Bus      shared.EventBus
	Key      string
	Recorder Recorder
	Logger   *slog.Logger
}

// NewStore creates a new Store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Storage == nil {
		return nil, errors.New("state: storage is required")
	}
	if cfg.Bus == nil {
		return nil, errors.New("state: event bus is required")
	}
	if cfg.Key == "" {
		cfg.Key = classroom.StorageKey
	}
	if cfg.Recorder == nil {
		cfg.Recorder = noopRecorder{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Store{
		storage:  cfg.Storage,
		key:      cfg.Key,
		bus:      cfg.Bus,
		recorder: cfg.Recorder,
		logger:   cfg.Logger.With("component", "state_store", "key", cfg.Key),
	}, nil
}

// Key returns the storage key this store reads and writes.
func (s *Store) Key() string {
	return s.key
}

// Load returns the persisted state. It never fails: a missing document, a
// storage error or an unparsable document all yield a fresh seed state.
func (s *Store) Load(ctx context.Context) classroom.AppState {
	st, err := s.load(ctx)
	if err != nil {
		s.recorder.LoadFallback(FallbackRead)
		s.logger.Warn("failed to read state, using seed", "error", err)
		return classroom.SeedState()
	}
	return st
}

// load is the strict read behind Update. Only an absent or unparsable
// document falls back to the seed; any other read error is returned so a
// transient backend failure never overwrites the stored document.
func (s *Store) load(ctx context.Context) (classroom.AppState, error) {
	data, err := s.storage.Read(ctx, s.key)
	if err != nil {
		if !errors.Is(err, shared.ErrBlobNotFound) {
			return classroom.AppState{}, fmt.Errorf("state: load: %w", err)
		}
		s.recorder.LoadFallback(FallbackMissing)
		s.logger.Debug("no persisted state, using seed")
		return classroom.SeedState(), nil
	}

	st, err := classroom.DecodeState(data)
	if err != nil {
		s.recorder.LoadFallback(FallbackMalformed)
		s.logger.Warn("persisted state is malformed, using seed", "error", err, "bytes", len(data))
		return classroom.SeedState(), nil
	}
	return st, nil
}

// Save overwrites the persisted document. It does not broadcast; use Update
// for mutations that observers must see.
func (s *Store) Save(ctx context.Context, st classroom.AppState) error {
	data, err := classroom.EncodeState(st)
	if err != nil {
		return err
	}
	if err := s.storage.Write(ctx, s.key, data); err != nil {
		return fmt.Errorf("state: save: %w", err)
	}
	return nil
}

// Update runs load, fn, save and broadcast as one serialized step and returns
// the new state. If the read, fn or the save fails nothing is written or
// broadcast.
func (s *Store) Update(ctx context.Context, fn Mutation) (classroom.AppState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		s.recorder.StateUpdateFailed()
		s.logger.Error("state update aborted", "error", err)
		return classroom.AppState{}, err
	}
	next, err := fn(current.Clone())
	if err != nil {
		return classroom.AppState{}, err
	}

	if err := s.Save(ctx, next); err != nil {
		s.recorder.StateUpdateFailed()
		s.logger.Error("state update not persisted", "error", err)
		return classroom.AppState{}, err
	}
	s.recorder.StateUpdated()

	s.broadcast()
	return next.Clone(), nil
}

// Reset replaces the persisted document with the seed state.
func (s *Store) Reset(ctx context.Context) (classroom.AppState, error) {
	return s.Update(ctx, func(classroom.AppState) (classroom.AppState, error) {
		return classroom.SeedState(), nil
	})
}

func (s *Store) broadcast() {
	if err := s.bus.Publish(shared.NewStateUpdatedEvent(s.key)); err != nil {
		s.logger.Warn("state.updated not delivered", "error", err)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Observers
// ──────────────────────────────────────────────────────────────────────────────

// Subscription is a registered change observer.
type Subscription struct {
	bus shared.EventSubscriber
	id  shared.SubscriptionID

	once sync.Once
}

// Unsubscribe removes the observer. Safe to call more than once.
func (sub *Subscription) Unsubscribe() {
	sub.once.Do(func() { sub.bus.Unsubscribe(sub.id) })
}

// Subscribe registers fn to run after every successful update, including
// updates made by other instances when the bus is Redis-backed. The event
// carries no state; fn reloads whatever it needs.
func (s *Store) Subscribe(fn func()) (*Subscription, error) {
	if fn == nil {
		return nil, errors.New("state: observer is required")
	}
	id, err := s.bus.Subscribe(shared.EventStateUpdated, func(e shared.Event) error {
		if e.AggregateID() != "" && e.AggregateID() != s.key {
			return nil
		}
		fn()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("state: subscribe: %w", err)
	}
	return &Subscription{bus: s.bus, id: id}, nil
}
