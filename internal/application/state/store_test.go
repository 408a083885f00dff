package state

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concordia-classroom/concordia/internal/domain/classroom"
	"github.com/concordia-classroom/concordia/internal/domain/shared"
	"github.com/concordia-classroom/concordia/internal/infrastructure/messaging"
)

// memoryStorage is an in-memory BlobStorage.
type memoryStorage struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	readErr  error
	writeErr error
	writes   int
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{blobs: make(map[string][]byte)}
}

func (m *memoryStorage) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	data, ok := m.blobs[key]
	if !ok {
		return nil, shared.ErrBlobNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *memoryStorage) Write(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes++
	m.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (m *memoryStorage) Ping(context.Context) error { return nil }
func (m *memoryStorage) Close() error               { return nil }

type countingRecorder struct {
	updates   int
	failures  int
	fallbacks map[string]int
}

func (r *countingRecorder) StateUpdated()      { r.updates++ }
func (r *countingRecorder) StateUpdateFailed() { r.failures++ }
func (r *countingRecorder) LoadFallback(reason string) {
	if r.fallbacks == nil {
		r.fallbacks = map[string]int{}
	}
	r.fallbacks[reason]++
}

func newTestStore(t *testing.T) (*Store, *memoryStorage, *countingRecorder) {
	t.Helper()
	storage := newMemoryStorage()
	rec := &countingRecorder{}
	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{AsyncMode: false})
	t.Cleanup(func() { _ = bus.Close() })

	store, err := NewStore(StoreConfig{Storage: storage, Bus: bus, Recorder: rec})
	require.NoError(t, err)
	return store, storage, rec
}

func addClass(name string) Mutation {
	return func(s classroom.AppState) (classroom.AppState, error) {
		return s.WithClass(classroom.ClassGroup{ID: "c9", Name: name, Color: "bg-red-500"}), nil
	}
}

func TestStore_LoadMissingReturnsSeed(t *testing.T) {
	store, storage, rec := newTestStore(t)

	st := store.Load(context.Background())

	assert.Equal(t, classroom.SeedState(), st)
	assert.Equal(t, 1, rec.fallbacks[FallbackMissing])
	assert.Zero(t, storage.writes, "load must not persist the seed")
}

func TestStore_LoadMalformedReturnsSeed(t *testing.T) {
	store, storage, rec := newTestStore(t)
	storage.blobs[classroom.StorageKey] = []byte("not json at all")

	st := store.Load(context.Background())

	assert.Equal(t, classroom.SeedState(), st)
	assert.Equal(t, 1, rec.fallbacks[FallbackMalformed])
}

func TestStore_LoadReadErrorReturnsSeed(t *testing.T) {
	store, storage, rec := newTestStore(t)
	storage.readErr = errors.New("disk on fire")

	st := store.Load(context.Background())

	assert.Equal(t, classroom.SeedState(), st)
	assert.Equal(t, 1, rec.fallbacks[FallbackRead])
}

func TestStore_UpdateReadErrorKeepsStoredState(t *testing.T) {
	store, storage, rec := newTestStore(t)
	ctx := context.Background()

	stored := classroom.AppState{
		Classes: []classroom.ClassGroup{{ID: "real", Name: "Physik 9a", Color: "bg-blue-500"}},
		ParticipationLogs: []classroom.ParticipationLog{
			{ID: "p1", StudentID: "s1", ClassID: "real", Date: "2024-03-04", Score: 2},
		},
	}
	require.NoError(t, store.Save(ctx, stored))
	writes := storage.writes

	var notified int
	_, err := store.Subscribe(func() { notified++ })
	require.NoError(t, err)

	timeout := errors.New("i/o timeout")
	storage.readErr = timeout
	_, err = store.Update(ctx, addClass("Kunst 6c"))

	assert.ErrorIs(t, err, timeout)
	assert.Equal(t, writes, storage.writes)
	assert.Zero(t, notified)
	assert.Equal(t, 1, rec.failures)
	assert.Zero(t, rec.fallbacks[FallbackRead])

	storage.readErr = nil
	after := store.Load(ctx)
	require.Len(t, after.Classes, 1)
	assert.Equal(t, "real", after.Classes[0].ID)
	require.Len(t, after.ParticipationLogs, 1)
	assert.Equal(t, "p1", after.ParticipationLogs[0].ID)
}

func TestStore_UpdateOnMalformedStartsFromSeed(t *testing.T) {
	store, storage, _ := newTestStore(t)
	storage.blobs[classroom.StorageKey] = []byte("{broken")

	next, err := store.Update(context.Background(), addClass("Kunst 6c"))

	require.NoError(t, err)
	assert.Len(t, next.Classes, 3)
}

func TestStore_SaveThenLoadRoundTrips(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	want := classroom.SeedState().WithClass(classroom.ClassGroup{ID: "c3", Name: "Kunst 6c", Color: "bg-pink-500"})
	require.NoError(t, store.Save(ctx, want))

	assert.Equal(t, want, store.Load(ctx))
}

func TestStore_UpdatePersistsAndNotifies(t *testing.T) {
	store, storage, rec := newTestStore(t)
	ctx := context.Background()

	var notified int
	sub, err := store.Subscribe(func() { notified++ })
	require.NoError(t, err)
	defer sub.Unsubscribe()

	next, err := store.Update(ctx, addClass("Kunst 6c"))
	require.NoError(t, err)

	assert.Len(t, next.Classes, 3)
	assert.Equal(t, next, store.Load(ctx))
	assert.Equal(t, 1, storage.writes)
	assert.Equal(t, 1, notified)
	assert.Equal(t, 1, rec.updates)
}

func TestStore_UpdateMutationErrorWritesNothing(t *testing.T) {
	store, storage, _ := newTestStore(t)

	var notified int
	_, err := store.Subscribe(func() { notified++ })
	require.NoError(t, err)

	_, err = store.Update(context.Background(), func(s classroom.AppState) (classroom.AppState, error) {
		return s, shared.ErrClassNotFound
	})

	assert.ErrorIs(t, err, shared.ErrClassNotFound)
	assert.Zero(t, storage.writes)
	assert.Zero(t, notified)
}

func TestStore_UpdateSaveFailureDoesNotNotify(t *testing.T) {
	store, storage, rec := newTestStore(t)
	storage.writeErr = errors.New("quota exceeded")

	var notified int
	_, err := store.Subscribe(func() { notified++ })
	require.NoError(t, err)

	_, err = store.Update(context.Background(), addClass("Kunst"))

	assert.Error(t, err)
	assert.Zero(t, notified)
	assert.Equal(t, 1, rec.failures)
}

func TestStore_UnsubscribeStopsNotifications(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	var notified int
	sub, err := store.Subscribe(func() { notified++ })
	require.NoError(t, err)

	_, _ = store.Update(ctx, addClass("A"))
	sub.Unsubscribe()
	sub.Unsubscribe()
	_, _ = store.Update(ctx, addClass("B"))

	assert.Equal(t, 1, notified)
}

func TestStore_ConcurrentUpdatesAreSerialized(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, func(s classroom.AppState) (classroom.AppState, error) {
				return s.WithStudent(classroom.Student{ID: classroom.NewID(), Name: "X", ClassID: "c1"}), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, store.Load(ctx).Students, 3+20)
}

func TestStore_ResetWritesSeed(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Update(ctx, addClass("A"))
	require.NoError(t, err)

	st, err := store.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, classroom.SeedState(), st)
	assert.Equal(t, classroom.SeedState(), store.Load(ctx))
}

func TestNewStore_RequiresDependencies(t *testing.T) {
	_, err := NewStore(StoreConfig{})
	assert.Error(t, err)
}
