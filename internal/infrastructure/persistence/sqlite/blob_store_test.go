package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concordia-classroom/concordia/internal/domain/shared"
)

func openTemp(t *testing.T) *BlobStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "concordia.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBlobStore_ReadMissing(t *testing.T) {
	store := openTemp(t)

	_, err := store.Read(context.Background(), "concordia_data_v1")
	assert.ErrorIs(t, err, shared.ErrBlobNotFound)
}

func TestBlobStore_UpsertOverwritesAndCountsRevisions(t *testing.T) {
	store := openTemp(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "concordia_data_v1", []byte(`{"classes":[]}`)))
	require.NoError(t, store.Write(ctx, "concordia_data_v1", []byte(`{"classes":[{"id":"c1"}]}`)))

	data, err := store.Read(ctx, "concordia_data_v1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"classes":[{"id":"c1"}]}`, string(data))

	rev, err := store.Revision(ctx, "concordia_data_v1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)
}

func TestBlobStore_KeysAreIndependent(t *testing.T) {
	store := openTemp(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "a", []byte("{}")))

	_, err := store.Read(ctx, "b")
	assert.ErrorIs(t, err, shared.ErrBlobNotFound)

	rev, err := store.Revision(ctx, "b")
	require.NoError(t, err)
	assert.Zero(t, rev)
}

func TestBlobStore_Ping(t *testing.T) {
	store := openTemp(t)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
