package postgres

import (
	"context"
	"fmt"

	"github.com/concordia-classroom/concordia/internal/domain/classroom"
	"github.com/concordia-classroom/concordia/internal/domain/shared"
)

const (
	selectStateSQL = `SELECT data FROM app_state WHERE key = $1`

	upsertStateSQL = `
INSERT INTO app_state (key, data, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE
SET data = EXCLUDED.data,
    updated_at = EXCLUDED.updated_at,
    revision = app_state.revision + 1`
)

var _ classroom.BlobStorage = (*BlobStore)(nil)

// BlobStore keeps state documents in the app_state table.
type BlobStore struct {
	conn *Connection
	q    Querier
	cfg  Config
}

// NewBlobStore wraps a connection. Run the Migrator first.
func NewBlobStore(conn *Connection, cfg Config) *BlobStore {
	return &BlobStore{conn: conn, q: conn.Pool(), cfg: cfg}
}

func (s *BlobStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.QueryTimeout)
}

// Read returns the document or shared.ErrBlobNotFound.
func (s *BlobStore) Read(ctx context.Context, key string) ([]byte, error) {
	if s.conn.IsClosed() {
		return nil, ErrConnectionClosed
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var data string
	if err := s.q.QueryRow(ctx, selectStateSQL, key).Scan(&data); err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrBlobNotFound
		}
		return nil, fmt.Errorf("postgres: read %s: %w", key, err)
	}
	return []byte(data), nil
}

// Write upserts the document in one statement.
func (s *BlobStore) Write(ctx context.Context, key string, data []byte) error {
	if s.conn.IsClosed() {
		return ErrConnectionClosed
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.q.Exec(ctx, upsertStateSQL, key, string(data)); err != nil {
		return fmt.Errorf("postgres: write %s: %w", key, err)
	}
	return nil
}

// Ping checks if the database connection is alive.
func (s *BlobStore) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close closes the pool.
func (s *BlobStore) Close() error {
	s.conn.Close()
	return nil
}
