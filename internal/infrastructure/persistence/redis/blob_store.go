package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/concordia-classroom/concordia/internal/domain/classroom"
	"github.com/concordia-classroom/concordia/internal/domain/shared"
)

// PrefixState namespaces state documents.
const PrefixState = "state:"

var _ classroom.BlobStorage = (*BlobStore)(nil)

// BlobStore keeps each document as a plain string value without TTL.
type BlobStore struct {
	client *Client
	prefix string
}

// NewBlobStore wraps a connected client. An empty prefix uses PrefixState.
func NewBlobStore(client *Client, prefix string) *BlobStore {
	if prefix == "" {
		prefix = PrefixState
	}
	return &BlobStore{client: client, prefix: prefix}
}

func (s *BlobStore) redisKey(key string) string {
	return s.prefix + key
}

// Read returns the document or shared.ErrBlobNotFound.
func (s *BlobStore) Read(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrKeyEmpty
	}

	data, err := s.client.rdb.Get(ctx, s.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.ErrBlobNotFound
		}
		return nil, fmt.Errorf("redis: get %s: %w", key, err)
	}
	return data, nil
}

// Write overwrites the document in one SET.
func (s *BlobStore) Write(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return ErrKeyEmpty
	}
	if err := s.client.rdb.Set(ctx, s.redisKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}

// Ping checks if Redis is reachable.
func (s *BlobStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close closes the shared client.
func (s *BlobStore) Close() error {
	return s.client.Close()
}
