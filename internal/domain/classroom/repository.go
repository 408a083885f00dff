package classroom

import "context"

// BlobStorage - долговременное хранилище одного документа под ключом.
// Реализации: file, redis, postgres, sqlite (infrastructure/persistence).
//
// Read возвращает shared.ErrBlobNotFound, если под ключом ничего нет.
// Write перезаписывает документ целиком одной операцией.
type BlobStorage interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Ping(ctx context.Context) error
	Close() error
}
