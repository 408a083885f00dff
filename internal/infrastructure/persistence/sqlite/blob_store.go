// Package sqlite stores state documents in an embedded SQLite database via gorm.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/concordia-classroom/concordia/internal/domain/classroom"
	"github.com/concordia-classroom/concordia/internal/domain/shared"
)

// AppStateRecord is the single table row: one document per key.
type AppStateRecord struct {
	Key       string `gorm:"primaryKey;size:128"`
	Data      string `gorm:"type:text;not null"`
	Revision  int64  `gorm:"not null;default:1"`
	UpdatedAt time.Time
}

// TableName pins the table name shared with the postgres backend.
func (AppStateRecord) TableName() string {
	return "app_state"
}

// ErrKeyEmpty is returned for an empty storage key.
var ErrKeyEmpty = errors.New("sqlite: key cannot be empty")

var _ classroom.BlobStorage = (*BlobStore)(nil)

// BlobStore is a gorm-backed classroom.BlobStorage.
type BlobStore struct {
	db *gorm.DB
}

// Open opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for a throwaway database.
func Open(path string) (*BlobStore, error) {
	if path == "" {
		return nil, errors.New("sqlite: path is required")
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	// one writer at a time; SQLite serializes anyway and ":memory:" is per-connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite: handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&AppStateRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return &BlobStore{db: db}, nil
}

// Read returns the document or shared.ErrBlobNotFound.
func (s *BlobStore) Read(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrKeyEmpty
	}
	var rec AppStateRecord
	err := s.db.WithContext(ctx).Where(&AppStateRecord{Key: key}).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrBlobNotFound
		}
		return nil, fmt.Errorf("sqlite: read %s: %w", key, err)
	}
	return []byte(rec.Data), nil
}

// Write upserts the document and bumps its revision.
func (s *BlobStore) Write(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return ErrKeyEmpty
	}
	rec := AppStateRecord{Key: key, Data: string(data), Revision: 1, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"data":       rec.Data,
			"updated_at": rec.UpdatedAt,
			"revision":   gorm.Expr("app_state.revision + 1"),
		}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("sqlite: write %s: %w", key, err)
	}
	return nil
}

// Revision returns how many times key has been written (0 when absent).
func (s *BlobStore) Revision(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, ErrKeyEmpty
	}
	var rec AppStateRecord
	err := s.db.WithContext(ctx).Select("revision").Where(&AppStateRecord{Key: key}).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return rec.Revision, err
}

// Ping checks the underlying connection.
func (s *BlobStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database.
func (s *BlobStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
