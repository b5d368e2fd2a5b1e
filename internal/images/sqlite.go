package images

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	appErrors "nodeflow/internal/errors"

	"github.com/klauspost/compress/zstd"
)

// DefaultCompressionLevel is the zstd level used for new blobs.
const DefaultCompressionLevel = 3

// SQLiteStore keeps zstd-compressed blobs in an images table. It shares the
// database handle opened by the storage package.
type SQLiteStore struct {
	db      *sql.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewSQLiteStore ensures the images table exists and prepares the codecs.
func NewSQLiteStore(ctx context.Context, db *sql.DB, level int) (*SQLiteStore, error) {
	if db == nil {
		return nil, appErrors.New(appErrors.CodeStorageUnavailable, "images: database handle is required", nil)
	}
	if level <= 0 {
		level = DefaultCompressionLevel
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS images (
			id         TEXT PRIMARY KEY,
			data       BLOB NOT NULL,
			size       INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)
	`); err != nil {
		return nil, appErrors.New(appErrors.CodeStorageUnavailable, "create images table", err)
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		_ = encoder.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &SQLiteStore{db: db, encoder: encoder, decoder: decoder}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, id string, data []byte) error {
	compressed := s.encoder.EncodeAll(data, make([]byte, 0, len(data)/2))
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO images (id, data, size, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, size = excluded.size
	`, id, compressed, len(data), time.Now().UnixMilli())
	if err != nil {
		return appErrors.New(appErrors.CodePersistFailed, "write image "+id, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) ([]byte, bool, error) {
	var compressed []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM images WHERE id = ?`, id).Scan(&compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read image %s: %w", id, err)
	}
	data, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, false, appErrors.New(appErrors.CodeDecodeFailed, "decompress image "+id, err)
	}
	return data, true, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete image %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM images WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("check image %s: %w", id, err)
	}
	return n > 0, nil
}

// Close releases the codecs. The database handle belongs to the caller.
func (s *SQLiteStore) Close() error {
	s.decoder.Close()
	return s.encoder.Close()
}
