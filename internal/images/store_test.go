package images

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"nodeflow/internal/storage"
)

func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	payload := bytes.Repeat([]byte("png-bytes-"), 512)

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected absent blob, got ok=%v err=%v", ok, err)
	}
	if err := s.Put(ctx, "img-1", payload); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := s.Get(ctx, "img-1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: got %d bytes", len(got))
	}
	if exists, err := s.Exists(ctx, "img-1"); err != nil || !exists {
		t.Fatalf("expected blob to exist, got %v %v", exists, err)
	}
	if err := s.Delete(ctx, "img-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "never-stored"); err != nil {
		t.Fatalf("deleting an unknown id should succeed: %v", err)
	}
	if exists, _ := s.Exists(ctx, "img-1"); exists {
		t.Fatalf("expected blob to be gone")
	}
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestMemoryStoreCopiesInput(t *testing.T) {
	m := NewMemoryStore()
	data := []byte("abc")
	_ = m.Put(context.Background(), "a", data)
	data[0] = 'z'
	got, _, _ := m.Get(context.Background(), "a")
	if string(got) != "abc" {
		t.Fatalf("expected stored copy to be isolated, got %q", got)
	}
}

func newSQLiteStore(t *testing.T) (*SQLiteStore, *storage.SQLite) {
	t.Helper()
	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, filepath.Join(t.TempDir(), "nodeflow.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	s, err := NewSQLiteStore(ctx, db.DB(), 0)
	if err != nil {
		_ = db.Close()
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
		_ = db.Close()
	})
	return s, db
}

func TestSQLiteStore(t *testing.T) {
	s, _ := newSQLiteStore(t)
	storeContract(t, s)
}

func TestSQLiteStoreCompressesBlobs(t *testing.T) {
	s, db := newSQLiteStore(t)
	ctx := context.Background()
	payload := bytes.Repeat([]byte{0x42}, 64*1024)
	if err := s.Put(ctx, "big", payload); err != nil {
		t.Fatalf("Put: %v", err)
	}
	var stored, size int
	if err := db.DB().QueryRowContext(ctx, `SELECT length(data), size FROM images WHERE id = ?`, "big").Scan(&stored, &size); err != nil {
		t.Fatalf("query: %v", err)
	}
	if size != len(payload) {
		t.Fatalf("expected size column %d, got %d", len(payload), size)
	}
	if stored >= len(payload)/10 {
		t.Fatalf("expected compressed blob, stored %d bytes for %d", stored, len(payload))
	}
}

func TestSQLiteStoreOverwrite(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()
	_ = s.Put(ctx, "a", []byte("one"))
	_ = s.Put(ctx, "a", []byte("two"))
	got, _, err := s.Get(ctx, "a")
	if err != nil || string(got) != "two" {
		t.Fatalf("expected overwritten blob, got %q err=%v", got, err)
	}
}

func TestNewSQLiteStoreRequiresDB(t *testing.T) {
	if _, err := NewSQLiteStore(context.Background(), nil, 0); err == nil {
		t.Fatalf("expected error for nil db")
	}
}
