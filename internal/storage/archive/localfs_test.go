// internal/storage/archive/localfs_test.go
package archive

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestLocalFS_ImplementsStorage(t *testing.T) {
	var _ Storage = (*LocalFS)(nil)
}

func TestLocalFS_WriteRead(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewLocalFS(dir)
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}

	ctx := context.Background()
	data := []byte("test data")

	if err := fs.Write(ctx, "test/file.txt", data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := fs.Read(ctx, "test/file.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if string(got) != string(data) {
		t.Errorf("got %q, want %q", got, data)
	}
}

func TestLocalFS_Exists(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewLocalFS(dir)
	ctx := context.Background()

	exists, _ := fs.Exists(ctx, "nonexistent.txt")
	if exists {
		t.Error("expected false for nonexistent file")
	}

	fs.Write(ctx, "exists.txt", []byte("data"))
	exists, _ = fs.Exists(ctx, "exists.txt")
	if !exists {
		t.Error("expected true for existing file")
	}
}

func TestLocalFS_List(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewLocalFS(dir)
	ctx := context.Background()

	fs.Write(ctx, "prices/EURUSD/1h/b.csv", []byte("b"))
	fs.Write(ctx, "prices/EURUSD/1h/a.csv", []byte("a"))
	fs.Write(ctx, "prices/GBPUSD/1h/c.csv", []byte("c"))

	paths, err := fs.List(ctx, "prices/EURUSD")
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(paths) != 2 || paths[0] != "prices/EURUSD/1h/a.csv" {
		t.Errorf("expected 2 sorted slash paths, got %v", paths)
	}
}

func TestLocalFS_ListPartialName(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	fs.Write(ctx, "prices/yahoo/EURUSD_1h_20240101_20240201.csv", []byte("a"))
	fs.Write(ctx, "prices/yahoo/EURUSD_4h_20240101_20240201.csv", []byte("b"))
	fs.Write(ctx, "prices/yahoo/GBPUSD_1h_20240101_20240201.csv", []byte("c"))

	paths, err := fs.List(ctx, "prices/yahoo/EURUSD_")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(paths) != 2 || paths[1] != "prices/yahoo/EURUSD_4h_20240101_20240201.csv" {
		t.Errorf("expected the two EURUSD entries, got %v", paths)
	}

	paths, err = fs.List(ctx, "prices/binance/BTC")
	if err != nil || len(paths) != 0 {
		t.Errorf("expected nothing under a missing directory, got %v %v", paths, err)
	}
}

func TestLocalFS_Delete(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewLocalFS(dir)
	ctx := context.Background()

	fs.Write(ctx, "delete.txt", []byte("data"))
	fs.Delete(ctx, "delete.txt")

	exists, _ := fs.Exists(ctx, "delete.txt")
	if exists {
		t.Error("file should be deleted")
	}
}

func TestLocalFS_ReadMissing(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())

	_, err := fs.Read(context.Background(), "missing.csv")
	if !errors.Is(err, ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestLocalFS_RejectsEscapingPaths(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	for _, p := range []string{"../outside.txt", "a/../../outside.txt"} {
		if err := fs.Write(ctx, p, []byte("x")); err == nil {
			t.Errorf("Write(%q) should fail", p)
		}
	}
}

func TestLocalFS_URI(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewLocalFS(dir)

	if got := fs.URI("out/a.json"); got != filepath.Join(dir, "out", "a.json") {
		t.Errorf("URI = %s", got)
	}
}

func TestNew(t *testing.T) {
	s, err := New(Config{Backend: "localfs", Path: t.TempDir()})
	if err != nil {
		t.Fatalf("New localfs: %v", err)
	}
	if _, ok := s.(*LocalFS); !ok {
		t.Errorf("expected *LocalFS, got %T", s)
	}

	if _, err := New(Config{Backend: "s3"}); err == nil {
		t.Error("expected error for s3 without bucket")
	}
	if _, err := New(Config{Backend: "ftp"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
