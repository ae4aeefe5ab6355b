package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func tempDir(t *testing.T) *FS {
	t.Helper()
	f, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return f
}

func TestWriteAndRead(t *testing.T) {
	s := tempDir(t)
	content := []byte{0xff, 0xd8, 0xff, 0xe0}
	if err := s.Write("photos/plate.jpg", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("photos/plate.jpg")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %x", got)
	}
}

func TestReadMissingIsNotExist(t *testing.T) {
	s := tempDir(t)
	_, err := s.Read("nope.jpg")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestDelete(t *testing.T) {
	s := tempDir(t)
	_ = s.Write("del.jpg", []byte("bye"))
	if err := s.Delete("del.jpg"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.jpg"); err == nil {
		t.Error("expected error reading deleted file")
	}
	if err := s.Delete("del.jpg"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestList(t *testing.T) {
	s := tempDir(t)
	_ = s.Write("photos/a.jpg", []byte("a"))
	_ = s.Write("photos/sub/b.jpg", []byte("b"))
	_ = s.Write("cache.yaml", []byte("c: 1"))

	items, err := s.List("photos")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	for _, it := range items {
		if it.Checksum == "" || it.Size != 1 {
			t.Errorf("bad meta: %+v", it)
		}
	}

	items, err = s.List("missing")
	if err != nil || len(items) != 0 {
		t.Errorf("List(missing) = %v, %v", items, err)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempDir(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.jpg",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempDir(t)
	_ = s.Write("cache.yaml", []byte("original"))
	if err := s.Write("cache.yaml", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("cache.yaml")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.Root(), tmpPrefix+"*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "platelog-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
