// Package storage keeps local files (meal photos, the settings cache) under
// one data directory.
package storage

import "time"

// FileMeta describes a stored file.
type FileMeta struct {
	Path      string
	Checksum  string
	Size      int64
	UpdatedAt time.Time
}

// Provider is the interface for data-directory file operations. Paths are
// relative to the directory root.
type Provider interface {
	// List returns metadata for every file under dir.
	List(dir string) ([]FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}
