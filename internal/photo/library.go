// Package photo stores meal photos locally, mirrors them to remote storage
// and resolves a record's photo reference into bytes.
package photo

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/starford/platelog/internal/checksum"
	"github.com/starford/platelog/internal/storage"
)

const photoDir = "photos"

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ContentType sniffs the image type of data.
func ContentType(data []byte) string {
	return http.DetectContentType(data)
}

// Library keeps photo files in the local data directory, keyed by content
// checksum so identical photos share one file.
type Library struct {
	files storage.Provider
}

// NewLibrary returns a Library over files.
func NewLibrary(files storage.Provider) *Library {
	return &Library{files: files}
}

// Save writes data and returns its path relative to the data directory.
// Only image content is accepted.
func (l *Library) Save(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("photo: empty image")
	}
	ext, ok := extensions[ContentType(data)]
	if !ok {
		return "", fmt.Errorf("photo: unsupported content type %q", ContentType(data))
	}
	path := photoDir + "/" + checksum.Sum(data) + ext
	if err := l.files.Write(path, data); err != nil {
		return "", fmt.Errorf("photo: save: %w", err)
	}
	return path, nil
}

// Load reads the photo at path. A file whose content no longer matches
// the checksum in its name is reported as corrupt.
func (l *Library) Load(path string) ([]byte, error) {
	data, err := l.files.Read(path)
	if err != nil {
		return nil, err
	}
	if sum, ok := checksum.FromName(path); ok && !checksum.Verify(data, sum) {
		return nil, fmt.Errorf("photo: %s is corrupt", path)
	}
	return data, nil
}

// Delete removes the photo at path.
func (l *Library) Delete(path string) error {
	return l.files.Delete(path)
}

// Paths lists every stored photo path.
func (l *Library) Paths() ([]string, error) {
	metas, err := l.files.List(photoDir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(metas))
	for _, m := range metas {
		out = append(out, m.Path)
	}
	return out, nil
}

// Clear removes every stored photo and reports how many were removed.
func (l *Library) Clear() (int, error) {
	paths, err := l.Paths()
	if err != nil {
		return 0, fmt.Errorf("photo: list: %w", err)
	}
	var errs []error
	removed := 0
	for _, p := range paths {
		if err := l.Delete(p); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
