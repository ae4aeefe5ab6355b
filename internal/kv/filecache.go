package kv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/starford/platelog/internal/storage"
)

// FileCache is the device-local Store: a YAML map persisted through a
// storage.Provider. It never reports external changes.
type FileCache struct {
	files storage.Provider
	path  string

	mu     sync.Mutex
	values map[string]string
}

var _ Store = (*FileCache)(nil)

// OpenFileCache loads path from files, starting empty if it does not exist.
func OpenFileCache(files storage.Provider, path string) (*FileCache, error) {
	c := &FileCache{files: files, path: path, values: make(map[string]string)}
	data, err := files.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("kv: read cache: %w", err)
	}
	if err := yaml.Unmarshal(data, &c.values); err != nil {
		return nil, fmt.Errorf("kv: parse cache %s: %w", path, err)
	}
	if c.values == nil {
		c.values = make(map[string]string)
	}
	return c, nil
}

func (c *FileCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok, nil
}

// Set updates the value and rewrites the cache file atomically.
func (c *FileCache) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, had := c.values[key]
	c.values[key] = value
	data, err := yaml.Marshal(c.values)
	if err == nil {
		err = c.files.Write(c.path, data)
	}
	if err != nil {
		if had {
			c.values[key] = prev
		} else {
			delete(c.values, key)
		}
		return fmt.Errorf("kv: write cache: %w", err)
	}
	return nil
}

func (c *FileCache) Subscribe(ChangeFunc) func() { return func() {} }
