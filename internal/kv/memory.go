package kv

import (
	"context"
	"sync"
)

// Memory is an in-process Store, used as a test double and as the synced
// store when no shared database is configured.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
	err    error
	feed   feed
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func (m *Memory) Subscribe(fn ChangeFunc) func() { return m.feed.subscribe(fn) }

// Inject writes value as if another device had, and notifies subscribers.
func (m *Memory) Inject(key, value string) {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	m.feed.notify([]string{key})
}

// Remove drops key as if another device had cleared it.
func (m *Memory) Remove(key string) {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
}

// SetUnavailable makes every Get and Set fail with err. Pass nil to restore.
func (m *Memory) SetUnavailable(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}
