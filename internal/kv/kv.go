// Package kv is the synchronized key-value seam used for the usage counter,
// the congratulated-awards set and the tag category registry.
//
// Writers are last-writer-wins. Subscribers are told about keys changed by
// another writer, never about their own Set calls.
package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
)

// ChangeFunc receives the keys changed by another writer.
type ChangeFunc func(keys []string)

// Store is a string key-value store with an external-change feed.
type Store interface {
	// Get returns the value for key and whether it is present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes value under key.
	Set(ctx context.Context, key, value string) error
	// Subscribe registers fn for external changes. The returned func
	// unregisters it.
	Subscribe(fn ChangeFunc) (cancel func())
}

// GetInt reads an integer value. A missing key reports ok=false.
func GetInt(ctx context.Context, s Store, key string) (n int64, ok bool, err error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return 0, false, err
	}
	n, err = strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("kv: %s is not an integer: %w", key, err)
	}
	return n, true, nil
}

// SetInt writes an integer value.
func SetInt(ctx context.Context, s Store, key string, n int64) error {
	return s.Set(ctx, key, strconv.FormatInt(n, 10))
}

// GetList reads a JSON string list. A missing key yields an empty list.
func GetList(ctx context.Context, s Store, key string) ([]string, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("kv: %s is not a list: %w", key, err)
	}
	return out, nil
}

// SetList writes list as JSON.
func SetList(ctx context.Context, s Store, key string, list []string) error {
	if list == nil {
		list = []string{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("kv: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(raw))
}

// feed fans change notifications out to subscribers.
type feed struct {
	mu   sync.Mutex
	next int
	fns  map[int]ChangeFunc
}

func (f *feed) subscribe(fn ChangeFunc) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fns == nil {
		f.fns = make(map[int]ChangeFunc)
	}
	id := f.next
	f.next++
	f.fns[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.fns, id)
		f.mu.Unlock()
	}
}

func (f *feed) notify(keys []string) {
	if len(keys) == 0 {
		return
	}
	f.mu.Lock()
	fns := make([]ChangeFunc, 0, len(f.fns))
	for _, fn := range f.fns {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(keys)
	}
}
