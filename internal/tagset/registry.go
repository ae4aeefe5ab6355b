// Package tagset orders and groups tags by category and keeps the set of
// categories currently in use.
package tagset

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/starford/platelog/internal/kv"
	"github.com/starford/platelog/internal/models"
)

// RegistryKey holds the available categories as a JSON list.
const RegistryKey = "tags.categories"

// Registry is the set of categories that have at least one tag. It is
// stored in the synchronized key-value store.
type Registry struct {
	store kv.Store
	mu    sync.Mutex
}

// NewRegistry returns a Registry over store.
func NewRegistry(store kv.Store) *Registry {
	return &Registry{store: store}
}

type set map[models.TagCategory]struct{}

func (r *Registry) load(ctx context.Context) (set, error) {
	names, err := kv.GetList(ctx, r.store, RegistryKey)
	if err != nil {
		return nil, err
	}
	s := make(set, len(names))
	for _, n := range names {
		s[models.ParseTagCategory(n)] = struct{}{}
	}
	return s, nil
}

func (r *Registry) save(ctx context.Context, s set) error {
	names := make([]string, 0, len(s))
	for _, c := range sorted(s) {
		names = append(names, c.String())
	}
	return kv.SetList(ctx, r.store, RegistryKey, names)
}

// Categories returns the registered categories in display order.
func (r *Registry) Categories(ctx context.Context) ([]models.TagCategory, error) {
	s, err := r.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("tagset: load categories: %w", err)
	}
	return sorted(s), nil
}

// Contains reports whether c is registered.
func (r *Registry) Contains(ctx context.Context, c models.TagCategory) (bool, error) {
	s, err := r.load(ctx)
	if err != nil {
		return false, fmt.Errorf("tagset: load categories: %w", err)
	}
	_, ok := s[c]
	return ok, nil
}

// Add registers c. It reports whether c was new.
func (r *Registry) Add(ctx context.Context, c models.TagCategory) (bool, error) {
	return r.update(ctx, func(s set) bool {
		if _, ok := s[c]; ok {
			return false
		}
		s[c] = struct{}{}
		return true
	})
}

// Remove unregisters c. It reports whether c was present.
func (r *Registry) Remove(ctx context.Context, c models.TagCategory) (bool, error) {
	return r.update(ctx, func(s set) bool {
		if _, ok := s[c]; !ok {
			return false
		}
		delete(s, c)
		return true
	})
}

// Reset clears the registry.
func (r *Registry) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(ctx, set{})
}

func (r *Registry) update(ctx context.Context, fn func(set) bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.load(ctx)
	if err != nil {
		return false, fmt.Errorf("tagset: load categories: %w", err)
	}
	if !fn(s) {
		return false, nil
	}
	if err := r.save(ctx, s); err != nil {
		return false, fmt.Errorf("tagset: save categories: %w", err)
	}
	return true, nil
}

func sorted(s set) []models.TagCategory {
	out := make([]models.TagCategory, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	slices.SortFunc(out, CompareCategories)
	return out
}
