// Package counter tracks the total number of meal records ever created.
package counter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/platelog/internal/kv"
)

// Key is the key-value entry holding the counter.
const Key = "usage.records_created"

// Counter is a monotonic usage counter stored in a kv.Redundant pair. It is
// only decreased by Reset.
type Counter struct {
	store  *kv.Redundant
	logger *slog.Logger

	mu sync.Mutex
}

// New returns a Counter over store. A nil logger uses slog.Default.
func New(store *kv.Redundant, logger *slog.Logger) *Counter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Counter{store: store, logger: logger}
}

// Value returns the larger of the synchronized value and the local cache,
// so a stale synchronized copy never lowers the count. An unreadable or
// corrupt copy reads as 0.
func (c *Counter) Value(ctx context.Context) int64 {
	synced, _, err := kv.GetInt(ctx, c.store.Synced, Key)
	if err != nil {
		c.logger.Warn("counter: synced read failed", slog.String("error", err.Error()))
		synced = 0
	}
	local, _, err := kv.GetInt(ctx, c.store.Local, Key)
	if err != nil {
		c.logger.Warn("counter: local read failed", slog.String("error", err.Error()))
		local = 0
	}
	return max(synced, local)
}

// Increment adds one and writes the result to both stores.
func (c *Counter) Increment(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.Value(ctx) + 1
	if err := kv.SetInt(ctx, c.store, Key, next); err != nil {
		return 0, fmt.Errorf("counter: increment: %w", err)
	}
	return next, nil
}

// Reconcile merges the two copies after an external change, adopting the
// larger so the counter never goes backwards. It returns the merged value.
func (c *Counter) Reconcile(ctx context.Context) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	synced, syncedOK, err := kv.GetInt(ctx, c.store.Synced, Key)
	if err != nil {
		c.logger.Warn("counter: reconcile read failed", slog.String("error", err.Error()))
		return c.local(ctx)
	}
	local := c.local(ctx)

	switch {
	case !syncedOK || synced < local:
		if err := kv.SetInt(ctx, c.store.Synced, Key, local); err != nil {
			c.logger.Warn("counter: reconcile write failed", slog.String("error", err.Error()))
		}
		return local
	case synced > local:
		if err := kv.SetInt(ctx, c.store.Local, Key, synced); err != nil {
			c.logger.Warn("counter: cache write failed", slog.String("error", err.Error()))
		}
	}
	return synced
}

// Watch reconciles whenever the synchronized counter changes externally.
// onChange, if non-nil, receives the reconciled value. The returned func
// stops watching.
func (c *Counter) Watch(ctx context.Context, onChange func(int64)) func() {
	return c.store.Subscribe(func(keys []string) {
		for _, k := range keys {
			if k != Key {
				continue
			}
			n := c.Reconcile(ctx)
			c.logger.Debug("counter: reconciled", slog.Int64("value", n))
			if onChange != nil {
				onChange(n)
			}
			return
		}
	})
}

// Reset sets the counter to zero in both stores. Used by the full data wipe.
func (c *Counter) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := kv.SetInt(ctx, c.store, Key, 0); err != nil {
		return fmt.Errorf("counter: reset: %w", err)
	}
	return nil
}

func (c *Counter) local(ctx context.Context) int64 {
	n, _, err := kv.GetInt(ctx, c.store.Local, Key)
	if err != nil {
		return 0
	}
	return n
}
