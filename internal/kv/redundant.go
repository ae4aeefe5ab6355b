package kv

import (
	"context"
	"errors"
	"log/slog"
)

// Redundant pairs a device-local cache with the synchronized store. Reads
// prefer the synchronized value and fall back to the cache; writes go to
// both and succeed if either does.
type Redundant struct {
	Local  Store
	Synced Store
	logger *slog.Logger
}

var _ Store = (*Redundant)(nil)

// NewRedundant returns a Redundant store. A nil logger uses slog.Default.
func NewRedundant(local, synced Store, logger *slog.Logger) *Redundant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redundant{Local: local, Synced: synced, logger: logger}
}

func (r *Redundant) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := r.Synced.Get(ctx, key)
	if err != nil {
		r.logger.Warn("kv: synced read failed, using local cache",
			slog.String("key", key), slog.String("error", err.Error()))
	}
	if err == nil && ok {
		return v, true, nil
	}
	return r.Local.Get(ctx, key)
}

func (r *Redundant) Set(ctx context.Context, key, value string) error {
	syncErr := r.Synced.Set(ctx, key, value)
	if syncErr != nil {
		r.logger.Warn("kv: synced write failed",
			slog.String("key", key), slog.String("error", syncErr.Error()))
	}
	localErr := r.Local.Set(ctx, key, value)
	if localErr != nil {
		r.logger.Warn("kv: local write failed",
			slog.String("key", key), slog.String("error", localErr.Error()))
	}
	if syncErr != nil && localErr != nil {
		return errors.Join(syncErr, localErr)
	}
	return nil
}

// Subscribe registers for external changes of the synchronized store.
func (r *Redundant) Subscribe(fn ChangeFunc) func() { return r.Synced.Subscribe(fn) }
