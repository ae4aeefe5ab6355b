package photo

import (
	"context"
	"log/slog"

	"github.com/starford/platelog/internal/models"
)

// Resolver turns a photo reference into image bytes.
type Resolver struct {
	remote Remote
	local  *Library
	logger *slog.Logger
}

// NewResolver returns a Resolver. remote may be nil when no cloud storage
// is configured.
func NewResolver(remote Remote, local *Library, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{remote: remote, local: local, logger: logger}
}

// Resolve tries the remote copy, then the local file. It returns nil when
// neither is available; callers show a placeholder.
func (r *Resolver) Resolve(ctx context.Context, ref models.PhotoRef) []byte {
	if ref.Remote != "" && r.remote != nil {
		data, err := r.remote.Download(ctx, ref.Remote)
		if err == nil {
			return data
		}
		r.logger.Debug("photo: remote fetch failed",
			slog.String("id", ref.Remote), slog.String("error", err.Error()))
	}
	if ref.Local != "" && r.local != nil {
		data, err := r.local.Load(ref.Local)
		if err == nil {
			return data
		}
		r.logger.Debug("photo: local load failed",
			slog.String("path", ref.Local), slog.String("error", err.Error()))
	}
	return nil
}
