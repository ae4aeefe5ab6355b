package photo

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Job asks for the local photo of a record to be mirrored remotely.
type Job struct {
	RecordID  string
	LocalPath string
}

// DoneFunc records the remote id of an uploaded photo.
type DoneFunc func(ctx context.Context, job Job, remoteID string) error

// Uploader mirrors local photos to a Remote in the background. Results are
// applied in completion order.
type Uploader struct {
	remote Remote
	local  *Library
	done   DoneFunc
	limit  int
	logger *slog.Logger
	jobs   chan Job
}

// NewUploader returns an Uploader running at most limit uploads at once.
func NewUploader(remote Remote, local *Library, limit int, done DoneFunc, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	if limit < 1 {
		limit = 1
	}
	return &Uploader{
		remote: remote,
		local:  local,
		done:   done,
		limit:  limit,
		logger: logger,
		jobs:   make(chan Job, 64),
	}
}

// Enqueue schedules job without blocking. A full queue drops the job; the
// photo stays available locally.
func (u *Uploader) Enqueue(job Job) bool {
	select {
	case u.jobs <- job:
		return true
	default:
		u.logger.Warn("photo: upload queue full", slog.String("record", job.RecordID))
		return false
	}
}

// Run processes jobs until ctx is cancelled, then waits for in-flight
// uploads. Upload failures are logged, never returned.
func (u *Uploader) Run(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(u.limit)

	for {
		select {
		case <-ctx.Done():
			return g.Wait()
		case job := <-u.jobs:
			g.Go(func() error {
				u.upload(ctx, job)
				return nil
			})
		}
	}
}

func (u *Uploader) upload(ctx context.Context, job Job) {
	data, err := u.local.Load(job.LocalPath)
	if err != nil {
		u.logger.Warn("photo: read for upload failed",
			slog.String("path", job.LocalPath), slog.String("error", err.Error()))
		return
	}
	id, err := u.remote.Upload(ctx, job.LocalPath, data)
	if err != nil {
		u.logger.Warn("photo: upload failed",
			slog.String("path", job.LocalPath), slog.String("error", err.Error()))
		return
	}
	if err := u.done(ctx, job, id); err != nil {
		u.logger.Warn("photo: record remote id failed",
			slog.String("record", job.RecordID), slog.String("error", err.Error()))
		return
	}
	u.logger.Debug("photo: uploaded", slog.String("record", job.RecordID), slog.String("id", id))
}
