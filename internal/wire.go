package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/platelog/internal/award"
	"github.com/starford/platelog/internal/counter"
	"github.com/starford/platelog/internal/journal"
	"github.com/starford/platelog/internal/kv"
	"github.com/starford/platelog/internal/photo"
	"github.com/starford/platelog/internal/storage"
	"github.com/starford/platelog/internal/store"
	"github.com/starford/platelog/internal/tagset"
)

// components is the wired journal and the resources Run must drive or close.
type components struct {
	records  *store.Store
	syncDB   *kv.SQLStore
	uploader *photo.Uploader
	svc      *journal.Service
}

// buildJournal opens the stores and wires the journal service. notifier
// receives the service's change events.
func buildJournal(ctx context.Context, cfg *Config, entitlement journal.Entitlement, notifier journal.Notifier, logger *slog.Logger) (*components, error) {
	if err := os.MkdirAll(cfg.Photos.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	files, err := storage.NewFS(cfg.Photos.Dir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	if dir := filepath.Dir(cfg.SQLite.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	records, err := store.Open(cfg.SQLite.Path,
		store.WithLogger(logger),
		store.WithSaveDelay(cfg.Save.Delay),
	)
	if err != nil {
		return nil, fmt.Errorf("init record store: %w", err)
	}
	c := &components{records: records}

	var synced kv.Store
	if cfg.Sync.Enabled() {
		db, err := kv.OpenSQL(cfg.Sync.Path, cfg.Sync.Device, logger)
		if err != nil {
			c.close(logger)
			return nil, fmt.Errorf("init sync store: %w", err)
		}
		c.syncDB = db
		synced = db
	} else {
		logger.Warn("sync: no shared database configured, synchronized values live in memory")
		synced = kv.NewMemory()
	}

	cache, err := kv.OpenFileCache(files, cfg.Cache.File)
	if err != nil {
		c.close(logger)
		return nil, fmt.Errorf("init cache: %w", err)
	}
	pair := kv.NewRedundant(cache, synced, logger)

	usage := counter.New(pair, logger)
	logger.Info("counter: reconciled", slog.Int64("value", usage.Reconcile(ctx)))

	catalog, err := award.LoadCatalog(cfg.Awards.Catalog)
	if err != nil {
		c.close(logger)
		return nil, fmt.Errorf("load award catalog: %w", err)
	}

	photos := photo.NewLibrary(files)
	var remote photo.Remote
	if cfg.Photos.RemoteEnabled() {
		s3r, err := photo.NewS3Remote(ctx, cfg.Photos.Region, cfg.Photos.Bucket, cfg.Photos.Prefix)
		if err != nil {
			c.close(logger)
			return nil, fmt.Errorf("init photo remote: %w", err)
		}
		remote = s3r
	}

	if entitlement == nil {
		entitlement = journal.Static(cfg.Gate.Entitled)
	}

	var svc *journal.Service
	if remote != nil {
		c.uploader = photo.NewUploader(remote, photos, cfg.Photos.Uploads,
			func(ctx context.Context, job photo.Job, remoteID string) error {
				return svc.ApplyRemotePhoto(ctx, job, remoteID)
			}, logger)
	}
	svc = journal.New(journal.Deps{
		Store:    records,
		Counter:  usage,
		Awards:   award.NewEvaluator(catalog, usage, pair, logger),
		Registry: tagset.NewRegistry(pair),
		Photos:   photos,
		Resolver: photo.NewResolver(remote, photos, logger),
		Uploader: c.uploader,
	},
		journal.WithLogger(logger),
		journal.WithNotifier(notifier),
		journal.WithFreeLimit(cfg.Gate.FreeLimit),
		journal.WithEntitlement(entitlement),
	)
	c.svc = svc
	return c, nil
}

// close flushes staged edits and closes the databases.
func (c *components) close(logger *slog.Logger) {
	var errs []error
	if c.records != nil {
		errs = append(errs, c.records.Close())
	}
	if c.syncDB != nil {
		errs = append(errs, c.syncDB.Close())
	}
	if err := errors.Join(errs...); err != nil {
		logger.Error("close stores failed", slog.String("error", err.Error()))
	}
}
