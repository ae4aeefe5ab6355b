package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// entry is one synchronized key.
type entry struct {
	Key       string `gorm:"primaryKey"`
	Value     string `gorm:"not null"`
	Device    string
	UpdatedAt time.Time
}

func (entry) TableName() string { return "kv_entries" }

// SQLStore is a Store shared between devices through one SQLite file
// (a synced folder, a network share). Changes written by other processes
// are picked up by Watch or Refresh.
type SQLStore struct {
	db     *gorm.DB
	path   string
	device string
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]string
	feed feed
}

var _ Store = (*SQLStore)(nil)

// OpenSQL opens (or creates) the shared database at path. device tags the
// rows this process writes.
func OpenSQL(path, device string, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("kv: create db directory: %w", err)
	}

	// DELETE journal mode keeps every commit in the main file, which is
	// what other devices and the watcher observe.
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(DELETE)&_pragma=busy_timeout(5000)", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("kv: open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("kv: get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("kv: migrate: %w", err)
	}

	s := &SQLStore{db: db, path: path, device: device, logger: logger, seen: make(map[string]string)}
	if _, err := s.Refresh(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var e entry
	err := s.db.WithContext(ctx).First(&e, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv: get %s: %w", key, err)
	}
	return e.Value, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry{Key: key, Value: value, Device: s.device, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "device", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("kv: set %s: %w", key, err)
	}
	s.seen[key] = value
	return nil
}

func (s *SQLStore) Subscribe(fn ChangeFunc) func() { return s.feed.subscribe(fn) }

// Refresh reloads every key, notifies subscribers about values that differ
// from what this process last saw, and returns those keys.
func (s *SQLStore) Refresh(ctx context.Context) ([]string, error) {
	var entries []entry
	if err := s.db.WithContext(ctx).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("kv: refresh: %w", err)
	}

	s.mu.Lock()
	var changed []string
	for _, e := range entries {
		if prev, ok := s.seen[e.Key]; ok && prev == e.Value {
			continue
		}
		s.seen[e.Key] = e.Value
		changed = append(changed, e.Key)
	}
	s.mu.Unlock()

	s.feed.notify(changed)
	return changed, nil
}

// Watch refreshes whenever the database file changes on disk, until ctx
// is cancelled. Bursts of file events are coalesced.
func (s *SQLStore) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("kv: watch %s: %w", dir, err)
	}
	base := filepath.Base(s.path)

	s.logger.Info("kv: watcher started", slog.String("path", s.path))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(200 * time.Millisecond)
			fire = timer.C
		} else {
			timer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			s.logger.Info("kv: watcher stopped")
			return nil

		case <-fire:
			keys, err := s.Refresh(ctx)
			if err != nil {
				s.logger.Warn("kv: refresh failed", slog.String("error", err.Error()))
				continue
			}
			if len(keys) > 0 {
				s.logger.Debug("kv: external change", slog.Any("keys", keys))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), base) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("kv: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
