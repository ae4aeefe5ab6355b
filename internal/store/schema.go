// Package store is the SQLite-backed record store for meal records and tags.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/platelog/internal/debounce"
	"github.com/starford/platelog/internal/models"
	"github.com/starford/platelog/internal/query"
)

// driverName is mattn/go-sqlite3 with the text search functions registered.
const driverName = "sqlite3_platelog"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(query.FoldFunc, query.Fold, true)
		},
	})
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	seq             INTEGER PRIMARY KEY AUTOINCREMENT,
	id              TEXT NOT NULL UNIQUE,
	created_at      INTEGER NOT NULL,
	title           TEXT,
	notes           TEXT,
	quality         INTEGER NOT NULL DEFAULT 1 CHECK (quality BETWEEN 0 AND 2),
	mealtime        TEXT CHECK (mealtime IS NULL OR mealtime IN (
		'Breakfast', 'Morning Snack', 'Lunch', 'Day Snack',
		'Dinner', 'Evening Snack', 'Anytime Meal')),
	photo_path      TEXT,
	photo_remote_id TEXT
);

CREATE TABLE IF NOT EXISTS tags (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS record_tags (
	record_id TEXT NOT NULL REFERENCES records(id) ON DELETE CASCADE,
	tag_id    TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (record_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_records_created_at ON records(created_at);
CREATE INDEX IF NOT EXISTS idx_record_tags_tag ON record_tags(tag_id);
CREATE INDEX IF NOT EXISTS idx_tags_category ON tags(category);
`

// DefaultSaveDelay is how long staged edits wait before a scheduled save.
const DefaultSaveDelay = 3 * time.Second

// ErrorHook receives every error the store absorbs. op names the operation.
type ErrorHook func(op string, err error)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for absorbed errors.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithErrorHook registers a hook for absorbed errors, e.g. to fail tests.
func WithErrorHook(h ErrorHook) Option {
	return func(s *Store) { s.onError = h }
}

// WithSaveDelay overrides DefaultSaveDelay.
func WithSaveDelay(d time.Duration) Option {
	return func(s *Store) { s.saveDelay = d }
}

// Store wraps a sql.DB with record and tag operations.
type Store struct {
	conn      *sql.DB
	logger    *slog.Logger
	onError   ErrorHook
	saveDelay time.Duration

	mu     sync.Mutex
	staged map[string]models.MealRecord
	order  []string
	saver  *debounce.Task

	// commitMu is held from taking a batch until it is written or restaged.
	commitMu sync.Mutex
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string, opts ...Option) (*Store, error) {
	conn, err := sql.Open(driverName, dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	s := &Store{
		conn:      conn,
		saveDelay: DefaultSaveDelay,
		staged:    make(map[string]models.MealRecord),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.saver = debounce.New(s.saveDelay, func(ctx context.Context) {
		// A started commit runs to completion even when superseded.
		s.commitStaged(context.WithoutCancel(ctx))
	})
	return s, nil
}

// Close commits staged edits and closes the database.
func (s *Store) Close() error {
	s.Save(context.Background())
	s.saver.Close()
	return s.conn.Close()
}

// fail absorbs err: it is logged and handed to the error hook.
func (s *Store) fail(op string, err error) {
	s.logger.Error("store: "+op+" failed", slog.String("error", err.Error()))
	if s.onError != nil {
		s.onError(op, err)
	}
}
