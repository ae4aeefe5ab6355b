// Package testutil provides shared test helpers for setting up stores and
// the journal's collaborators.
package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/starford/platelog/internal/award"
	"github.com/starford/platelog/internal/counter"
	"github.com/starford/platelog/internal/kv"
	"github.com/starford/platelog/internal/photo"
	"github.com/starford/platelog/internal/storage"
	"github.com/starford/platelog/internal/store"
	"github.com/starford/platelog/internal/tagset"
)

// TestStore creates a temporary record store that is automatically cleaned
// up. Absorbed store errors fail the test.
func TestStore(t *testing.T) *store.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "platelog-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	s, err := store.Open(dbFile.Name(),
		store.WithSaveDelay(time.Hour),
		store.WithErrorHook(func(op string, err error) {
			t.Errorf("store %s: %v", op, err)
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestFiles creates a temporary data directory with a storage.Provider.
func TestFiles(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// Env is a full set of journal collaborators backed by temp files and
// in-memory key-value stores.
type Env struct {
	Store    *store.Store
	Local    *kv.Memory
	Synced   *kv.Memory
	KV       *kv.Redundant
	Counter  *counter.Counter
	Catalog  *award.Catalog
	Awards   *award.Evaluator
	Registry *tagset.Registry
	Photos   *photo.Library
	Resolver *photo.Resolver
}

// NewEnv wires an Env around the bundled award catalog.
func NewEnv(t *testing.T) *Env {
	t.Helper()
	_, files := TestFiles(t)

	local, synced := kv.NewMemory(), kv.NewMemory()
	pair := kv.NewRedundant(local, synced, nil)
	c := counter.New(pair, nil)
	catalog := award.MustLoadCatalog("")
	photos := photo.NewLibrary(files)

	return &Env{
		Store:    TestStore(t),
		Local:    local,
		Synced:   synced,
		KV:       pair,
		Counter:  c,
		Catalog:  catalog,
		Awards:   award.NewEvaluator(catalog, c, pair, nil),
		Registry: tagset.NewRegistry(pair),
		Photos:   photos,
		Resolver: photo.NewResolver(nil, photos, nil),
	}
}
