// Package journal is the application service of the meal journal. It is
// the single mutator of the record store: every mutation is serialized.
package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/starford/platelog/internal/award"
	"github.com/starford/platelog/internal/counter"
	"github.com/starford/platelog/internal/filter"
	"github.com/starford/platelog/internal/models"
	"github.com/starford/platelog/internal/photo"
	"github.com/starford/platelog/internal/query"
	"github.com/starford/platelog/internal/store"
	"github.com/starford/platelog/internal/tagset"
)

// Deps are the collaborators a Service needs. Resolver and Uploader may
// be nil.
type Deps struct {
	Store    store.RecordStore
	Counter  *counter.Counter
	Awards   *award.Evaluator
	Registry *tagset.Registry
	Photos   *photo.Library
	Resolver *photo.Resolver
	Uploader *photo.Uploader
}

// Selection is the current browsing state.
type Selection struct {
	Filter      filter.Filter `json:"filter"`
	Date        *time.Time    `json:"date,omitempty"`
	NewestFirst bool          `json:"newest_first"`
	Text        string        `json:"text"`
}

// Query compiles the selection.
func (sel Selection) Query() query.Query {
	return query.Compile(sel.Filter, query.Options{
		Text:         sel.Text,
		SelectedDate: sel.Date,
		NewestFirst:  sel.NewestFirst,
	})
}

// Service coordinates the record store, usage counter, awards, tags and
// photos.
type Service struct {
	store    store.RecordStore
	counter  *counter.Counter
	awards   *award.Evaluator
	registry *tagset.Registry
	photos   *photo.Library
	resolver *photo.Resolver
	uploader *photo.Uploader

	entitlement Entitlement
	notifier    Notifier
	freeLimit   int64
	now         func() time.Time
	sorter      tagset.Sorter
	logger      *slog.Logger

	mu  sync.Mutex
	sel Selection
}

// New creates a Service.
func New(deps Deps, opts ...Option) *Service {
	s := &Service{
		store:       deps.Store,
		counter:     deps.Counter,
		awards:      deps.Awards,
		registry:    deps.Registry,
		photos:      deps.Photos,
		resolver:    deps.Resolver,
		uploader:    deps.Uploader,
		entitlement: Static(false),
		notifier:    nopNotifier{},
		freeLimit:   DefaultFreeLimit,
		now:         time.Now,
		sorter:      tagset.NewSorter(language.Und, nil),
		sel:         Selection{Filter: filter.All(), NewestFirst: true},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// ApplyRemotePhoto is the photo.DoneFunc for the uploader: it records the
// remote id on the record. The latest completed upload wins.
func (s *Service) ApplyRemotePhoto(ctx context.Context, job photo.Job, remoteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.store.GetRecord(ctx, job.RecordID)
	if err != nil {
		return err
	}
	r.SetPhotoRemoteText(remoteID)
	if err := s.store.Stage(*r); err != nil {
		return err
	}
	s.notifier.PublishChange(EventRecordUpdated, r)
	return nil
}

// Criteria is an explicit search that does not touch the selection. Nil
// fields do not constrain.
type Criteria struct {
	Text        string
	Date        *time.Time
	Quality     *models.Quality
	Mealtime    *models.Mealtime
	TagID       *string
	NewestFirst bool
}

// Query compiles the criteria.
func (c Criteria) Query() query.Query {
	f := filter.New("Search", "magnifyingglass")
	constrained := false
	if c.Quality != nil {
		f.Quality = *c.Quality
		constrained = true
	}
	if c.Mealtime != nil {
		m := *c.Mealtime
		f.Mealtime = &m
		constrained = true
	}
	if c.TagID != nil {
		id := *c.TagID
		f.TagID = &id
		constrained = true
	}
	if c.Date != nil {
		day := filter.StartOfDay(*c.Date)
		f.Date = &day
		constrained = true
	}
	if !constrained {
		f = filter.All()
	}
	return query.Compile(f, query.Options{Text: c.Text, NewestFirst: c.NewestFirst})
}
