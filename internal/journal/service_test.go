package journal

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/starford/platelog/internal/apperr"
	"github.com/starford/platelog/internal/filter"
	"github.com/starford/platelog/internal/kv"
	"github.com/starford/platelog/internal/models"
	"github.com/starford/platelog/internal/photo"
	"github.com/starford/platelog/internal/testutil"
)

type recorder struct {
	mu    sync.Mutex
	kinds []string
}

func (r *recorder) PublishChange(kind string, _ any) {
	r.mu.Lock()
	r.kinds = append(r.kinds, kind)
	r.mu.Unlock()
}

func (r *recorder) has(kind string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func newService(t *testing.T, opts ...Option) (*Service, *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv(t)
	svc := New(Deps{
		Store:    env.Store,
		Counter:  env.Counter,
		Awards:   env.Awards,
		Registry: env.Registry,
		Photos:   env.Photos,
		Resolver: env.Resolver,
	}, opts...)
	return svc, env
}

func TestCreateRecordDefaults(t *testing.T) {
	now := time.Date(2025, 3, 3, 12, 30, 0, 0, time.UTC)
	svc, _ := newService(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	rec, ok, err := svc.CreateRecord(ctx)
	if err != nil || !ok {
		t.Fatalf("CreateRecord = %v, %v", ok, err)
	}
	if rec.Quality != models.QualityModerate {
		t.Errorf("quality = %v, want moderate", rec.Quality)
	}
	if rec.MealtimeValue() != models.MealtimeAnytime {
		t.Errorf("mealtime = %q", rec.MealtimeValue())
	}
	if rec.NotesText() != "Monday, March 3, 2025" {
		t.Errorf("notes = %q", rec.NotesText())
	}
	if !rec.CreatedAt.Equal(now) {
		t.Errorf("created = %v, want %v", rec.CreatedAt, now)
	}

	stored, err := svc.Record(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if stored.NotesText() != rec.NotesText() {
		t.Errorf("stored notes = %q", stored.NotesText())
	}
}

func TestCreateRecordUsesSelectedDate(t *testing.T) {
	now := time.Date(2025, 3, 3, 12, 30, 0, 0, time.UTC)
	svc, _ := newService(t, WithClock(func() time.Time { return now }))

	picked := time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC)
	svc.SelectDate(&picked)

	rec, ok, err := svc.CreateRecord(context.Background())
	if err != nil || !ok {
		t.Fatalf("CreateRecord = %v, %v", ok, err)
	}
	want := time.Date(2025, 2, 14, 12, 30, 0, 0, time.UTC)
	if !rec.CreatedAt.Equal(want) {
		t.Errorf("created = %v, want %v", rec.CreatedAt, want)
	}
	if got := svc.Count(context.Background()); got != 1 {
		t.Errorf("selection count = %d, want 1", got)
	}
}

func TestCounterGrowsByOnePerCreatedRecord(t *testing.T) {
	svc, env := newService(t)
	ctx := context.Background()
	before := env.Counter.Value(ctx)

	for i := 0; i < 7; i++ {
		if _, ok, err := svc.CreateRecord(ctx); !ok || err != nil {
			t.Fatalf("CreateRecord #%d = %v, %v", i+1, ok, err)
		}
	}
	if got := env.Counter.Value(ctx); got != before+7 {
		t.Errorf("counter = %d, want %d", got, before+7)
	}
}

func TestGateStopsAtFreeLimit(t *testing.T) {
	svc, env := newService(t)
	ctx := context.Background()

	for i := 0; i < DefaultFreeLimit; i++ {
		if _, ok, err := svc.CreateRecord(ctx); !ok || err != nil {
			t.Fatalf("CreateRecord #%d = %v, %v", i+1, ok, err)
		}
	}
	rec, ok, err := svc.CreateRecord(ctx)
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	if ok || rec.ID != "" {
		t.Fatalf("36th record was created: %+v", rec)
	}
	if got := env.Counter.Value(ctx); got != DefaultFreeLimit {
		t.Errorf("counter = %d, want %d", got, DefaultFreeLimit)
	}
	if got := svc.CountQuery(ctx, Selection{Filter: filter.All()}.Query()); got != DefaultFreeLimit {
		t.Errorf("records = %d, want %d", got, DefaultFreeLimit)
	}
	if svc.CanCreate(ctx) {
		t.Error("CanCreate should be false")
	}
}

func TestGateHoldsWhenSyncReturnsStale(t *testing.T) {
	svc, env := newService(t)
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		if _, ok, err := svc.CreateRecord(ctx); !ok || err != nil {
			t.Fatalf("CreateRecord #%d = %v, %v", i+1, ok, err)
		}
	}
	env.Synced.SetUnavailable(errors.New("offline"))
	for i := 30; i < DefaultFreeLimit; i++ {
		if _, ok, err := svc.CreateRecord(ctx); !ok || err != nil {
			t.Fatalf("offline CreateRecord #%d = %v, %v", i+1, ok, err)
		}
	}
	env.Synced.SetUnavailable(nil)

	if got := svc.UsageCount(ctx); got != DefaultFreeLimit {
		t.Errorf("usage after sync returns = %d, want %d", got, DefaultFreeLimit)
	}
	if _, ok, err := svc.CreateRecord(ctx); ok || err != nil {
		t.Errorf("CreateRecord over the limit = %v, %v; want denied", ok, err)
	}
}

func TestCreateRecordUncountedIsRolledBack(t *testing.T) {
	svc, env := newService(t)
	ctx := context.Background()
	env.Local.SetUnavailable(errors.New("disk full"))
	env.Synced.SetUnavailable(errors.New("offline"))

	rec, ok, err := svc.CreateRecord(ctx)
	if err == nil || ok || rec.ID != "" {
		t.Fatalf("CreateRecord = %+v, %v, %v; want error", rec, ok, err)
	}

	env.Local.SetUnavailable(nil)
	env.Synced.SetUnavailable(nil)
	if got := svc.Count(ctx); got != 0 {
		t.Errorf("records = %d, want 0", got)
	}
	if got := env.Counter.Value(ctx); got != 0 {
		t.Errorf("counter = %d, want 0", got)
	}
}

func TestEntitlementBypassesGate(t *testing.T) {
	svc, env := newService(t, WithEntitlement(Static(true)))
	ctx := context.Background()
	if err := kv.SetInt(ctx, env.KV, "usage.records_created", 500); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, ok, err := svc.CreateRecord(ctx); !ok || err != nil {
			t.Fatalf("CreateRecord = %v, %v", ok, err)
		}
	}
	if got := env.Counter.Value(ctx); got != 503 {
		t.Errorf("counter = %d, want 503", got)
	}
}

func TestUpdateRecord(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	rec, _, _ := svc.CreateRecord(ctx)

	title := "Poke bowl"
	q := models.QualityHealthy
	m := models.MealtimeLunch
	updated, err := svc.UpdateRecord(ctx, rec.ID, Patch{Title: &title, Quality: &q, Mealtime: &m})
	if err != nil {
		t.Fatalf("UpdateRecord: %v", err)
	}
	if updated.TitleText() != title || updated.Quality != q {
		t.Errorf("updated = %+v", updated)
	}

	svc.SetFilter(filter.ForQuality(models.QualityHealthy))
	got := svc.Fetch(ctx)
	if len(got) != 1 || got[0].TitleText() != title || got[0].MealtimeValue() != m {
		t.Fatalf("Fetch = %+v", got)
	}

	bad := models.Quality(7)
	if _, err := svc.UpdateRecord(ctx, rec.ID, Patch{Quality: &bad}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("invalid quality err = %v", err)
	}
	if _, err := svc.UpdateRecord(ctx, "missing", Patch{Title: &title}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing record err = %v", err)
	}
}

func TestTagLifecycle(t *testing.T) {
	rec := &recorder{}
	svc, _ := newService(t, WithNotifier(rec))
	ctx := context.Background()

	r, _, _ := svc.CreateRecord(ctx)
	tag, err := svc.CreateTag(ctx, "  Tofu ", models.CategoryIngredients)
	if err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if tag.Name != "Tofu" {
		t.Errorf("name = %q", tag.Name)
	}
	cats, _ := svc.Categories(ctx)
	if len(cats) != 1 || cats[0] != models.CategoryIngredients {
		t.Errorf("categories = %v", cats)
	}

	withTag, err := svc.AttachTag(ctx, r.ID, tag.ID)
	if err != nil || len(withTag.Tags) != 1 {
		t.Fatalf("AttachTag = %+v, %v", withTag, err)
	}
	if _, err := svc.AttachTag(ctx, r.ID, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("attach missing tag err = %v", err)
	}

	if err := svc.DeleteTag(ctx, tag.ID); err != nil {
		t.Fatalf("DeleteTag: %v", err)
	}
	if got := svc.CountQuery(ctx, Selection{Filter: filter.All()}.Query()); got != 1 {
		t.Errorf("records after tag delete = %d, want 1", got)
	}
	cats, _ = svc.Categories(ctx)
	if len(cats) != 0 {
		t.Errorf("category still registered: %v", cats)
	}
	if _, err := svc.CreateTag(ctx, " ", models.CategoryMine); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("blank tag err = %v", err)
	}

	for _, k := range []string{EventRecordCreated, EventTagCreated, EventRecordUpdated, EventTagDeleted} {
		if !rec.has(k) {
			t.Errorf("missing event %s", k)
		}
	}
}

func TestCreateDefaultTagsAndGrouping(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tags, err := svc.CreateDefaultTags(ctx, models.CategoryMood)
	if err != nil || len(tags) == 0 {
		t.Fatalf("CreateDefaultTags = %d, %v", len(tags), err)
	}
	_, _ = svc.CreateTag(ctx, "Leftovers", models.CategoryMine)

	groups, err := svc.GroupedTags(ctx)
	if err != nil {
		t.Fatalf("GroupedTags: %v", err)
	}
	if len(groups) != 2 || groups[0].Category != models.CategoryMine || groups[1].Category != models.CategoryMood {
		t.Fatalf("groups = %+v", groups)
	}
	if _, err := svc.CreateDefaultTags(ctx, models.CategoryMine); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("defaults for mine err = %v", err)
	}
}

func TestAwardsAfterFirstRecord(t *testing.T) {
	rec := &recorder{}
	svc, _ := newService(t, WithNotifier(rec))
	ctx := context.Background()

	if _, ok := svc.CheckForNewlyEarnedAward(ctx); ok {
		t.Fatal("award before any record")
	}
	_, _, _ = svc.CreateRecord(ctx)

	d, ok := svc.CheckForNewlyEarnedAward(ctx)
	if !ok || d.Threshold != 1 {
		t.Fatalf("award = %+v, %v", d, ok)
	}
	if _, ok := svc.CheckForNewlyEarnedAward(ctx); ok {
		t.Error("award reported twice")
	}
	if !rec.has(EventAwardEarned) {
		t.Error("award event not published")
	}

	progress := svc.AwardProgress(ctx)
	if len(progress) == 0 || progress[0].State.String() != "earned_acknowledged" {
		t.Errorf("progress = %+v", progress)
	}
}

func TestSelectDateKeepsOtherConstraints(t *testing.T) {
	svc, _ := newService(t)
	svc.SetFilter(filter.ForQuality(models.QualityHealthy))

	d := time.Date(2025, 1, 1, 15, 0, 0, 0, time.UTC)
	sel := svc.SelectDate(&d)
	if sel.Filter.Date == nil || !sel.Filter.Date.Equal(filter.StartOfDay(d)) {
		t.Errorf("date = %v", sel.Filter.Date)
	}
	if sel.Filter.Quality != models.QualityHealthy {
		t.Errorf("quality = %v, want healthy", sel.Filter.Quality)
	}

	sel = svc.SelectDate(nil)
	if sel.Date != nil || sel.Filter.Date != nil {
		t.Errorf("date not cleared: %+v", sel)
	}
	if sel.Filter.Quality != models.QualityHealthy {
		t.Errorf("quality lost when clearing date")
	}

	svc.SetFilter(filter.All())
	svc.SelectDate(&d)
	sel = svc.SelectDate(nil)
	if !sel.Filter.IsAll() {
		t.Errorf("expected all-records filter, got %+v", sel.Filter)
	}
}

func TestPhotoUploadFlow(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	rec, _, _ := svc.CreateRecord(ctx)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR plate")
	updated, err := svc.SetPhoto(ctx, rec.ID, png)
	if err != nil {
		t.Fatalf("SetPhoto: %v", err)
	}
	if updated.PhotoPathText() == "" || updated.PhotoRemoteID != nil {
		t.Errorf("photo fields = %+v", updated)
	}
	got, err := svc.Photo(ctx, rec.ID)
	if err != nil || !bytes.Equal(got, png) {
		t.Errorf("Photo = %q, %v", got, err)
	}

	err = svc.ApplyRemotePhoto(ctx, photo.Job{RecordID: rec.ID, LocalPath: updated.PhotoPathText()}, "remote/1")
	if err != nil {
		t.Fatalf("ApplyRemotePhoto: %v", err)
	}
	r, _ := svc.Record(ctx, rec.ID)
	if r.PhotoRemoteText() != "remote/1" {
		t.Errorf("remote id = %q", r.PhotoRemoteText())
	}

	if _, err := svc.SetPhoto(ctx, rec.ID, []byte("not an image")); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("non-image err = %v", err)
	}
}

func TestWatchCounterPublishes(t *testing.T) {
	rec := &recorder{}
	svc, env := newService(t, WithNotifier(rec))
	stop := svc.WatchCounter(context.Background())
	defer stop()

	env.Synced.Inject("usage.records_created", "12")
	if !rec.has(EventCounterChanged) {
		t.Error("counter change not published")
	}
	if got := svc.UsageCount(context.Background()); got != 12 {
		t.Errorf("usage = %d, want 12", got)
	}
}

func TestWipe(t *testing.T) {
	svc, env := newService(t)
	ctx := context.Background()
	rec, _, _ := svc.CreateRecord(ctx)
	if _, err := svc.SetPhoto(ctx, rec.ID, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR soup")); err != nil {
		t.Fatalf("SetPhoto: %v", err)
	}
	if paths, _ := env.Photos.Paths(); len(paths) != 1 {
		t.Fatalf("photos before wipe = %v", paths)
	}
	_, _ = svc.CreateTag(ctx, "Soup", models.CategoryMine)
	svc.CheckForNewlyEarnedAward(ctx)

	if err := svc.Wipe(ctx); err != nil {
		t.Fatalf("Wipe: %v", err)
	}
	if got := svc.Count(ctx); got != 0 {
		t.Errorf("records = %d", got)
	}
	if got := env.Counter.Value(ctx); got != 0 {
		t.Errorf("counter = %d", got)
	}
	tags, _ := svc.Tags(ctx)
	if len(tags) != 0 {
		t.Errorf("tags = %v", tags)
	}
	if _, ok := svc.CheckForNewlyEarnedAward(ctx); ok {
		t.Error("award available with zero records")
	}
	if paths, err := env.Photos.Paths(); err != nil || len(paths) != 0 {
		t.Errorf("photos after wipe = %v, %v", paths, err)
	}
}

func TestSetFilterAdoptsMatchingPreset(t *testing.T) {
	svc, _ := newService(t)
	healthy := svc.Presets().Qualities[models.QualityHealthy]

	custom := filter.New("custom", "")
	custom.Quality = models.QualityHealthy
	sel := svc.SetFilter(custom)
	if !sel.Filter.Equal(healthy) {
		t.Errorf("filter = %+v, want the healthy preset", sel.Filter)
	}

	tagID := "t1"
	custom.TagID = &tagID
	sel = svc.SetFilter(custom)
	if !sel.Filter.Equal(custom) {
		t.Errorf("filter = %+v, want the custom filter kept", sel.Filter)
	}
}
