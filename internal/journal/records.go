package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/platelog/internal/apperr"
	"github.com/starford/platelog/internal/models"
	"github.com/starford/platelog/internal/photo"
	"github.com/starford/platelog/internal/query"
)

// NotesDateLayout formats the date a new record's notes start with.
const NotesDateLayout = "Monday, January 2, 2006"

// Patch holds the record fields to change. Nil fields are left alone.
type Patch struct {
	Title    *string
	Notes    *string
	Quality  *models.Quality
	Mealtime *models.Mealtime
}

// CanCreate reports whether the gate would allow a new record.
func (s *Service) CanCreate(ctx context.Context) bool {
	return s.entitlement.Active(ctx) || s.counter.Value(ctx) < s.freeLimit
}

// Entitled reports whether the user holds an active entitlement.
func (s *Service) Entitled(ctx context.Context) bool {
	return s.entitlement.Active(ctx)
}

// FreeLimit is the number of records allowed without an entitlement.
func (s *Service) FreeLimit() int64 { return s.freeLimit }

// UsageCount returns how many records have ever been created.
func (s *Service) UsageCount(ctx context.Context) int64 {
	return s.counter.Value(ctx)
}

// CreateRecord creates a record with default fields and counts it. ok is
// false when the free limit is reached without an entitlement; nothing is
// created then and the caller should offer the upgrade.
func (s *Service) CreateRecord(ctx context.Context) (rec models.MealRecord, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.CanCreate(ctx) {
		s.logger.Info("journal: record limit reached", slog.Int64("limit", s.freeLimit))
		return models.MealRecord{}, false, nil
	}

	created := s.creationTime()
	rec = models.MealRecord{
		ID:        uuid.NewString(),
		CreatedAt: created,
		Quality:   models.QualityModerate,
		Tags:      []models.Tag{},
	}
	rec.SetMealtimeValue(models.MealtimeAnytime)
	rec.SetNotesText(created.Format(NotesDateLayout))

	if err := s.store.CreateRecord(ctx, rec); err != nil {
		return models.MealRecord{}, false, fmt.Errorf("journal: create record: %w", err)
	}
	if _, err := s.counter.Increment(ctx); err != nil {
		// An uncounted record would slip past the gate.
		if derr := s.store.DeleteRecord(ctx, rec.ID); derr != nil {
			s.logger.Error("journal: remove uncounted record failed",
				slog.String("record", rec.ID), slog.String("error", derr.Error()))
		}
		return models.MealRecord{}, false, fmt.Errorf("journal: count record: %w", err)
	}

	s.notifier.PublishChange(EventRecordCreated, rec)
	return rec, true, nil
}

// creationTime is now, moved onto the selected day when one is selected.
func (s *Service) creationTime() time.Time {
	now := s.now()
	if s.sel.Date == nil {
		return now
	}
	y, m, d := s.sel.Date.Date()
	return time.Date(y, m, d, now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), now.Location())
}

// Record returns one record.
func (s *Service) Record(ctx context.Context, id string) (*models.MealRecord, error) {
	return s.store.GetRecord(ctx, id)
}

// UpdateRecord applies p and stages the result for the debounced save.
func (s *Service) UpdateRecord(ctx context.Context, id string, p Patch) (*models.MealRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Title != nil {
		r.SetTitleText(*p.Title)
	}
	if p.Notes != nil {
		r.SetNotesText(*p.Notes)
	}
	if p.Quality != nil {
		if !p.Quality.Valid() {
			return nil, fmt.Errorf("journal: quality %d: %w", int(*p.Quality), apperr.ErrInvalidInput)
		}
		r.Quality = *p.Quality
	}
	if p.Mealtime != nil {
		if !p.Mealtime.Valid() {
			return nil, fmt.Errorf("journal: mealtime %q: %w", *p.Mealtime, apperr.ErrInvalidInput)
		}
		r.SetMealtimeValue(*p.Mealtime)
	}
	if err := s.store.Stage(*r); err != nil {
		return nil, err
	}

	s.notifier.PublishChange(EventRecordUpdated, r)
	return r, nil
}

// SetPhoto stores data as the record's local photo and queues an upload.
// The previous remote reference is cleared until the upload completes.
func (s *Service) SetPhoto(ctx context.Context, id string, data []byte) (*models.MealRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	path, err := s.photos.Save(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
	}
	r.SetPhotoPathText(path)
	r.PhotoRemoteID = nil
	if err := s.store.Stage(*r); err != nil {
		return nil, err
	}
	if s.uploader != nil {
		s.uploader.Enqueue(photo.Job{RecordID: id, LocalPath: path})
	}

	s.notifier.PublishChange(EventRecordUpdated, r)
	return r, nil
}

// Photo returns the record's image bytes, or nil when it has none that can
// be resolved.
func (s *Service) Photo(ctx context.Context, id string) ([]byte, error) {
	r, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.resolver == nil {
		return nil, nil
	}
	return s.resolver.Resolve(ctx, r.Photo()), nil
}

// DeleteRecord removes a record. Its tags are kept.
func (s *Service) DeleteRecord(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.DeleteRecord(ctx, id); err != nil {
		return err
	}
	s.notifier.PublishChange(EventRecordDeleted, map[string]string{"id": id})
	return nil
}

// Fetch returns the records of the current selection.
func (s *Service) Fetch(ctx context.Context) []models.MealRecord {
	return s.store.Fetch(ctx, s.Selection().Query())
}

// Count returns how many records the current selection matches.
func (s *Service) Count(ctx context.Context) int {
	return s.store.Count(ctx, s.Selection().Query())
}

// Search runs an explicit query, independent of the selection.
func (s *Service) Search(ctx context.Context, q query.Query) []models.MealRecord {
	return s.store.Fetch(ctx, q)
}

// CountQuery counts the records matching q.
func (s *Service) CountQuery(ctx context.Context, q query.Query) int {
	return s.store.Count(ctx, q)
}

// Flush commits staged edits now.
func (s *Service) Flush(ctx context.Context) {
	s.store.Save(ctx)
}
