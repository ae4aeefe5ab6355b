package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/platelog/internal/award"
	"github.com/starford/platelog/internal/filter"
)

// CheckForNewlyEarnedAward reports at most one award that was just earned.
// Calling it again reports the next one, if any.
func (s *Service) CheckForNewlyEarnedAward(ctx context.Context) (award.Definition, bool) {
	d, ok := s.awards.CheckForNewlyEarned(ctx)
	if ok {
		s.notifier.PublishChange(EventAwardEarned, d)
	}
	return d, ok
}

// AwardProgress returns every award with its state.
func (s *Service) AwardProgress(ctx context.Context) []award.Status {
	return s.awards.Progress(ctx)
}

// Presets returns the canned filters.
func (s *Service) Presets() filter.Presets {
	return filter.DefaultPresets()
}

// Selection returns a copy of the browsing state.
func (s *Service) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel
}

// SetFilter replaces the active filter. A custom filter with the same
// constraints as a preset selects that preset instead.
func (s *Service) SetFilter(f filter.Filter) Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Kind == filter.KindCustom {
		if preset, ok := filter.DefaultPresets().Match(f); ok {
			f = preset
		}
	}
	s.sel.Filter = f
	if f.Date != nil {
		d := *f.Date
		s.sel.Date = &d
	}
	return s.sel
}

// SelectDate pins the selection to the day of d, keeping the tag, quality
// and mealtime constraints of the active filter. A nil d clears the date
// and returns to all records when the filter was only a date.
func (s *Service) SelectDate(d *time.Time) Selection {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d == nil {
		s.sel.Date = nil
		if s.sel.Filter.Date != nil {
			if s.sel.Filter.Kind == filter.KindDate && !hasConstraints(s.sel.Filter) {
				s.sel.Filter = filter.All()
			} else {
				f := s.sel.Filter
				f.Date = nil
				s.sel.Filter = f
			}
		}
		return s.sel
	}

	day := filter.StartOfDay(*d)
	s.sel.Date = &day
	s.sel.Filter = filter.ForDate(day).ApplyingFilters(s.sel.Filter)
	return s.sel
}

func hasConstraints(f filter.Filter) bool {
	return f.TagID != nil || f.HasQuality() || f.Mealtime != nil
}

// SetNewestFirst sets the sort direction.
func (s *Service) SetNewestFirst(newest bool) Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.NewestFirst = newest
	return s.sel
}

// SetText sets the free-text search.
func (s *Service) SetText(text string) Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.Text = text
	return s.sel
}

// Wipe deletes all records, tags and stored photos and resets the counter,
// the congratulated awards and the category registry.
func (s *Service) Wipe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if err := s.store.Wipe(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.counter.Reset(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.awards.Reset(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.registry.Reset(ctx); err != nil {
		errs = append(errs, err)
	}
	if n, err := s.photos.Clear(); err != nil {
		errs = append(errs, err)
	} else {
		s.logger.Info("journal: photos removed", slog.Int("count", n))
	}
	s.sel = Selection{Filter: filter.All(), NewestFirst: true}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("journal: wipe: %w", err)
	}
	s.logger.Info("journal: wiped")
	return nil
}

// WatchCounter reconciles the usage counter whenever another device
// changes it and publishes the new value. The returned func stops it.
func (s *Service) WatchCounter(ctx context.Context) func() {
	return s.counter.Watch(ctx, func(n int64) {
		s.notifier.PublishChange(EventCounterChanged, map[string]int64{"value": n})
	})
}
