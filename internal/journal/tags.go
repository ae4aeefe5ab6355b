package journal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/platelog/internal/apperr"
	"github.com/starford/platelog/internal/models"
	"github.com/starford/platelog/internal/tagset"
)

// CreateTag creates a tag and registers its category.
func (s *Service) CreateTag(ctx context.Context, name string, category models.TagCategory) (models.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createTag(ctx, name, category)
}

func (s *Service) createTag(ctx context.Context, name string, category models.TagCategory) (models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Tag{}, fmt.Errorf("journal: tag name is required: %w", apperr.ErrInvalidInput)
	}
	t := models.Tag{
		ID:        uuid.NewString(),
		Name:      name,
		Category:  category,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateTag(ctx, t); err != nil {
		return models.Tag{}, err
	}
	if _, err := s.registry.Add(ctx, category); err != nil {
		s.logger.Warn("journal: register category failed",
			slog.String("category", category.String()), slog.String("error", err.Error()))
	}

	s.notifier.PublishChange(EventTagCreated, t)
	return t, nil
}

// CreateDefaultTags creates the default tag set of a built-in category.
func (s *Service) CreateDefaultTags(ctx context.Context, category models.TagCategory) ([]models.Tag, error) {
	names := tagset.Defaults(category)
	if len(names) == 0 {
		return nil, fmt.Errorf("journal: no default tags for %q: %w", category.String(), apperr.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Tag, 0, len(names))
	for _, n := range names {
		t, err := s.createTag(ctx, n, category)
		if err != nil {
			return out, err
		}
		out = append(out, t)
	}
	return out, nil
}

// DeleteTag deletes a tag. Records it was attached to are kept. The
// category is unregistered when its last tag goes.
func (s *Service) DeleteTag(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.store.GetTag(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTag(ctx, id); err != nil {
		return err
	}

	left, err := s.store.TagCountByCategory(ctx, t.Category)
	switch {
	case err != nil:
		s.logger.Warn("journal: count category failed",
			slog.String("category", t.Category.String()), slog.String("error", err.Error()))
	case left == 0:
		if _, err := s.registry.Remove(ctx, t.Category); err != nil {
			s.logger.Warn("journal: unregister category failed",
				slog.String("category", t.Category.String()), slog.String("error", err.Error()))
		}
	}

	s.notifier.PublishChange(EventTagDeleted, map[string]string{"id": id})
	return nil
}

// AttachTag adds a tag to a record.
func (s *Service) AttachTag(ctx context.Context, recordID, tagID string) (*models.MealRecord, error) {
	return s.linkTag(ctx, recordID, tagID, true)
}

// DetachTag removes a tag from a record.
func (s *Service) DetachTag(ctx context.Context, recordID, tagID string) (*models.MealRecord, error) {
	return s.linkTag(ctx, recordID, tagID, false)
}

func (s *Service) linkTag(ctx context.Context, recordID, tagID string, attach bool) (*models.MealRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.GetTag(ctx, tagID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetRecord(ctx, recordID); err != nil {
		return nil, err
	}
	op := s.store.DetachTag
	if attach {
		op = s.store.AttachTag
	}
	if err := op(ctx, recordID, tagID); err != nil {
		return nil, err
	}

	r, err := s.store.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	s.notifier.PublishChange(EventRecordUpdated, r)
	return r, nil
}

// Tags returns every tag in display order.
func (s *Service) Tags(ctx context.Context) ([]models.Tag, error) {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	s.sorter.Sort(tags)
	return tags, nil
}

// GroupedTags returns the tags grouped by category in display order.
func (s *Service) GroupedTags(ctx context.Context) ([]tagset.Group, error) {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	return s.sorter.Group(tags), nil
}

// Categories returns the categories that currently have tags.
func (s *Service) Categories(ctx context.Context) ([]models.TagCategory, error) {
	return s.registry.Categories(ctx)
}
