package store

import (
	"context"
	"fmt"

	"github.com/starford/platelog/internal/models"
	"github.com/starford/platelog/internal/query"
)

// RecordStore is the persistence contract the journal service depends on.
type RecordStore interface {
	Fetch(ctx context.Context, q query.Query) []models.MealRecord
	Count(ctx context.Context, q query.Query) int
	CreateRecord(ctx context.Context, r models.MealRecord) error
	GetRecord(ctx context.Context, id string) (*models.MealRecord, error)
	DeleteRecord(ctx context.Context, id string) error
	Stage(r models.MealRecord) error
	Save(ctx context.Context)
	CreateTag(ctx context.Context, t models.Tag) error
	GetTag(ctx context.Context, id string) (*models.Tag, error)
	DeleteTag(ctx context.Context, id string) error
	AttachTag(ctx context.Context, recordID, tagID string) error
	DetachTag(ctx context.Context, recordID, tagID string) error
	ListTags(ctx context.Context) ([]models.Tag, error)
	CountTags(ctx context.Context) int
	TagCountByCategory(ctx context.Context, c models.TagCategory) (int, error)
	Wipe(ctx context.Context) error
}

var _ RecordStore = (*Store)(nil)

// Fetch returns the records matching q in q's order. Staged edits are
// committed first. On failure it logs and returns an empty slice.
func (s *Store) Fetch(ctx context.Context, q query.Query) []models.MealRecord {
	s.Save(ctx)

	records, err := s.fetch(ctx, q)
	if err != nil {
		s.fail("fetch", err)
		return []models.MealRecord{}
	}
	return records
}

func (s *Store) fetch(ctx context.Context, q query.Query) ([]models.MealRecord, error) {
	stmt := `SELECT ` + recordColumns + ` FROM records`
	where, args := q.Where()
	if where != "" {
		stmt += ` WHERE ` + where
	}
	stmt += ` ORDER BY ` + q.OrderBy()

	rows, err := s.conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	records := []models.MealRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	if err := s.loadTags(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

// Count returns the number of records matching q, or 0 on failure.
func (s *Store) Count(ctx context.Context, q query.Query) int {
	s.Save(ctx)

	stmt := `SELECT count(*) FROM records`
	where, args := q.Where()
	if where != "" {
		stmt += ` WHERE ` + where
	}
	var n int
	if err := s.conn.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		s.fail("count", err)
		return 0
	}
	return n
}
