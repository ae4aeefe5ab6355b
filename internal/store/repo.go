package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/platelog/internal/apperr"
	"github.com/starford/platelog/internal/models"
)

// CreateRecord inserts r and links its tags within a transaction.
func (s *Store) CreateRecord(ctx context.Context, r models.MealRecord) error {
	if err := validateRecord(r); err != nil {
		return err
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (id, created_at, title, notes, quality, mealtime, photo_path, photo_remote_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.CreatedAt.UnixNano(), nullable(r.Title), nullable(r.Notes), int(r.Quality),
		nullableMealtime(r.Mealtime), nullable(r.PhotoPath), nullable(r.PhotoRemoteID))
	if isUniqueViolation(err) {
		return fmt.Errorf("store: record %s exists: %w", r.ID, apperr.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("store: insert record: %w", err)
	}

	for _, t := range r.Tags {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO record_tags (record_id, tag_id) VALUES (?, ?)`, r.ID, t.ID); err != nil {
			return fmt.Errorf("store: link tag: %w", err)
		}
	}
	return tx.Commit()
}

// GetRecord returns one record with its tags, including staged edits.
func (s *Store) GetRecord(ctx context.Context, id string) (*models.MealRecord, error) {
	s.Save(ctx)

	row := s.conn.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get record: %w", err)
	}
	records := []models.MealRecord{r}
	if err := s.loadTags(ctx, records); err != nil {
		return nil, err
	}
	return &records[0], nil
}

// DeleteRecord removes a record and its tag links. Tags are kept.
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	s.unstage(id)
	res, err := s.conn.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// CreateTag inserts a tag.
func (s *Store) CreateTag(ctx context.Context, t models.Tag) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("store: tag name is empty: %w", apperr.ErrInvalidInput)
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO tags (id, name, category, created_at) VALUES (?, ?, ?, ?)
	`, t.ID, t.Name, t.Category.String(), t.CreatedAt.UnixNano())
	if isUniqueViolation(err) {
		return fmt.Errorf("store: tag %s exists: %w", t.ID, apperr.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("store: insert tag: %w", err)
	}
	return nil
}

// GetTag returns one tag.
func (s *Store) GetTag(ctx context.Context, id string) (*models.Tag, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT id, name, category, created_at FROM tags WHERE id = ?`, id)
	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get tag: %w", err)
	}
	return &t, nil
}

// DeleteTag removes a tag. Its links to records disappear with it; the
// records themselves are never deleted.
func (s *Store) DeleteTag(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete tag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// AttachTag links a tag to a record. Attaching twice is a no-op.
func (s *Store) AttachTag(ctx context.Context, recordID, tagID string) error {
	_, err := s.conn.ExecContext(ctx, `INSERT OR IGNORE INTO record_tags (record_id, tag_id) VALUES (?, ?)`, recordID, tagID)
	if err != nil {
		return fmt.Errorf("store: attach tag: %w", err)
	}
	return nil
}

// DetachTag unlinks a tag from a record.
func (s *Store) DetachTag(ctx context.Context, recordID, tagID string) error {
	_, err := s.conn.ExecContext(ctx, `DELETE FROM record_tags WHERE record_id = ? AND tag_id = ?`, recordID, tagID)
	if err != nil {
		return fmt.Errorf("store: detach tag: %w", err)
	}
	return nil
}

// ListTags returns every tag in creation order.
func (s *Store) ListTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id, name, category, created_at FROM tags ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("store: list tags: %w", err)
	}
	defer rows.Close()

	var out []models.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountTags returns the number of tags. Fail-soft: 0 on error.
func (s *Store) CountTags(ctx context.Context) int {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT count(*) FROM tags`).Scan(&n); err != nil {
		s.fail("count tags", err)
		return 0
	}
	return n
}

// TagCountByCategory returns the number of tags in c.
func (s *Store) TagCountByCategory(ctx context.Context, c models.TagCategory) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT count(*) FROM tags WHERE category = ?`, c.String()).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count tags in category: %w", err)
	}
	return n, nil
}

// Wipe deletes every record and tag.
func (s *Store) Wipe(ctx context.Context) error {
	s.mu.Lock()
	s.staged = make(map[string]models.MealRecord)
	s.order = nil
	s.mu.Unlock()
	s.saver.Cancel()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range []string{`DELETE FROM record_tags`, `DELETE FROM records`, `DELETE FROM tags`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: wipe: %w", err)
		}
	}
	return tx.Commit()
}

const recordColumns = `id, created_at, title, notes, quality, mealtime, photo_path, photo_remote_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (models.MealRecord, error) {
	var (
		r                                 models.MealRecord
		createdAt                         int64
		quality                           int
		title, notes, mealtime, path, rid sql.NullString
	)
	if err := sc.Scan(&r.ID, &createdAt, &title, &notes, &quality, &mealtime, &path, &rid); err != nil {
		return models.MealRecord{}, err
	}
	r.CreatedAt = time.Unix(0, createdAt)
	r.Quality = models.Quality(quality)
	r.Title = fromNull(title)
	r.Notes = fromNull(notes)
	r.PhotoPath = fromNull(path)
	r.PhotoRemoteID = fromNull(rid)
	if mealtime.Valid {
		m := models.Mealtime(mealtime.String)
		r.Mealtime = &m
	}
	r.Tags = []models.Tag{}
	return r, nil
}

func scanTag(sc scanner) (models.Tag, error) {
	var (
		t         models.Tag
		category  string
		createdAt int64
	)
	if err := sc.Scan(&t.ID, &t.Name, &category, &createdAt); err != nil {
		return models.Tag{}, err
	}
	t.Category = models.ParseTagCategory(category)
	t.CreatedAt = time.Unix(0, createdAt)
	return t, nil
}

// loadTags fills the Tags of each record with one query per chunk.
func (s *Store) loadTags(ctx context.Context, records []models.MealRecord) error {
	const chunk = 500
	byID := make(map[string]int, len(records))
	for i := range records {
		byID[records[i].ID] = i
	}

	for start := 0; start < len(records); start += chunk {
		end := min(start+chunk, len(records))
		args := make([]any, 0, end-start)
		for _, r := range records[start:end] {
			args = append(args, r.ID)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")

		rows, err := s.conn.QueryContext(ctx, `
			SELECT rt.record_id, t.id, t.name, t.category, t.created_at
			FROM record_tags rt
			JOIN tags t ON t.id = rt.tag_id
			WHERE rt.record_id IN (`+placeholders+`)
			ORDER BY t.seq
		`, args...)
		if err != nil {
			return fmt.Errorf("store: load tags: %w", err)
		}
		for rows.Next() {
			var recordID string
			var t models.Tag
			var category string
			var createdAt int64
			if err := rows.Scan(&recordID, &t.ID, &t.Name, &category, &createdAt); err != nil {
				rows.Close()
				return fmt.Errorf("store: scan record tag: %w", err)
			}
			t.Category = models.ParseTagCategory(category)
			t.CreatedAt = time.Unix(0, createdAt)
			i := byID[recordID]
			records[i].Tags = append(records[i].Tags, t)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func validateRecord(r models.MealRecord) error {
	if r.ID == "" {
		return fmt.Errorf("store: record id is empty: %w", apperr.ErrInvalidInput)
	}
	if !r.Quality.Valid() {
		return fmt.Errorf("store: %v: %w", r.Quality, apperr.ErrInvalidInput)
	}
	if r.Mealtime != nil && !r.Mealtime.Valid() {
		return fmt.Errorf("store: mealtime %q: %w", *r.Mealtime, apperr.ErrInvalidInput)
	}
	return nil
}

func nullable(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableMealtime(m *models.Mealtime) any {
	if m == nil {
		return nil
	}
	return string(*m)
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// isUniqueViolation reports whether err is a primary key or unique
// constraint failure.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || se.ExtendedCode == sqlite3.ErrConstraintUnique
}
