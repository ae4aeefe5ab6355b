package store

import (
	"context"
	"fmt"

	"github.com/starford/platelog/internal/models"
)

// Stage queues the mutable fields of r for the next save and schedules one.
// A later Stage for the same id replaces the earlier one. CreatedAt and Tags
// are ignored.
func (s *Store) Stage(r models.MealRecord) error {
	if err := validateRecord(r); err != nil {
		return err
	}
	s.mu.Lock()
	if _, ok := s.staged[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}
	s.staged[r.ID] = r
	s.mu.Unlock()

	s.ScheduleSave()
	return nil
}

// ScheduleSave signals a mutation. Signals within the save delay coalesce
// into a single commit.
func (s *Store) ScheduleSave() {
	s.saver.Schedule()
}

// Pending reports whether staged edits are waiting to be committed.
func (s *Store) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order) > 0
}

// Save cancels any scheduled save and commits staged edits now. It is a
// no-op when nothing is staged. Errors are logged, not returned.
func (s *Store) Save(ctx context.Context) {
	s.saver.Cancel()
	s.commitStaged(ctx)
}

func (s *Store) commitStaged(ctx context.Context) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	if len(s.order) == 0 {
		s.mu.Unlock()
		return
	}
	batch := make([]models.MealRecord, 0, len(s.order))
	for _, id := range s.order {
		batch = append(batch, s.staged[id])
	}
	s.staged = make(map[string]models.MealRecord)
	s.order = nil
	s.mu.Unlock()

	if err := s.writeBatch(ctx, batch); err != nil {
		s.fail("save", err)
		s.restage(batch)
		s.ScheduleSave()
	}
}

func (s *Store) writeBatch(ctx context.Context, batch []models.MealRecord) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE records
		SET title = ?, notes = ?, quality = ?, mealtime = ?, photo_path = ?, photo_remote_id = ?
		WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("prepare update: %w", err)
	}
	defer stmt.Close()

	for _, r := range batch {
		_, err := stmt.ExecContext(ctx, nullable(r.Title), nullable(r.Notes), int(r.Quality),
			nullableMealtime(r.Mealtime), nullable(r.PhotoPath), nullable(r.PhotoRemoteID), r.ID)
		if err != nil {
			return fmt.Errorf("update %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// restage puts a failed batch back unless newer edits were staged meanwhile.
func (s *Store) restage(batch []models.MealRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range batch {
		if _, ok := s.staged[r.ID]; ok {
			continue
		}
		s.staged[r.ID] = r
		s.order = append(s.order, r.ID)
	}
}

func (s *Store) unstage(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.staged[id]; !ok {
		return
	}
	delete(s.staged, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
