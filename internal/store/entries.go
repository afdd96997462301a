package store

import (
	"context"
	"fmt"

	"icarus/internal/models"
)

// ListEntries returns every entry of the user in insertion order.
func (s *Store) ListEntries(ctx context.Context, userID int) ([]models.Entry, error) {
	list := []models.Entry{}
	q := s.db.Rebind(`SELECT id, user_id, meal_name, protein_amount, created_at
		FROM entries WHERE user_id = ? ORDER BY seq`)
	if err := s.db.SelectContext(ctx, &list, q, userID); err != nil {
		return nil, fmt.Errorf("store: listing entries of user %d: %w", userID, err)
	}
	if err := s.enc.DecryptEntries(list); err != nil {
		return nil, fmt.Errorf("store: decrypting entries of user %d: %w", userID, err)
	}
	return list, nil
}

// InsertEntries stores list in one transaction; either every entry is written or none is.
func (s *Store) InsertEntries(ctx context.Context, list []models.Entry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	q := tx.Rebind(`INSERT INTO entries (id, user_id, meal_name, protein_amount, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	for _, e := range list {
		row := e
		if err := s.enc.EncryptEntry(&row); err != nil {
			return fmt.Errorf("store: encrypting entry %s: %w", e.ID, err)
		}
		if _, err := tx.ExecContext(ctx, q, row.ID, row.UserID, row.MealName, row.ProteinAmount, row.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("store: inserting entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// DeleteEntry removes one entry of the user. It reports false when nothing matched.
func (s *Store) DeleteEntry(ctx context.Context, userID int, entryID string) (bool, error) {
	q := s.db.Rebind(`DELETE FROM entries WHERE user_id = ? AND id = ?`)
	res, err := s.db.ExecContext(ctx, q, userID, entryID)
	if err != nil {
		return false, fmt.Errorf("store: deleting entry %s: %w", entryID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: deleting entry %s: %w", entryID, err)
	}
	return n > 0, nil
}
