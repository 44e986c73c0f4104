package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"studydeck/internal/model"
)

// ErrDuplicateSetName reports a per-user, case-insensitive name collision.
type ErrDuplicateSetName struct {
	Name string
}

func (e *ErrDuplicateSetName) Error() string {
	return fmt.Sprintf("a flashcard set named %q already exists", e.Name)
}

// CreateFlashcardSet inserts a new set. Card IDs are assigned by position.
func (s *Store) CreateFlashcardSet(set model.FlashcardSet) (int64, error) {
	for i := range set.Flashcards {
		set.Flashcards[i].ID = i
	}
	tags, err := marshalJSON(set.Tags)
	if err != nil {
		return 0, fmt.Errorf("marshal tags: %w", err)
	}
	cards, err := marshalJSON(set.Flashcards)
	if err != nil {
		return 0, fmt.Errorf("marshal cards: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT INTO flashcard_sets (user_id, name, tags, cards, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		set.UserID, set.Name, tags, cards, time.Now(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, &ErrDuplicateSetName{Name: set.Name}
		}
		return 0, err
	}
	return res.LastInsertId()
}

// GetFlashcardSet returns one of the user's sets, or nil if it does not
// exist or has been soft-deleted.
func (s *Store) GetFlashcardSet(userID, id int64) (*model.FlashcardSet, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, name, tags, cards, created_at, is_deleted, deleted_at
		 FROM flashcard_sets WHERE id = ? AND user_id = ? AND is_deleted = 0`, id, userID,
	)
	set, err := scanFlashcardSet(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return set, nil
}

// ListFlashcardSets returns the user's live (not soft-deleted) sets,
// newest first.
func (s *Store) ListFlashcardSets(userID int64) ([]model.FlashcardSet, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, name, tags, cards, created_at, is_deleted, deleted_at
		 FROM flashcard_sets WHERE user_id = ? AND is_deleted = 0
		 ORDER BY created_at DESC, id DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sets []model.FlashcardSet
	for rows.Next() {
		set, err := scanFlashcardSet(rows.Scan)
		if err != nil {
			return nil, err
		}
		sets = append(sets, *set)
	}
	return sets, rows.Err()
}

// SoftDeleteFlashcardSet flips the deletion flag. The row is never removed,
// so test results keep a valid set reference. Returns sql.ErrNoRows when the
// set does not exist or is already deleted.
func (s *Store) SoftDeleteFlashcardSet(userID, id int64) error {
	res, err := s.db.Exec(
		`UPDATE flashcard_sets SET is_deleted = 1, deleted_at = ?
		 WHERE id = ? AND user_id = ? AND is_deleted = 0`,
		time.Now(), id, userID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanFlashcardSet(scan func(...any) error) (*model.FlashcardSet, error) {
	var (
		set       model.FlashcardSet
		tags      string
		cards     string
		deletedAt sql.NullTime
	)
	if err := scan(&set.ID, &set.UserID, &set.Name, &tags, &cards, &set.CreatedAt, &set.IsDeleted, &deletedAt); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(tags, &set.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if err := unmarshalJSON(cards, &set.Flashcards); err != nil {
		return nil, fmt.Errorf("unmarshal cards: %w", err)
	}
	if deletedAt.Valid {
		set.DeletedAt = &deletedAt.Time
	}
	return &set, nil
}
