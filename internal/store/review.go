package store

import (
	"database/sql"
	"time"

	"studydeck/internal/model"
)

// InsertSavedReview stores a generated review sheet.
func (s *Store) InsertSavedReview(r model.SavedReview) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO saved_reviews (user_id, flashcard_set_id, set_name, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		r.UserID, r.FlashcardSetID, r.SetName, r.Content, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetSavedReview returns one of the user's reviews, or nil if not found.
func (s *Store) GetSavedReview(userID, id int64) (*model.SavedReview, error) {
	var r model.SavedReview
	err := s.db.QueryRow(
		`SELECT id, user_id, flashcard_set_id, set_name, content, created_at
		 FROM saved_reviews WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&r.ID, &r.UserID, &r.FlashcardSetID, &r.SetName, &r.Content, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListSavedReviews returns the user's reviews, newest first.
func (s *Store) ListSavedReviews(userID int64) ([]model.SavedReview, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, flashcard_set_id, set_name, content, created_at
		 FROM saved_reviews WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reviews []model.SavedReview
	for rows.Next() {
		var r model.SavedReview
		if err := rows.Scan(&r.ID, &r.UserID, &r.FlashcardSetID, &r.SetName, &r.Content, &r.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// DeleteSavedReview removes a review. Returns sql.ErrNoRows if it is not the
// user's or does not exist.
func (s *Store) DeleteSavedReview(userID, id int64) error {
	res, err := s.db.Exec(`DELETE FROM saved_reviews WHERE id = ? AND user_id = ?`, id, userID)
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
