package store

import (
	"database/sql"
	"fmt"
	"time"

	"studydeck/internal/model"
)

// InsertChatSession creates a new session row seeded with the given message
// history and returns its ID.
func (s *Store) InsertChatSession(cs model.ChatSession) (int64, error) {
	tags, err := marshalJSON(cs.Tags)
	if err != nil {
		return 0, fmt.Errorf("marshal tags: %w", err)
	}
	messages, err := marshalMessages(cs.Messages)
	if err != nil {
		return 0, fmt.Errorf("marshal messages: %w", err)
	}
	now := time.Now()
	res, err := s.db.Exec(
		`INSERT INTO chat_sessions (
			user_id, name, flashcard_set_id, flashcard_set_name,
			tags, messages, message_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cs.UserID, cs.Name, cs.FlashcardSetID, cs.FlashcardSetName,
		tags, messages, len(cs.Messages), now, now,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetChatSession returns the user's session by ID, or nil if not found.
// A stale tracked ID resolving to nil is a soft miss, not an error.
func (s *Store) GetChatSession(userID, id int64) (*model.ChatSession, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, name, flashcard_set_id, flashcard_set_name,
			tags, messages, message_count, created_at, updated_at
		 FROM chat_sessions WHERE id = ? AND user_id = ?`, id, userID,
	)
	cs, err := scanChatSession(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cs, nil
}

// ChatSessionsForSet returns every session the user has for a flashcard set.
// The store does not enforce uniqueness per (user, set); callers pick the
// most recently updated candidate.
func (s *Store) ChatSessionsForSet(userID, setID int64) ([]model.ChatSession, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, name, flashcard_set_id, flashcard_set_name,
			tags, messages, message_count, created_at, updated_at
		 FROM chat_sessions WHERE user_id = ? AND flashcard_set_id = ?`, userID, setID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []model.ChatSession
	for rows.Next() {
		cs, err := scanChatSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *cs)
	}
	return sessions, rows.Err()
}

// UpdateChatSessionMessages replaces the session's message log in place,
// recomputes message_count and bumps updated_at. The row identity is
// preserved so tracked session IDs stay valid across appends and clears.
func (s *Store) UpdateChatSessionMessages(userID, id int64, messages []model.ChatMessage) error {
	data, err := marshalMessages(messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	res, err := s.db.Exec(
		`UPDATE chat_sessions SET messages = ?, message_count = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		data, len(messages), time.Now(), id, userID,
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

// marshalMessages serializes the message log, clearing the transient
// welcome flag; it is re-inferred when the session is loaded.
func marshalMessages(messages []model.ChatMessage) (string, error) {
	clean := make([]model.ChatMessage, len(messages))
	for i, m := range messages {
		m.IsWelcome = false
		clean[i] = m
	}
	return marshalJSON(clean)
}

func scanChatSession(scan func(...any) error) (*model.ChatSession, error) {
	var (
		cs       model.ChatSession
		tags     string
		messages string
	)
	if err := scan(
		&cs.ID, &cs.UserID, &cs.Name, &cs.FlashcardSetID, &cs.FlashcardSetName,
		&tags, &messages, &cs.MessageCount, &cs.CreatedAt, &cs.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(tags, &cs.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if err := unmarshalJSON(messages, &cs.Messages); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	return &cs, nil
}
