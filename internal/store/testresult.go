package store

import (
	"fmt"
	"time"

	"studydeck/internal/model"
)

// ResultFilter narrows ListTestResults. Zero values mean no filtering.
type ResultFilter struct {
	Tag   string // match results carrying this tag
	Date  string // YYYY-MM-DD, matches the local date of date_taken
	Page  int    // 1-based
	Limit int    // 0 means no pagination
}

// InsertTestResult writes one completed practice-test record. Results are
// insert-only; nothing ever updates them.
func (s *Store) InsertTestResult(r model.TestResult) (int64, error) {
	tags, err := marshalJSON(r.Tags)
	if err != nil {
		return 0, fmt.Errorf("marshal tags: %w", err)
	}
	details, err := marshalJSON(r.QuestionDetails)
	if err != nil {
		return 0, fmt.Errorf("marshal question details: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT INTO test_results (
			user_id, flashcard_set_id, set_name, date_taken, score,
			time_spent_seconds, total_questions, correct_answers,
			tags, type, is_new_day, question_details
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.UserID, r.FlashcardSetID, r.SetName, r.DateTaken, r.Score,
		r.TimeSpentSeconds, r.TotalQuestions, r.CorrectAnswers,
		tags, r.Type, r.IsNewDay, details,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListTestResults returns the user's results, newest first, with optional
// tag/date filters and pagination.
func (s *Store) ListTestResults(userID int64, f ResultFilter) ([]model.TestResult, error) {
	query := `SELECT id, user_id, flashcard_set_id, set_name, date_taken, score,
		time_spent_seconds, total_questions, correct_answers, tags, type,
		is_new_day, question_details
		FROM test_results WHERE user_id = ?`
	args := []any{userID}

	if f.Tag != "" {
		// Tags are stored as a JSON array; a quoted substring match is
		// enough because tag values never contain quotes.
		query += ` AND tags LIKE ?`
		args = append(args, `%"`+f.Tag+`"%`)
	}
	if f.Date != "" {
		query += ` AND DATE(date_taken) = ?`
		args = append(args, f.Date)
	}
	query += ` ORDER BY date_taken DESC, id DESC`
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, (page-1)*f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.TestResult
	for rows.Next() {
		var (
			r       model.TestResult
			tags    string
			details string
		)
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.FlashcardSetID, &r.SetName, &r.DateTaken, &r.Score,
			&r.TimeSpentSeconds, &r.TotalQuestions, &r.CorrectAnswers, &tags, &r.Type,
			&r.IsNewDay, &details,
		); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(tags, &r.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
		if err := unmarshalJSON(details, &r.QuestionDetails); err != nil {
			return nil, fmt.Errorf("unmarshal question details: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// HasResultBetween reports whether the user already has a result with
// date_taken in [from, to). Used for the new-day streak flag.
func (s *Store) HasResultBetween(userID int64, from, to time.Time) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM test_results
		 WHERE user_id = ? AND date_taken >= ? AND date_taken < ?`,
		userID, from, to,
	).Scan(&count)
	return count > 0, err
}

// ResultStats summarizes a user's test history.
type ResultStats struct {
	TotalTests       int     `json:"totalTests"`
	AverageScore     float64 `json:"averageScore"`
	TotalTimeSeconds int     `json:"totalTimeSeconds"`
	StudyDays        int     `json:"studyDays"`
}

// GetResultStats aggregates over all of the user's results. StudyDays counts
// results flagged is_new_day, i.e. distinct days with at least one test.
func (s *Store) GetResultStats(userID int64) (ResultStats, error) {
	var st ResultStats
	err := s.db.QueryRow(
		`SELECT COUNT(*),
			COALESCE(AVG(score), 0),
			COALESCE(SUM(time_spent_seconds), 0),
			COALESCE(SUM(is_new_day), 0)
		 FROM test_results WHERE user_id = ?`, userID,
	).Scan(&st.TotalTests, &st.AverageScore, &st.TotalTimeSeconds, &st.StudyDays)
	return st, err
}
