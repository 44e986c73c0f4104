package testgen

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"studydeck/internal/model"
)

// State of a practice-test session. Completed is terminal; retaking a test
// means starting a whole new session.
type State string

const (
	StateInProgress State = "inProgress"
	StateCompleted  State = "completed"
)

var (
	ErrSessionNotFound = errors.New("test session not found")
	ErrTestCompleted   = errors.New("test already completed")
	ErrIndexOutOfRange = errors.New("question index out of range")
)

// Session is one in-flight practice test. Answers live only in memory until
// the final question is submitted; nothing is persisted before completion.
type Session struct {
	ID        string
	UserID    int64
	SetID     int64
	SetName   string
	Tags      []string
	Questions []model.Question
	Index     int
	State     State
	StartedAt time.Time

	answers map[int]any

	// Set on completion. SaveErr records a failed persist; the score is
	// still shown even when saving the result failed.
	Result  *model.TestResult
	SaveErr error
}

// Answer returns the recorded answer for a question index, or nil.
func (s *Session) Answer(index int) any {
	return s.answers[index]
}

// ResultStore is the slice of the store the session manager needs.
type ResultStore interface {
	InsertTestResult(r model.TestResult) (int64, error)
	HasResultBetween(userID int64, from, to time.Time) (bool, error)
}

// Manager owns all in-flight test sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	store    ResultStore
	now      func() time.Time
}

func NewManager(store ResultStore) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		store:    store,
		now:      time.Now,
	}
}

// Start creates a new session for a user and set. Any previous session the
// user had for the same set is discarded; stale sessions are never resumed.
func (m *Manager) Start(userID int64, set *model.FlashcardSet, questions []model.Question) (*Session, error) {
	if len(questions) == 0 {
		return nil, &ValidationError{Reason: "cannot start a test with no questions"}
	}
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for sid, s := range m.sessions {
		if s.UserID == userID && s.SetID == set.ID {
			delete(m.sessions, sid)
		}
	}
	session := &Session{
		ID:        id,
		UserID:    userID,
		SetID:     set.ID,
		SetName:   set.Name,
		Tags:      set.Tags,
		Questions: questions,
		State:     StateInProgress,
		StartedAt: m.now(),
		answers:   make(map[int]any),
	}
	m.sessions[id] = session
	return session, nil
}

// Get returns the user's session by ID.
func (m *Manager) Get(userID int64, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(userID, id)
}

func (m *Manager) get(userID int64, id string) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// RecordAnswer stores or overwrites the answer for a question index. It does
// not advance the session.
func (m *Manager) RecordAnswer(userID int64, id string, index int, answer any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.get(userID, id)
	if err != nil {
		return err
	}
	if s.State == StateCompleted {
		return ErrTestCompleted
	}
	if index < 0 || index >= len(s.Questions) {
		return ErrIndexOutOfRange
	}
	s.answers[index] = answer
	return nil
}

// Previous moves back one question.
func (m *Manager) Previous(userID int64, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.get(userID, id)
	if err != nil {
		return nil, err
	}
	if s.State == StateCompleted {
		return nil, ErrTestCompleted
	}
	if s.Index > 0 {
		s.Index--
	}
	return s, nil
}

// Next advances one question. Advancing past the last question completes the
// test: the score is computed, a TestResult is built and persisted, and the
// session becomes terminal. A failed persist is logged and recorded on the
// session but does not block completion; the user still sees their score.
func (m *Manager) Next(userID int64, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.get(userID, id)
	if err != nil {
		return nil, err
	}
	if s.State == StateCompleted {
		return nil, ErrTestCompleted
	}
	if s.Index < len(s.Questions)-1 {
		s.Index++
		return s, nil
	}
	m.complete(s)
	return s, nil
}

func (m *Manager) complete(s *Session) {
	score, err := Score(s.Questions, s.answers)
	if err != nil {
		// Unreachable: Start rejects empty question sets.
		s.SaveErr = err
		s.State = StateCompleted
		return
	}

	now := m.now()
	timeSpent := int(now.Sub(s.StartedAt).Seconds())
	if timeSpent < 1 {
		timeSpent = 1
	}

	details := make([]model.QuestionDetail, len(s.Questions))
	for i, q := range s.Questions {
		details[i] = model.QuestionDetail{
			Type:          q.Type,
			Question:      q.Question,
			CorrectAnswer: q.CorrectAnswer,
			UserAnswer:    s.answers[i],
			IsCorrect:     IsCorrect(q, s.answers[i]),
			Tags:          s.Tags,
		}
	}

	result := model.TestResult{
		UserID:           s.UserID,
		FlashcardSetID:   s.SetID,
		SetName:          s.SetName,
		DateTaken:        now,
		Score:            score,
		TimeSpentSeconds: timeSpent,
		TotalQuestions:   len(s.Questions),
		CorrectAnswers:   CorrectCount(score, len(s.Questions)),
		Tags:             s.Tags,
		Type:             model.ResultTypePracticeTest,
		QuestionDetails:  details,
	}

	result.IsNewDay = m.isNewDay(s.UserID, now)

	if id, err := m.store.InsertTestResult(result); err != nil {
		slog.Error("failed to save test result", "user_id", s.UserID, "error", err)
		s.SaveErr = err
	} else {
		result.ID = id
	}
	s.Result = &result
	s.State = StateCompleted
}

// isNewDay reports whether this is the user's first result of the local
// calendar day. A store error defaults to false rather than failing the
// completion.
func (m *Manager) isNewDay(userID int64, now time.Time) bool {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	exists, err := m.store.HasResultBetween(userID, dayStart, dayEnd)
	if err != nil {
		slog.Error("failed to check study streak", "user_id", userID, "error", err)
		return false
	}
	return !exists
}
