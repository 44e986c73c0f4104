package model

import (
	"context"
	"strings"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is the default role for registered users.
	UserRoleStudent UserRole = "student"
	// UserRoleAdmin can manage other users.
	UserRoleAdmin UserRole = "admin"
)

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents a logged-in browser session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Flashcard is a single front/back card. Immutable once created; its ID is
// the card's position in the owning set at creation time.
type Flashcard struct {
	ID    int    `json:"id"`
	Front string `json:"front"`
	Back  string `json:"back"`
}

// FlashcardSet is a named, tagged collection of flashcards owned by one user.
// Sets are soft-deleted: the row stays, the flag flips.
type FlashcardSet struct {
	ID         int64       `json:"id"`
	UserID     int64       `json:"-"`
	Name       string      `json:"name"`
	Tags       []string    `json:"tags"`
	Flashcards []Flashcard `json:"flashcards"`
	CreatedAt  time.Time   `json:"createdAt"`
	IsDeleted  bool        `json:"isDeleted,omitempty"`
	DeletedAt  *time.Time  `json:"deletedAt,omitempty"`
}

// QuestionType discriminates the practice-test question variants.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multipleChoice"
	QuestionTrueFalse      QuestionType = "trueFalse"
	QuestionFillInBlank    QuestionType = "fillInBlank"
)

// Question is one generated practice-test question. Questions are ephemeral:
// they live for a single test run and are only persisted inside a
// TestResult's question details.
//
// CorrectAnswer holds a string for multipleChoice and fillInBlank questions
// and a bool for trueFalse questions (coerced at validation time).
type Question struct {
	Type          QuestionType `json:"type"`
	Question      string       `json:"question"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer any          `json:"correctAnswer"`
	Explanation   string       `json:"explanation"`
}

// QuestionDetail records how one question was answered in a finished test.
type QuestionDetail struct {
	Type          QuestionType `json:"type"`
	Question      string       `json:"question"`
	CorrectAnswer any          `json:"correctAnswer"`
	UserAnswer    any          `json:"userAnswer"`
	IsCorrect     bool         `json:"isCorrect"`
	Tags          []string     `json:"tags"`
}

// ResultTypePracticeTest tags TestResult records written by the practice-test flow.
const ResultTypePracticeTest = "practice_test"

// TestResult is the single record written when a practice test completes.
// It is created exactly once and never mutated afterward.
type TestResult struct {
	ID               int64            `json:"id"`
	UserID           int64            `json:"-"`
	FlashcardSetID   int64            `json:"flashcardSetId"`
	SetName          string           `json:"setName"`
	DateTaken        time.Time        `json:"dateTaken"`
	Score            float64          `json:"score"`
	TimeSpentSeconds int              `json:"timeSpentSeconds"`
	TotalQuestions   int              `json:"totalQuestions"`
	CorrectAnswers   int              `json:"correctAnswers"`
	Tags             []string         `json:"tags"`
	Type             string           `json:"type"`
	IsNewDay         bool             `json:"isNewDay"`
	QuestionDetails  []QuestionDetail `json:"questionDetails"`
}

// MessageRole is the author of a chat message.
type MessageRole string

const (
	RoleUser  MessageRole = "user"
	RoleModel MessageRole = "model"
)

// MessagePart is one text fragment of a chat message.
type MessagePart struct {
	Text string `json:"text"`
}

// ChatMessage is a single turn in a chat session. IsWelcome marks the
// synthesized greeting shown before a real conversation exists; it is
// inferred on load and never stored as a durable field.
type ChatMessage struct {
	Role      MessageRole   `json:"role"`
	Parts     []MessagePart `json:"parts"`
	Timestamp time.Time     `json:"timestamp"`
	IsWelcome bool          `json:"isWelcomeMessage,omitempty"`
}

// Text joins the message parts into a single string.
func (m ChatMessage) Text() string {
	if len(m.Parts) == 1 {
		return m.Parts[0].Text
	}
	var sb strings.Builder
	for _, p := range m.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// NewChatMessage builds a single-part message.
func NewChatMessage(role MessageRole, text string, at time.Time) ChatMessage {
	return ChatMessage{
		Role:      role,
		Parts:     []MessagePart{{Text: text}},
		Timestamp: at,
	}
}

// ChatSession is the persisted conversation between one user and the
// assistant about one flashcard set. At most one session per (user, set)
// pair is active; resolution picks the most recently updated candidate.
type ChatSession struct {
	ID               int64         `json:"id"`
	UserID           int64         `json:"-"`
	Name             string        `json:"name"`
	FlashcardSetID   int64         `json:"flashcardSetId"`
	FlashcardSetName string        `json:"flashcardSetName"`
	Tags             []string      `json:"tags"`
	Messages         []ChatMessage `json:"messages"`
	MessageCount     int           `json:"messageCount"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// SavedReview is an AI-generated review sheet the user chose to keep.
type SavedReview struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"-"`
	FlashcardSetID int64     `json:"flashcardSetId"`
	SetName        string    `json:"setName"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// AppConfig holds runtime parameters set via CLI flags.
type AppConfig struct {
	Lang          string   // UI language for synthesized strings
	CORSOrigins   []string // allowed origins for the JSON API
	SecureCookies bool     // Set Secure flag on cookies (disable for local dev)
}
