// Package chat implements the per-set study assistant conversation protocol.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"studydeck/internal/i18n"
	"studydeck/internal/llm/prompts"
	"studydeck/internal/model"
)

const (
	// maxHistoryLen bounds the history sent to the LLM. The persisted log
	// is never truncated.
	maxHistoryLen = 10

	// MaxMessageCount caps a session's persisted log. Past the cap, new
	// input is rejected until the history is cleared.
	MaxMessageCount = 20

	chatRetries = 2
	retryDelay  = time.Second
)

// ErrHistoryFull is returned when a session has reached MaxMessageCount.
var ErrHistoryFull = errors.New("chat history is full, clear it to continue")

// SessionStore is the slice of the store the chat service needs.
type SessionStore interface {
	GetChatSession(userID, id int64) (*model.ChatSession, error)
	ChatSessionsForSet(userID, setID int64) ([]model.ChatSession, error)
	InsertChatSession(cs model.ChatSession) (int64, error)
	UpdateChatSessionMessages(userID, id int64, messages []model.ChatMessage) error
}

// Chatter is the slice of the LLM client the chat service needs.
type Chatter interface {
	Chat(ctx context.Context, system string, history []model.ChatMessage, msg string) (string, error)
}

type trackerKey struct {
	userID int64
	setID  int64
}

// Service resolves each (user, set) pair to at most one logical conversation
// and appends turns to it. Session documents are created lazily on the first
// real user turn; until then the welcome message lives only in memory.
type Service struct {
	store SessionStore
	llm   Chatter

	mu      sync.Mutex
	tracker map[trackerKey]int64

	now   func() time.Time
	sleep func(time.Duration)
}

func NewService(store SessionStore, llm Chatter) *Service {
	return &Service{
		store:   store,
		llm:     llm,
		tracker: make(map[trackerKey]int64),
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// Open resolves the active session for a set. If none exists, it returns an
// unsaved session holding only a welcome message; the record is created
// later, on the first real user turn.
func (s *Service) Open(ctx context.Context, userID int64, set *model.FlashcardSet) (*model.ChatSession, error) {
	return s.resolve(ctx, userID, set)
}

func (s *Service) resolve(ctx context.Context, userID int64, set *model.FlashcardSet) (*model.ChatSession, error) {
	key := trackerKey{userID: userID, setID: set.ID}

	s.mu.Lock()
	trackedID, tracked := s.tracker[key]
	s.mu.Unlock()

	if tracked {
		cs, err := s.store.GetChatSession(userID, trackedID)
		if err != nil {
			return nil, err
		}
		if cs != nil {
			markWelcome(cs)
			return cs, nil
		}
		// Stale tracked ID; fall back to the query path.
		s.mu.Lock()
		delete(s.tracker, key)
		s.mu.Unlock()
	}

	candidates, err := s.store.ChatSessionsForSet(userID, set.ID)
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		best := candidates[0]
		for _, c := range candidates[1:] {
			if c.UpdatedAt.After(best.UpdatedAt) {
				best = c
			}
		}
		s.mu.Lock()
		s.tracker[key] = best.ID
		s.mu.Unlock()
		markWelcome(&best)
		return &best, nil
	}

	// No session yet. Synthesize a welcome, do not persist.
	return &model.ChatSession{
		UserID:           userID,
		Name:             set.Name,
		FlashcardSetID:   set.ID,
		FlashcardSetName: set.Name,
		Tags:             set.Tags,
		Messages:         []model.ChatMessage{s.welcomeMessage(ctx, set)},
		MessageCount:     1,
	}, nil
}

// Send appends a user turn and the model's reply to the set's session. The
// LLM call is retried a bounded number of times; if every attempt fails, an
// apology message takes the reply's place rather than failing the turn.
func (s *Service) Send(ctx context.Context, userID int64, set *model.FlashcardSet, msg string) (*model.ChatSession, error) {
	cs, err := s.resolve(ctx, userID, set)
	if err != nil {
		return nil, err
	}
	if len(cs.Messages) >= MaxMessageCount {
		return nil, ErrHistoryFull
	}

	history := outboundHistory(cs.Messages)
	system := prompts.BuildChatSystemPrompt(set)

	reply, err := s.chatWithRetry(ctx, system, history, msg)
	if err != nil {
		slog.Error("chat call failed after retries", "user_id", userID, "set_id", set.ID, "error", err)
		reply = i18n.T(ctx, "ChatApology")
	}

	now := s.now()
	cs.Messages = append(cs.Messages,
		model.NewChatMessage(model.RoleUser, msg, now),
		model.NewChatMessage(model.RoleModel, reply, s.now()),
	)
	cs.MessageCount = len(cs.Messages)
	cs.UpdatedAt = s.now()

	if err := s.persist(userID, set, cs); err != nil {
		// The turn already happened; a failed save must not erase it.
		slog.Error("failed to persist chat session", "user_id", userID, "set_id", set.ID, "error", err)
	}
	return cs, nil
}

// Clear resets the session to a single fresh welcome message. The session
// row and its ID are preserved so tracked references stay valid; only the
// message log is replaced.
func (s *Service) Clear(ctx context.Context, userID int64, set *model.FlashcardSet) (*model.ChatSession, error) {
	cs, err := s.resolve(ctx, userID, set)
	if err != nil {
		return nil, err
	}

	cs.Messages = []model.ChatMessage{s.welcomeMessage(ctx, set)}
	cs.MessageCount = 1
	cs.UpdatedAt = s.now()

	if err := s.persist(userID, set, cs); err != nil {
		return nil, err
	}
	return cs, nil
}

func (s *Service) persist(userID int64, set *model.FlashcardSet, cs *model.ChatSession) error {
	if cs.ID != 0 {
		return s.store.UpdateChatSessionMessages(userID, cs.ID, cs.Messages)
	}
	id, err := s.store.InsertChatSession(*cs)
	if err != nil {
		return err
	}
	cs.ID = id
	s.mu.Lock()
	s.tracker[trackerKey{userID: userID, setID: set.ID}] = id
	s.mu.Unlock()
	return nil
}

func (s *Service) chatWithRetry(ctx context.Context, system string, history []model.ChatMessage, msg string) (string, error) {
	var err error
	for attempt := 0; attempt <= chatRetries; attempt++ {
		if attempt > 0 {
			s.sleep(retryDelay)
		}
		var reply string
		reply, err = s.llm.Chat(ctx, system, history, msg)
		if err == nil {
			return reply, nil
		}
		slog.Warn("chat attempt failed", "attempt", attempt+1, "error", err)
	}
	return "", err
}

func (s *Service) welcomeMessage(ctx context.Context, set *model.FlashcardSet) model.ChatMessage {
	m := model.NewChatMessage(
		model.RoleModel,
		i18n.Td(ctx, "ChatWelcome", map[string]any{"SetName": set.Name}),
		s.now(),
	)
	m.IsWelcome = true
	return m
}

// markWelcome re-infers the transient welcome flag after a load: a log whose
// first message is from the model can only have started with a welcome.
func markWelcome(cs *model.ChatSession) {
	if len(cs.Messages) > 0 && cs.Messages[0].Role == model.RoleModel {
		cs.Messages[0].IsWelcome = true
	}
}

// outboundHistory shapes the persisted log into what the LLM accepts:
// welcome messages are dropped, only the last maxHistoryLen entries are
// kept, and the result must open with a user turn or be discarded entirely.
func outboundHistory(messages []model.ChatMessage) []model.ChatMessage {
	var history []model.ChatMessage
	for _, m := range messages {
		if m.IsWelcome {
			continue
		}
		history = append(history, m)
	}
	if len(history) > maxHistoryLen {
		history = history[len(history)-maxHistoryLen:]
	}
	if len(history) > 0 && history[0].Role != model.RoleUser {
		return nil
	}
	return history
}
