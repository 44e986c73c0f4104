package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"studydeck/internal/i18n"
	"studydeck/internal/model"
)

type fakeSessionStore struct {
	sessions map[int64]model.ChatSession
	nextID   int64
	inserts  int
	updates  int
}

func newFakeStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[int64]model.ChatSession), nextID: 1}
}

func (f *fakeSessionStore) GetChatSession(userID, id int64) (*model.ChatSession, error) {
	cs, ok := f.sessions[id]
	if !ok || cs.UserID != userID {
		return nil, nil
	}
	return &cs, nil
}

func (f *fakeSessionStore) ChatSessionsForSet(userID, setID int64) ([]model.ChatSession, error) {
	var out []model.ChatSession
	for _, cs := range f.sessions {
		if cs.UserID == userID && cs.FlashcardSetID == setID {
			out = append(out, cs)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) InsertChatSession(cs model.ChatSession) (int64, error) {
	f.inserts++
	cs.ID = f.nextID
	f.nextID++
	f.sessions[cs.ID] = cs
	return cs.ID, nil
}

func (f *fakeSessionStore) UpdateChatSessionMessages(userID, id int64, messages []model.ChatMessage) error {
	f.updates++
	cs, ok := f.sessions[id]
	if !ok || cs.UserID != userID {
		return errors.New("no such session")
	}
	cs.Messages = messages
	cs.MessageCount = len(messages)
	cs.UpdatedAt = time.Now()
	f.sessions[id] = cs
	return nil
}

type fakeChatter struct {
	reply       string
	failures    int
	calls       int
	lastHistory []model.ChatMessage
}

func (f *fakeChatter) Chat(ctx context.Context, system string, history []model.ChatMessage, msg string) (string, error) {
	f.calls++
	f.lastHistory = history
	if f.calls <= f.failures {
		return "", errors.New("service unavailable")
	}
	return f.reply, nil
}

func newTestService(t *testing.T, store SessionStore, chatter Chatter) *Service {
	t.Helper()
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	s := NewService(store, chatter)
	s.sleep = func(time.Duration) {}
	return s
}

func chatSet() *model.FlashcardSet {
	return &model.FlashcardSet{
		ID:   9,
		Name: "World Capitals",
		Flashcards: []model.Flashcard{
			{ID: 0, Front: "Capital of Japan?", Back: "Tokyo"},
		},
	}
}

func TestOpenWithoutSessionSynthesizesWelcome(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, &fakeChatter{})

	cs, err := svc.Open(context.Background(), 1, chatSet())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if cs.ID != 0 {
		t.Errorf("unsaved session has ID %d", cs.ID)
	}
	if len(cs.Messages) != 1 || !cs.Messages[0].IsWelcome {
		t.Fatalf("expected a single welcome message, got %+v", cs.Messages)
	}
	if !strings.Contains(cs.Messages[0].Text(), "World Capitals") {
		t.Errorf("welcome message missing set name: %q", cs.Messages[0].Text())
	}
	if store.inserts != 0 {
		t.Errorf("Open persisted a session, inserts = %d", store.inserts)
	}
}

func TestSendCreatesSessionLazily(t *testing.T) {
	store := newFakeStore()
	chatter := &fakeChatter{reply: "Tokyo is the capital of Japan."}
	svc := newTestService(t, store, chatter)

	cs, err := svc.Send(context.Background(), 1, chatSet(), "What is the capital of Japan?")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if store.inserts != 1 {
		t.Fatalf("inserts = %d, want 1", store.inserts)
	}
	if cs.ID == 0 {
		t.Error("session ID not recorded after insert")
	}
	// Welcome + user turn + model turn.
	if len(cs.Messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(cs.Messages))
	}
	if cs.Messages[1].Role != model.RoleUser || cs.Messages[2].Role != model.RoleModel {
		t.Error("turns not appended in user-then-model order")
	}
	if cs.Messages[2].Text() != "Tokyo is the capital of Japan." {
		t.Errorf("model turn = %q", cs.Messages[2].Text())
	}
	// The welcome message must not reach the LLM.
	if len(chatter.lastHistory) != 0 {
		t.Errorf("first turn sent %d history entries, want 0", len(chatter.lastHistory))
	}

	// A second send updates the same session instead of creating another.
	if _, err := svc.Send(context.Background(), 1, chatSet(), "And of France?"); err != nil {
		t.Fatalf("second Send failed: %v", err)
	}
	if store.inserts != 1 || store.updates != 1 {
		t.Errorf("inserts = %d updates = %d, want 1 and 1", store.inserts, store.updates)
	}
}

func seedSession(store *fakeSessionStore, userID, setID int64, n int, updatedAt time.Time) int64 {
	messages := make([]model.ChatMessage, n)
	for i := range messages {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleModel
		}
		messages[i] = model.NewChatMessage(role, fmt.Sprintf("message %d", i), updatedAt)
	}
	id, _ := store.InsertChatSession(model.ChatSession{
		UserID:         userID,
		FlashcardSetID: setID,
		Messages:       messages,
		MessageCount:   n,
	})
	cs := store.sessions[id]
	cs.UpdatedAt = updatedAt
	store.sessions[id] = cs
	return id
}

func TestSendTruncatesOutboundHistory(t *testing.T) {
	store := newFakeStore()
	chatter := &fakeChatter{reply: "ok"}
	svc := newTestService(t, store, chatter)

	// 12 turns starting with a user turn: the outbound window keeps the
	// last 10, which happens to open on a user turn.
	seedSession(store, 1, 9, 12, time.Now())

	if _, err := svc.Send(context.Background(), 1, chatSet(), "next"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(chatter.lastHistory) != 10 {
		t.Fatalf("outbound history length = %d, want 10", len(chatter.lastHistory))
	}
	if chatter.lastHistory[0].Role != model.RoleUser {
		t.Error("outbound history does not open with a user turn")
	}
	if chatter.lastHistory[0].Text() != "message 2" {
		t.Errorf("oldest entries not dropped first, got %q", chatter.lastHistory[0].Text())
	}
}

func TestSendDiscardsHistoryNotOpeningWithUserTurn(t *testing.T) {
	store := newFakeStore()
	chatter := &fakeChatter{reply: "ok"}
	svc := newTestService(t, store, chatter)

	// 13 turns: the 10-entry window opens on a model turn, so the whole
	// history must be discarded rather than sent malformed.
	seedSession(store, 1, 9, 13, time.Now())

	if _, err := svc.Send(context.Background(), 1, chatSet(), "next"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(chatter.lastHistory) != 0 {
		t.Errorf("outbound history length = %d, want 0", len(chatter.lastHistory))
	}
}

func TestSendRetriesThenSucceeds(t *testing.T) {
	store := newFakeStore()
	chatter := &fakeChatter{reply: "finally", failures: 2}
	svc := newTestService(t, store, chatter)

	slept := 0
	svc.sleep = func(time.Duration) { slept++ }

	cs, err := svc.Send(context.Background(), 1, chatSet(), "hello")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if chatter.calls != 3 {
		t.Errorf("LLM called %d times, want 3", chatter.calls)
	}
	if slept != 2 {
		t.Errorf("slept %d times between attempts, want 2", slept)
	}
	if cs.Messages[len(cs.Messages)-1].Text() != "finally" {
		t.Error("successful retry's reply not used")
	}
}

func TestSendFallsBackToApology(t *testing.T) {
	store := newFakeStore()
	chatter := &fakeChatter{failures: 10}
	svc := newTestService(t, store, chatter)

	cs, err := svc.Send(context.Background(), 1, chatSet(), "hello")
	if err != nil {
		t.Fatalf("Send must not fail when the LLM is down, got %v", err)
	}
	if chatter.calls != 3 {
		t.Errorf("LLM called %d times, want 3", chatter.calls)
	}
	last := cs.Messages[len(cs.Messages)-1]
	if last.Role != model.RoleModel || !strings.Contains(last.Text(), "Sorry") {
		t.Errorf("expected an apology model turn, got %+v", last)
	}
}

func TestSendRejectsFullHistory(t *testing.T) {
	store := newFakeStore()
	chatter := &fakeChatter{reply: "ok"}
	svc := newTestService(t, store, chatter)

	seedSession(store, 1, 9, MaxMessageCount, time.Now())

	_, err := svc.Send(context.Background(), 1, chatSet(), "one more")
	if !errors.Is(err, ErrHistoryFull) {
		t.Fatalf("got %v, want ErrHistoryFull", err)
	}
	if chatter.calls != 0 {
		t.Errorf("LLM called %d times for a full session", chatter.calls)
	}
}

func TestResolvePicksMostRecentlyUpdated(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, &fakeChatter{})

	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	seedSession(store, 1, 9, 2, base)
	newest := seedSession(store, 1, 9, 2, base.Add(time.Hour))
	seedSession(store, 1, 9, 2, base.Add(time.Minute))

	cs, err := svc.Open(context.Background(), 1, chatSet())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if cs.ID != newest {
		t.Errorf("resolved session %d, want most recently updated %d", cs.ID, newest)
	}
}

func TestResolveRecoversFromStaleTracker(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, &fakeChatter{})

	id := seedSession(store, 1, 9, 2, time.Now())
	if _, err := svc.Open(context.Background(), 1, chatSet()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	// The tracked session vanishes; a later open must fall back to the
	// query path and find the remaining one.
	delete(store.sessions, id)
	replacement := seedSession(store, 1, 9, 2, time.Now())

	cs, err := svc.Open(context.Background(), 1, chatSet())
	if err != nil {
		t.Fatalf("Open after stale tracker failed: %v", err)
	}
	if cs.ID != replacement {
		t.Errorf("resolved session %d, want %d", cs.ID, replacement)
	}
}

func TestClearPreservesSessionIdentity(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, &fakeChatter{reply: "ok"})

	first, err := svc.Send(context.Background(), 1, chatSet(), "hello")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	cleared, err := svc.Clear(context.Background(), 1, chatSet())
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if cleared.ID != first.ID {
		t.Errorf("Clear changed the session ID from %d to %d", first.ID, cleared.ID)
	}
	if len(cleared.Messages) != 1 || !cleared.Messages[0].IsWelcome {
		t.Fatalf("cleared session should hold one welcome message, got %+v", cleared.Messages)
	}
	if cleared.MessageCount != 1 {
		t.Errorf("messageCount = %d, want 1", cleared.MessageCount)
	}
	if store.inserts != 1 {
		t.Errorf("Clear created a new session, inserts = %d", store.inserts)
	}
}

func TestClearWithoutSessionCreatesOne(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, &fakeChatter{})

	cs, err := svc.Clear(context.Background(), 1, chatSet())
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if cs.ID == 0 || store.inserts != 1 {
		t.Errorf("Clear on a fresh set should create the session, id = %d inserts = %d", cs.ID, store.inserts)
	}
}
