package store

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"studydeck/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestUser(t *testing.T, s *Store, username string) int64 {
	t.Helper()
	id, err := s.CreateUser(model.User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: "hash",
		Role:         model.UserRoleStudent,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("insertTestUser: %v", err)
	}
	return id
}

func insertTestSet(t *testing.T, s *Store, userID int64, name string, tags []string) int64 {
	t.Helper()
	id, err := s.CreateFlashcardSet(model.FlashcardSet{
		UserID: userID,
		Name:   name,
		Tags:   tags,
		Flashcards: []model.Flashcard{
			{Front: "Capital of France?", Back: "Paris"},
			{Front: "Capital of Spain?", Back: "Madrid"},
		},
	})
	if err != nil {
		t.Fatalf("insertTestSet: %v", err)
	}
	return id
}

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)

	count, err := s.UserCount()
	if err != nil {
		t.Fatalf("UserCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 users, got %d", count)
	}

	id := insertTestUser(t, s, "alice")

	u, err := s.GetUserByUsername("alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u == nil || u.ID != id {
		t.Fatalf("expected user %d, got %+v", id, u)
	}
	if !u.Active {
		t.Error("new user should be active")
	}

	missing, err := s.GetUserByUsername("nobody")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown username, got %+v", missing)
	}

	if err := s.ToggleUserActive(id); err != nil {
		t.Fatalf("ToggleUserActive: %v", err)
	}
	u, err = s.GetUserByID(id)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if u.Active {
		t.Error("toggle should have deactivated the user")
	}
}

func TestAuthSessions(t *testing.T) {
	s := newTestStore(t)
	userID := insertTestUser(t, s, "alice")

	token, err := s.CreateAuthSession(userID)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}

	sess, err := s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess == nil || sess.UserID != userID {
		t.Fatalf("expected session for user %d, got %+v", userID, sess)
	}

	unknown, err := s.GetAuthSession("deadbeef")
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if unknown != nil {
		t.Errorf("expected nil for unknown token, got %+v", unknown)
	}

	if err := s.DeleteAuthSession(token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	sess, err = s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess != nil {
		t.Errorf("expected nil after delete, got %+v", sess)
	}
}

func TestFlashcardSetCRUD(t *testing.T) {
	s := newTestStore(t)
	userID := insertTestUser(t, s, "alice")

	id := insertTestSet(t, s, userID, "Capitals", []string{"geography"})

	set, err := s.GetFlashcardSet(userID, id)
	if err != nil {
		t.Fatalf("GetFlashcardSet: %v", err)
	}
	if set == nil {
		t.Fatal("expected set, got nil")
	}
	if set.Name != "Capitals" {
		t.Errorf("name = %q, want Capitals", set.Name)
	}
	if len(set.Flashcards) != 2 {
		t.Fatalf("got %d cards, want 2", len(set.Flashcards))
	}
	// Card IDs are assigned by position.
	if set.Flashcards[0].ID != 0 || set.Flashcards[1].ID != 1 {
		t.Errorf("card IDs = %d, %d, want 0, 1", set.Flashcards[0].ID, set.Flashcards[1].ID)
	}
	if len(set.Tags) != 1 || set.Tags[0] != "geography" {
		t.Errorf("tags = %v", set.Tags)
	}

	// Another user cannot see it.
	otherID := insertTestUser(t, s, "bob")
	other, err := s.GetFlashcardSet(otherID, id)
	if err != nil {
		t.Fatalf("GetFlashcardSet: %v", err)
	}
	if other != nil {
		t.Error("set visible to another user")
	}

	sets, err := s.ListFlashcardSets(userID)
	if err != nil {
		t.Fatalf("ListFlashcardSets: %v", err)
	}
	if len(sets) != 1 {
		t.Fatalf("got %d sets, want 1", len(sets))
	}
}

func TestFlashcardSetDuplicateName(t *testing.T) {
	s := newTestStore(t)
	userID := insertTestUser(t, s, "alice")
	insertTestSet(t, s, userID, "Capitals", nil)

	// Same name, different case, same user: rejected.
	_, err := s.CreateFlashcardSet(model.FlashcardSet{
		UserID:     userID,
		Name:       "CAPITALS",
		Flashcards: []model.Flashcard{{Front: "f", Back: "b"}},
	})
	var dup *ErrDuplicateSetName
	if !errors.As(err, &dup) {
		t.Fatalf("got %v, want ErrDuplicateSetName", err)
	}

	// Same name for another user: fine.
	otherID := insertTestUser(t, s, "bob")
	if _, err := s.CreateFlashcardSet(model.FlashcardSet{
		UserID:     otherID,
		Name:       "Capitals",
		Flashcards: []model.Flashcard{{Front: "f", Back: "b"}},
	}); err != nil {
		t.Fatalf("same name for another user rejected: %v", err)
	}
}

func TestFlashcardSetSoftDelete(t *testing.T) {
	s := newTestStore(t)
	userID := insertTestUser(t, s, "alice")
	id := insertTestSet(t, s, userID, "Capitals", nil)

	if err := s.SoftDeleteFlashcardSet(userID, id); err != nil {
		t.Fatalf("SoftDeleteFlashcardSet: %v", err)
	}

	set, err := s.GetFlashcardSet(userID, id)
	if err != nil {
		t.Fatalf("GetFlashcardSet: %v", err)
	}
	if set != nil {
		t.Error("soft-deleted set still visible")
	}

	sets, err := s.ListFlashcardSets(userID)
	if err != nil {
		t.Fatalf("ListFlashcardSets: %v", err)
	}
	if len(sets) != 0 {
		t.Errorf("soft-deleted set still listed, got %d sets", len(sets))
	}

	// Deleting again reports not found.
	if err := s.SoftDeleteFlashcardSet(userID, id); err != sql.ErrNoRows {
		t.Errorf("second delete err = %v, want ErrNoRows", err)
	}

	// The name is reusable after deletion.
	if _, err := s.CreateFlashcardSet(model.FlashcardSet{
		UserID:     userID,
		Name:       "Capitals",
		Flashcards: []model.Flashcard{{Front: "f", Back: "b"}},
	}); err != nil {
		t.Fatalf("name not reusable after soft delete: %v", err)
	}
}

func insertTestResult(t *testing.T, s *Store, userID int64, score float64, dateTaken time.Time, tags []string) int64 {
	t.Helper()
	id, err := s.InsertTestResult(model.TestResult{
		UserID:           userID,
		FlashcardSetID:   1,
		SetName:          "Capitals",
		DateTaken:        dateTaken,
		Score:            score,
		TimeSpentSeconds: 60,
		TotalQuestions:   10,
		CorrectAnswers:   int(score / 10),
		Tags:             tags,
		Type:             model.ResultTypePracticeTest,
		IsNewDay:         true,
		QuestionDetails: []model.QuestionDetail{
			{Type: model.QuestionTrueFalse, Question: "q", CorrectAnswer: true, UserAnswer: true, IsCorrect: true},
		},
	})
	if err != nil {
		t.Fatalf("insertTestResult: %v", err)
	}
	return id
}

func TestTestResults(t *testing.T) {
	s := newTestStore(t)
	userID := insertTestUser(t, s, "alice")

	day1 := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)
	insertTestResult(t, s, userID, 70, day1, []string{"geography"})
	insertTestResult(t, s, userID, 90, day2, []string{"history"})

	results, err := s.ListTestResults(userID, ResultFilter{})
	if err != nil {
		t.Fatalf("ListTestResults: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	// Newest first.
	if !results[0].DateTaken.After(results[1].DateTaken) {
		t.Error("results not ordered newest first")
	}
	if len(results[0].QuestionDetails) != 1 {
		t.Errorf("question details not round-tripped: %+v", results[0].QuestionDetails)
	}

	// Tag filter.
	tagged, err := s.ListTestResults(userID, ResultFilter{Tag: "geography"})
	if err != nil {
		t.Fatalf("ListTestResults: %v", err)
	}
	if len(tagged) != 1 || tagged[0].Score != 70 {
		t.Errorf("tag filter returned %+v", tagged)
	}

	// Date filter.
	dated, err := s.ListTestResults(userID, ResultFilter{Date: "2025-04-02"})
	if err != nil {
		t.Fatalf("ListTestResults: %v", err)
	}
	if len(dated) != 1 || dated[0].Score != 90 {
		t.Errorf("date filter returned %+v", dated)
	}

	// Pagination.
	page, err := s.ListTestResults(userID, ResultFilter{Page: 2, Limit: 1})
	if err != nil {
		t.Fatalf("ListTestResults: %v", err)
	}
	if len(page) != 1 || page[0].Score != 70 {
		t.Errorf("pagination returned %+v", page)
	}
}

func TestHasResultBetween(t *testing.T) {
	s := newTestStore(t)
	userID := insertTestUser(t, s, "alice")

	taken := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	insertTestResult(t, s, userID, 70, taken, nil)

	dayStart := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	exists, err := s.HasResultBetween(userID, dayStart, dayEnd)
	if err != nil {
		t.Fatalf("HasResultBetween: %v", err)
	}
	if !exists {
		t.Error("expected a result on 2025-04-01")
	}

	exists, err = s.HasResultBetween(userID, dayEnd, dayEnd.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("HasResultBetween: %v", err)
	}
	if exists {
		t.Error("expected no result on 2025-04-02")
	}
}

func TestResultStats(t *testing.T) {
	s := newTestStore(t)
	userID := insertTestUser(t, s, "alice")

	day1 := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	insertTestResult(t, s, userID, 60, day1, nil)
	insertTestResult(t, s, userID, 80, day1.Add(time.Hour), nil)

	stats, err := s.GetResultStats(userID)
	if err != nil {
		t.Fatalf("GetResultStats: %v", err)
	}
	if stats.TotalTests != 2 {
		t.Errorf("totalTests = %d, want 2", stats.TotalTests)
	}
	if stats.AverageScore != 70 {
		t.Errorf("averageScore = %v, want 70", stats.AverageScore)
	}
	if stats.TotalTimeSeconds != 120 {
		t.Errorf("totalTimeSeconds = %d, want 120", stats.TotalTimeSeconds)
	}
}

func TestChatSessions(t *testing.T) {
	s := newTestStore(t)
	userID := insertTestUser(t, s, "alice")

	welcome := model.NewChatMessage(model.RoleModel, "welcome", time.Now())
	welcome.IsWelcome = true
	id, err := s.InsertChatSession(model.ChatSession{
		UserID:           userID,
		Name:             "Capitals",
		FlashcardSetID:   1,
		FlashcardSetName: "Capitals",
		Messages:         []model.ChatMessage{welcome},
	})
	if err != nil {
		t.Fatalf("InsertChatSession: %v", err)
	}

	cs, err := s.GetChatSession(userID, id)
	if err != nil {
		t.Fatalf("GetChatSession: %v", err)
	}
	if cs == nil {
		t.Fatal("expected session, got nil")
	}
	if cs.MessageCount != 1 || len(cs.Messages) != 1 {
		t.Fatalf("messageCount = %d messages = %d, want 1 and 1", cs.MessageCount, len(cs.Messages))
	}
	// The welcome flag is transient and must not be persisted.
	if cs.Messages[0].IsWelcome {
		t.Error("welcome flag persisted")
	}

	messages := append(cs.Messages,
		model.NewChatMessage(model.RoleUser, "hello", time.Now()),
		model.NewChatMessage(model.RoleModel, "hi there", time.Now()),
	)
	if err := s.UpdateChatSessionMessages(userID, id, messages); err != nil {
		t.Fatalf("UpdateChatSessionMessages: %v", err)
	}

	cs, err = s.GetChatSession(userID, id)
	if err != nil {
		t.Fatalf("GetChatSession: %v", err)
	}
	if cs.MessageCount != 3 {
		t.Errorf("messageCount = %d, want 3", cs.MessageCount)
	}
	if cs.Messages[2].Text() != "hi there" {
		t.Errorf("last message = %q", cs.Messages[2].Text())
	}
	if !cs.UpdatedAt.After(cs.CreatedAt) {
		t.Error("updatedAt not bumped")
	}

	sessions, err := s.ChatSessionsForSet(userID, 1)
	if err != nil {
		t.Fatalf("ChatSessionsForSet: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}

	// Updating someone else's session must fail.
	otherID := insertTestUser(t, s, "bob")
	if err := s.UpdateChatSessionMessages(otherID, id, messages); err != sql.ErrNoRows {
		t.Errorf("cross-user update err = %v, want ErrNoRows", err)
	}
}

func TestSavedReviews(t *testing.T) {
	s := newTestStore(t)
	userID := insertTestUser(t, s, "alice")

	id, err := s.InsertSavedReview(model.SavedReview{
		UserID:         userID,
		FlashcardSetID: 1,
		SetName:        "Capitals",
		Content:        "A review of European capitals.",
	})
	if err != nil {
		t.Fatalf("InsertSavedReview: %v", err)
	}

	review, err := s.GetSavedReview(userID, id)
	if err != nil {
		t.Fatalf("GetSavedReview: %v", err)
	}
	if review == nil || review.Content != "A review of European capitals." {
		t.Fatalf("unexpected review: %+v", review)
	}

	reviews, err := s.ListSavedReviews(userID)
	if err != nil {
		t.Fatalf("ListSavedReviews: %v", err)
	}
	if len(reviews) != 1 {
		t.Fatalf("got %d reviews, want 1", len(reviews))
	}

	if err := s.DeleteSavedReview(userID, id); err != nil {
		t.Fatalf("DeleteSavedReview: %v", err)
	}
	if err := s.DeleteSavedReview(userID, id); err != sql.ErrNoRows {
		t.Errorf("second delete err = %v, want ErrNoRows", err)
	}
}

func TestMetadataAndExport(t *testing.T) {
	s := newTestStore(t)
	userID := insertTestUser(t, s, "alice")

	if err := s.RecordLLMModel("llama3.2"); err != nil {
		t.Fatalf("RecordLLMModel: %v", err)
	}
	// Upsert overwrites.
	if err := s.RecordLLMModel("qwen2.5"); err != nil {
		t.Fatalf("RecordLLMModel: %v", err)
	}
	name, err := s.LastLLMModel()
	if err != nil {
		t.Fatalf("LastLLMModel: %v", err)
	}
	if name != "qwen2.5" {
		t.Errorf("LastLLMModel = %q, want qwen2.5", name)
	}

	insertTestResult(t, s, userID, 70, time.Now(), nil)

	export, err := s.ExportUserResults("alice")
	if err != nil {
		t.Fatalf("ExportUserResults: %v", err)
	}
	if export.Username != "alice" || export.NumResults != 1 || export.LLMModel != "qwen2.5" {
		t.Errorf("unexpected export: %+v", export)
	}

	if _, err := s.ExportUserResults("nobody"); err == nil {
		t.Error("expected an error for an unknown user")
	}
}
