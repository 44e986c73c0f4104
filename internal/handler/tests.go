package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"studydeck/internal/model"
	"studydeck/internal/testgen"
)

type startTestRequest struct {
	NumQuestions  int                  `json:"numQuestions"`
	QuestionTypes []model.QuestionType `json:"questionTypes"`
}

// testView is the wire shape of an in-flight test session.
type testView struct {
	TestID         string            `json:"testId"`
	State          testgen.State     `json:"state"`
	Index          int               `json:"index"`
	TotalQuestions int               `json:"totalQuestions"`
	Questions      []model.Question  `json:"questions,omitempty"`
	Answer         any               `json:"answer,omitempty"`
	Result         *model.TestResult `json:"result,omitempty"`
	SaveFailed     bool              `json:"saveFailed,omitempty"`
}

func viewOf(s *testgen.Session, includeQuestions bool) testView {
	v := testView{
		TestID:         s.ID,
		State:          s.State,
		Index:          s.Index,
		TotalQuestions: len(s.Questions),
		Answer:         s.Answer(s.Index),
		Result:         s.Result,
		SaveFailed:     s.SaveErr != nil,
	}
	if includeQuestions {
		v.Questions = s.Questions
	}
	return v
}

func (h *Handler) handleStartTest(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	set := h.loadSet(w, r, user)
	if set == nil {
		return
	}

	var req startTestRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.NumQuestions < 1 {
		req.NumQuestions = 10
	}

	questions, err := h.questions.Generate(r.Context(), set, testgen.Config{
		NumQuestions: req.NumQuestions,
		Types:        req.QuestionTypes,
	})
	if err != nil {
		var verr *testgen.ValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusBadRequest, verr.Error())
			return
		}
		slog.Error("generate questions", "set_id", set.ID, "error", err)
		respondError(w, http.StatusBadGateway, "Failed to generate questions")
		return
	}
	if len(questions) == 0 {
		respondError(w, http.StatusBadGateway, "Failed to generate questions")
		return
	}

	session, err := h.tests.Start(user.ID, set, questions)
	if err != nil {
		slog.Error("start test session", "set_id", set.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusCreated, viewOf(session, true))
}

// loadTest fetches the user's test session, writing the 404 itself.
func (h *Handler) loadTest(w http.ResponseWriter, r *http.Request, user *model.User) *testgen.Session {
	session, err := h.tests.Get(user.ID, chi.URLParam(r, "testID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "test session not found")
		return nil
	}
	return session
}

func (h *Handler) handleGetTest(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	session := h.loadTest(w, r, user)
	if session == nil {
		return
	}
	respondJSON(w, http.StatusOK, viewOf(session, true))
}

type answerRequest struct {
	Index  int `json:"index"`
	Answer any `json:"answer"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	session := h.loadTest(w, r, user)
	if session == nil {
		return
	}

	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.tests.RecordAnswer(user.ID, session.ID, req.Index, req.Answer); err != nil {
		switch {
		case errors.Is(err, testgen.ErrTestCompleted):
			respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, testgen.ErrIndexOutOfRange):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusNotFound, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, viewOf(session, false))
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	session := h.loadTest(w, r, user)
	if session == nil {
		return
	}

	session, err := h.tests.Next(user.ID, session.ID)
	if err != nil {
		if errors.Is(err, testgen.ErrTestCompleted) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, viewOf(session, false))
}

func (h *Handler) handlePrevious(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	session := h.loadTest(w, r, user)
	if session == nil {
		return
	}

	session, err := h.tests.Previous(user.ID, session.ID)
	if err != nil {
		if errors.Is(err, testgen.ErrTestCompleted) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, viewOf(session, false))
}
