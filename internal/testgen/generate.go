// Package testgen turns a flashcard set into a scored practice test.
package testgen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"studydeck/internal/llm"
	"studydeck/internal/llm/prompts"
	"studydeck/internal/model"
)

// Completer is the slice of the LLM client the generator needs.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts llm.Options) (string, error)
}

// Config selects how many questions to generate and of which types.
type Config struct {
	NumQuestions int
	Types        []model.QuestionType
}

// Generator produces practice-test questions from a flashcard set.
type Generator struct {
	llm Completer
}

func NewGenerator(c Completer) *Generator {
	return &Generator{llm: c}
}

// rawQuestion holds a question as the model returned it, before the repair
// pass. correctAnswer stays raw JSON because its type varies per question.
type rawQuestion struct {
	Type          model.QuestionType `json:"type"`
	Question      string             `json:"question"`
	Options       []string           `json:"options"`
	CorrectAnswer json.RawMessage    `json:"correctAnswer"`
	Explanation   string             `json:"explanation"`
}

// Generate asks the model for questions, then repairs and validates the
// response. It makes a single attempt; it does not retry on model errors.
// An empty (but valid) result is returned as-is, not treated as a failure.
func (g *Generator) Generate(ctx context.Context, set *model.FlashcardSet, cfg Config) ([]model.Question, error) {
	if len(set.Flashcards) == 0 {
		return nil, &ValidationError{Reason: "flashcard set has no cards"}
	}
	if cfg.NumQuestions < 1 {
		return nil, &ValidationError{Reason: "number of questions must be at least 1"}
	}
	types := cfg.Types
	if len(types) == 0 {
		types = []model.QuestionType{
			model.QuestionMultipleChoice,
			model.QuestionTrueFalse,
			model.QuestionFillInBlank,
		}
	}

	prompt := prompts.BuildQuestionGenPrompt(set, cfg.NumQuestions, types)
	raw, err := g.llm.Complete(ctx, prompt, llm.Options{Temperature: 0.7})
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	questions, err := parseQuestions(raw)
	if err != nil {
		return nil, err
	}

	// The model is not trusted to respect the requested type distribution.
	allowed := make(map[model.QuestionType]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	filtered := questions[:0]
	for _, q := range questions {
		if allowed[q.Type] {
			filtered = append(filtered, q)
		}
	}
	if len(filtered) < len(questions) {
		slog.Warn("dropped questions of unrequested types",
			"requested", len(questions), "kept", len(filtered))
	}
	return filtered, nil
}

// parseQuestions parses the raw model output and runs the per-question
// repair/validation pass.
func parseQuestions(raw string) ([]model.Question, error) {
	clean := llm.StripFences(raw)

	var rawQuestions []rawQuestion
	if err := json.Unmarshal([]byte(clean), &rawQuestions); err != nil {
		return nil, &GenerationError{Reason: "invalid response format"}
	}

	questions := make([]model.Question, 0, len(rawQuestions))
	for i, rq := range rawQuestions {
		q, err := repairQuestion(i+1, rq)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// repairQuestion validates one raw question and fills in defaults. n is the
// 1-based question number used in error messages.
func repairQuestion(n int, rq rawQuestion) (model.Question, error) {
	q := model.Question{
		Type:        rq.Type,
		Question:    rq.Question,
		Options:     rq.Options,
		Explanation: rq.Explanation,
	}

	switch rq.Type {
	case model.QuestionMultipleChoice:
		if len(rq.Options) != 4 {
			return q, &GenerationError{
				Reason: fmt.Sprintf("multiple choice question %d must have exactly 4 options", n),
			}
		}
		var answer string
		if err := json.Unmarshal(rq.CorrectAnswer, &answer); err != nil {
			return q, &GenerationError{
				Reason: fmt.Sprintf("multiple choice question %d must have a string answer", n),
			}
		}
		found := false
		for _, opt := range rq.Options {
			if opt == answer {
				found = true
				break
			}
		}
		if !found {
			return q, &GenerationError{
				Reason: fmt.Sprintf("multiple choice question %d answer is not among its options", n),
			}
		}
		q.CorrectAnswer = answer

	case model.QuestionTrueFalse:
		var answer bool
		if err := json.Unmarshal(rq.CorrectAnswer, &answer); err != nil {
			// Models sometimes return "true"/"false" as strings.
			var s string
			if err := json.Unmarshal(rq.CorrectAnswer, &s); err != nil {
				return q, &GenerationError{
					Reason: fmt.Sprintf("true/false question %d must have a boolean answer", n),
				}
			}
			answer = strings.EqualFold(s, "true")
		}
		q.CorrectAnswer = answer

	case model.QuestionFillInBlank:
		var answer string
		if err := json.Unmarshal(rq.CorrectAnswer, &answer); err != nil {
			return q, &GenerationError{
				Reason: fmt.Sprintf("fill-in-blank question %d must have a string answer", n),
			}
		}
		q.CorrectAnswer = answer

	default:
		return q, &GenerationError{
			Reason: fmt.Sprintf("question %d has invalid type: %s", n, rq.Type),
		}
	}

	if q.Explanation == "" {
		q.Explanation = fmt.Sprintf("The correct answer is: %v", q.CorrectAnswer)
	}
	return q, nil
}
