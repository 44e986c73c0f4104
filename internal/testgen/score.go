package testgen

import (
	"math"
	"strings"

	"studydeck/internal/model"
)

// IsCorrect checks a user's answer against a question. A nil answer means
// the question was never answered and is always incorrect.
func IsCorrect(q model.Question, answer any) bool {
	switch q.Type {
	case model.QuestionTrueFalse:
		// Coercion of string answers happened at validation time; here both
		// sides must already be booleans.
		want, ok := q.CorrectAnswer.(bool)
		if !ok {
			return false
		}
		got, ok := answer.(bool)
		return ok && got == want

	case model.QuestionFillInBlank:
		want, ok := q.CorrectAnswer.(string)
		if !ok {
			return false
		}
		got, ok := answer.(string)
		if !ok {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(got), strings.TrimSpace(want))

	case model.QuestionMultipleChoice:
		want, ok := q.CorrectAnswer.(string)
		if !ok {
			return false
		}
		got, ok := answer.(string)
		return ok && got == want
	}
	return false
}

// Score computes the percentage of correct answers. answers is indexed by
// question position; missing entries count as incorrect.
func Score(questions []model.Question, answers map[int]any) (float64, error) {
	if len(questions) == 0 {
		return 0, &ValidationError{Reason: "cannot score a test with no questions"}
	}
	correct := 0
	for i, q := range questions {
		if IsCorrect(q, answers[i]) {
			correct++
		}
	}
	return float64(correct) / float64(len(questions)) * 100, nil
}

// CorrectCount rederives the number of correct answers from a percentage
// score. Stored results carry the score, not the raw count, so the count is
// always recomputed with this exact formula.
func CorrectCount(score float64, totalQuestions int) int {
	return int(math.Round(score * float64(totalQuestions) / 100))
}
