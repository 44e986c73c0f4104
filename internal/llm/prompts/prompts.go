// Package prompts builds the text prompts sent to the LLM.
package prompts

import (
	"fmt"
	"strings"

	"studydeck/internal/model"
)

// studyBlock renders the flashcards of a set as question/answer pairs.
func studyBlock(cards []model.Flashcard) string {
	var sb strings.Builder
	for _, c := range cards {
		fmt.Fprintf(&sb, "Question: %s\nAnswer: %s\n\n", c.Front, c.Back)
	}
	return sb.String()
}

// BuildQuestionGenPrompt builds the prompt for generating practice-test
// questions from a flashcard set. Only the requested question types are
// described, so the model is not tempted by the others.
func BuildQuestionGenPrompt(set *model.FlashcardSet, numQuestions int, types []model.QuestionType) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are a test generator. Based on the following study material, create exactly %d practice questions.\n\n", numQuestions)
	sb.WriteString("Study material:\n\n")
	sb.WriteString(studyBlock(set.Flashcards))

	sb.WriteString("Allowed question types and their JSON shapes:\n\n")
	for _, t := range types {
		switch t {
		case model.QuestionMultipleChoice:
			sb.WriteString(`multipleChoice:
{"type": "multipleChoice", "question": "...", "options": ["A", "B", "C", "D"], "correctAnswer": "B", "explanation": "..."}
The options array must contain exactly 4 entries and correctAnswer must be one of them, verbatim.

`)
		case model.QuestionTrueFalse:
			sb.WriteString(`trueFalse:
{"type": "trueFalse", "question": "...", "correctAnswer": true, "explanation": "..."}
correctAnswer must be the JSON boolean true or false, not a string.

`)
		case model.QuestionFillInBlank:
			sb.WriteString(`fillInBlank:
{"type": "fillInBlank", "question": "... with a _____ to fill in", "correctAnswer": "word", "explanation": "..."}
correctAnswer must be a short string.

`)
		}
	}

	sb.WriteString("Respond with a single JSON array of question objects and nothing else.\n")
	sb.WriteString("Do not wrap the response in markdown code fences.\n")
	return sb.String()
}

// BuildCardGenPrompt builds the prompt for generating flashcards from a
// free-form topic or pasted notes.
func BuildCardGenPrompt(topic string, numCards int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Create exactly %d flashcards for studying the following topic or notes.\n\n", numCards)
	sb.WriteString(topic)
	sb.WriteString("\n\n")
	sb.WriteString(`Respond with a single JSON array of objects shaped like:
{"front": "the question or term", "back": "the answer or definition"}
`)
	sb.WriteString("Keep fronts short and backs concise. Do not wrap the response in markdown code fences.\n")
	return sb.String()
}

// BuildReviewPrompt builds the prompt for a narrative review sheet of a set.
func BuildReviewPrompt(set *model.FlashcardSet) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a study review sheet for the set %q.\n\n", set.Name)
	sb.WriteString("It covers the following material:\n\n")
	sb.WriteString(studyBlock(set.Flashcards))
	sb.WriteString("Summarize the key concepts, group related items, and point out anything commonly confused. Use plain prose with short headings.\n")
	return sb.String()
}

// BuildChatSystemPrompt builds the system preamble for a tutoring chat
// grounded in one flashcard set. The full card contents are included so the
// model can answer without retrieval.
func BuildChatSystemPrompt(set *model.FlashcardSet) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a friendly study tutor helping a student with the flashcard set %q.\n\n", set.Name)
	sb.WriteString("The set contains this material:\n\n")
	sb.WriteString(studyBlock(set.Flashcards))
	sb.WriteString("Answer questions about this material, quiz the student when asked, and keep answers short and encouraging. If a question is unrelated to the set, gently steer back to the material.\n")
	return sb.String()
}
