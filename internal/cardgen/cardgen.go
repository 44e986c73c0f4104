// Package cardgen generates flashcards from free-form text.
package cardgen

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

// Completer is the slice of the LLM client the card generator needs.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts llm.Options) (string, error)
}

// Generator produces flashcards from a topic or pasted notes.
type Generator struct {
	llm Completer
}

func NewGenerator(c Completer) *Generator {
	return &Generator{llm: c}
}

type rawCard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// Generate asks the model for flashcards. If the response is not valid JSON
// it falls back to splitting the text into line-based pairs; pasted notes
// often already look like "term: definition" lines.
func (g *Generator) Generate(ctx context.Context, topic string, numCards int) ([]model.Flashcard, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("topic must not be empty")
	}
	if numCards < 1 {
		return nil, fmt.Errorf("number of cards must be at least 1")
	}

	prompt := prompts.BuildCardGenPrompt(topic, numCards)
	raw, err := g.llm.Complete(ctx, prompt, llm.Options{Temperature: 0.7})
	if err != nil {
		return nil, fmt.Errorf("generate flashcards: %w", err)
	}

	cards := parseCards(raw)
	if len(cards) == 0 {
		slog.Warn("card generation produced no parseable cards, falling back to line splitting")
		cards = splitLines(raw)
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("could not extract any flashcards from the response")
	}
	for i := range cards {
		cards[i].ID = i
	}
	return cards, nil
}

func parseCards(raw string) []model.Flashcard {
	clean := llm.StripFences(raw)

	var rawCards []rawCard
	if err := json.Unmarshal([]byte(clean), &rawCards); err != nil {
		return nil
	}
	var cards []model.Flashcard
	for _, rc := range rawCards {
		front := strings.TrimSpace(rc.Front)
		back := strings.TrimSpace(rc.Back)
		if front == "" || back == "" {
			continue
		}
		cards = append(cards, model.Flashcard{Front: front, Back: back})
	}
	return cards
}

// splitLines extracts "front: back" or "front - back" pairs from plain text.
func splitLines(text string) []model.Flashcard {
	var cards []model.Flashcard
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var front, back string
		if i := strings.Index(line, ":"); i > 0 {
			front, back = line[:i], line[i+1:]
		} else if i := strings.Index(line, " - "); i > 0 {
			front, back = line[:i], line[i+3:]
		} else {
			continue
		}
		front = strings.TrimSpace(front)
		back = strings.TrimSpace(back)
		if front == "" || back == "" {
			continue
		}
		cards = append(cards, model.Flashcard{Front: front, Back: back})
	}
	return cards
}
