package llm

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"studydeck/internal/model"
)

// Options controls a single completion call.
type Options struct {
	Temperature float32
	MaxTokens   int
}

// Client wraps an OpenAI-compatible API client. It makes exactly one attempt
// per call; retry policy belongs to the caller.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client. baseURL may point at any OpenAI-compatible
// endpoint (hosted API, local ollama, etc).
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping verifies the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}

// Complete sends a single-shot prompt and returns the raw response text.
// The text is not guaranteed to be valid JSON; callers parse defensively.
func (c *Client) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}
	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM completion", "model", c.model, "bytes", len(raw))
	return raw, nil
}

// Chat sends a multi-turn conversation: a system preamble, prior history and
// the user's current message. History must already be truncated and start
// with a user turn; that is the chat protocol's job, not the client's.
func (c *Client) Chat(ctx context.Context, system string, history []model.ChatMessage, msg string) (string, error) {
	chatMsgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	chatMsgs = append(chatMsgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == model.RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		chatMsgs = append(chatMsgs, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Text(),
		})
	}
	chatMsgs = append(chatMsgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: msg,
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chatMsgs,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("LLM chat call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

var fenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// StripFences removes surrounding markdown code-fence markers from a raw
// response. Models wrap JSON in ``` fences no matter how firmly the prompt
// forbids it.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
