// Package agent provides a minimal conversational agent over any llms.Model.
// It is the seam the mock LLM plugs into: tests construct a ChatAgent around
// a mock and assert on its replies without any network traffic.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mykhaliev/agent-testkit/logger"
	"github.com/mykhaliev/agent-testkit/model"
	"github.com/tmc/langchaingo/llms"
)

type ChatAgent struct {
	Name         string
	LLMModel     llms.Model
	SystemPrompt string

	messages   []llms.MessageContent
	transcript []model.Message
	tokensUsed int
}

type Option func(*ChatAgent)

// WithSystemPrompt seeds the conversation with a system message.
func WithSystemPrompt(prompt string) Option {
	return func(a *ChatAgent) {
		a.SystemPrompt = prompt
	}
}

func NewChatAgent(name string, llmModel llms.Model, opts ...Option) *ChatAgent {
	a := &ChatAgent{Name: name, LLMModel: llmModel}
	for _, opt := range opts {
		opt(a)
	}
	a.Reset()
	return a
}

// Chat sends one user turn and returns the assistant reply. The exchange is
// appended to the conversation history.
func (a *ChatAgent) Chat(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	if ctx.Err() != nil {
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	}

	a.record("user", prompt)
	a.messages = append(a.messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
	})

	resp, err := a.LLMModel.GenerateContent(ctx, a.messages, options...)
	if err != nil {
		return "", fmt.Errorf("LLM generation error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	choice := resp.Choices[0]
	reply := choice.Content
	a.tokensUsed += totalTokens(choice.GenerationInfo)

	if strings.TrimSpace(reply) != "" {
		a.record("assistant", reply)
		a.messages = append(a.messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeAI,
			Parts: []llms.ContentPart{llms.TextContent{Text: reply}},
		})
	}

	logger.Logger.Debug("Chat turn finished",
		"agent", a.Name,
		"reply_length", len(reply),
		"tokens_used", a.tokensUsed)
	return reply, nil
}

// Transcript returns the recorded conversation in order.
func (a *ChatAgent) Transcript() []model.Message {
	out := make([]model.Message, len(a.transcript))
	copy(out, a.transcript)
	return out
}

// TokensUsed reports cumulative token usage across turns, as far as the
// model's GenerationInfo exposes it.
func (a *ChatAgent) TokensUsed() int {
	return a.tokensUsed
}

// Reset clears history and token counters, keeping the system prompt.
func (a *ChatAgent) Reset() {
	a.messages = nil
	a.transcript = nil
	a.tokensUsed = 0

	if a.SystemPrompt != "" {
		a.messages = append(a.messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: a.SystemPrompt}},
		})
	}
}

func (a *ChatAgent) record(role, content string) {
	a.transcript = append(a.transcript, model.Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
}

func totalTokens(info map[string]any) int {
	switch v := info["TotalTokens"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
