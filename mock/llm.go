package mock

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// LLM satisfies llms.Model so it can be handed to any langchaingo-based
// agent in place of a real provider client.
var _ llms.Model = (*LLM)(nil)

// GenerateContent resolves the last human message against the registered
// matchers and shapes the result as a single-choice content response. Call
// options (model, max tokens, temperature) are forwarded as keyword context
// so predicate matchers can see them.
func (m *LLM) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	r := m.Resolve(LastUserMessage(messages), callKwargs(options))

	half := r.TokensUsed / 2
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				Content:    r.Content,
				StopReason: "stop",
				GenerationInfo: map[string]any{
					"TotalTokens":      r.TokensUsed,
					"PromptTokens":     half,
					"CompletionTokens": half,
					"Model":            r.Model,
				},
			},
		},
	}, nil
}

// Call resolves a bare prompt and returns the response content.
func (m *LLM) Call(_ context.Context, prompt string, options ...llms.CallOption) (string, error) {
	r := m.Resolve(prompt, callKwargs(options))
	return r.Content, nil
}

// LastUserMessage extracts the content of the last human-role message,
// joining multi-part text content with a single space. Returns "" when no
// human message is present.
func LastUserMessage(messages []llms.MessageContent) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != llms.ChatMessageTypeHuman {
			continue
		}
		var parts []string
		for _, part := range messages[i].Parts {
			if text, ok := part.(llms.TextContent); ok {
				parts = append(parts, text.Text)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

func callKwargs(options []llms.CallOption) map[string]any {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	kwargs := map[string]any{}
	if opts.Model != "" {
		kwargs["model"] = opts.Model
	}
	if opts.MaxTokens != 0 {
		kwargs["max_tokens"] = opts.MaxTokens
	}
	if opts.Temperature != 0 {
		kwargs["temperature"] = opts.Temperature
	}
	return kwargs
}
