package mock

import (
	"github.com/tmc/langchaingo/llms"
)

// Provider adapters reshape Resolve output into the response shapes real
// SDK clients return, so code written against an OpenAI-, Anthropic- or
// LiteLLM-style surface can run against the mock unmodified. The shapes are
// explicit value types constructed by pure mapping functions — there is no
// dynamic object construction anywhere.

// TokenUsage is the dual prompt/completion accounting used by
// chat-completion shapes. TokensUsed splits evenly via integer division.
type TokenUsage struct {
	TotalTokens      int `json:"total_tokens"`
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatChoice struct {
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatCompletion is the OpenAI/LiteLLM-style response shape:
// choices[0].message.content carries the reply.
type ChatCompletion struct {
	Choices []ChatChoice `json:"choices"`
	Model   string       `json:"model"`
	Usage   TokenUsage   `json:"usage"`
}

// ContentBlock is one Anthropic-style content element.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type AnthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// AnthropicMessage is the Anthropic-style response shape.
type AnthropicMessage struct {
	Content []ContentBlock `json:"content"`
	Model   string         `json:"model"`
	Usage   AnthropicUsage `json:"usage"`
}

func chatCompletion(r Response) ChatCompletion {
	half := r.TokensUsed / 2
	return ChatCompletion{
		Choices: []ChatChoice{
			{
				Message:      ChatMessage{Role: "assistant", Content: r.Content},
				FinishReason: "stop",
			},
		},
		Model: r.Model,
		Usage: TokenUsage{
			TotalTokens:      r.TokensUsed,
			PromptTokens:     half,
			CompletionTokens: half,
		},
	}
}

// OpenAIMock exposes the mock through an OpenAI-shaped surface.
type OpenAIMock struct {
	llm *LLM
}

func NewOpenAIMock(llm *LLM) *OpenAIMock {
	return &OpenAIMock{llm: llm}
}

// CreateChatCompletion extracts the last human message (multi-part text
// joined with a single space), resolves it alongside the keyword context,
// and maps the result into a chat-completion value.
func (o *OpenAIMock) CreateChatCompletion(messages []llms.MessageContent, kwargs map[string]any) ChatCompletion {
	return chatCompletion(o.llm.Resolve(LastUserMessage(messages), kwargs))
}

// AnthropicMock exposes the mock through an Anthropic-shaped surface.
type AnthropicMock struct {
	llm *LLM
}

func NewAnthropicMock(llm *LLM) *AnthropicMock {
	return &AnthropicMock{llm: llm}
}

func (a *AnthropicMock) CreateMessage(messages []llms.MessageContent, kwargs map[string]any) AnthropicMessage {
	r := a.llm.Resolve(LastUserMessage(messages), kwargs)
	half := r.TokensUsed / 2
	return AnthropicMessage{
		Content: []ContentBlock{{Type: "text", Text: r.Content}},
		Model:   r.Model,
		Usage: AnthropicUsage{
			InputTokens:  half,
			OutputTokens: half,
		},
	}
}

// LiteLLMMock exposes the mock through a LiteLLM-shaped surface, which
// mirrors the chat-completion shape.
type LiteLLMMock struct {
	llm *LLM
}

func NewLiteLLMMock(llm *LLM) *LiteLLMMock {
	return &LiteLLMMock{llm: llm}
}

func (l *LiteLLMMock) Completion(messages []llms.MessageContent, kwargs map[string]any) ChatCompletion {
	return chatCompletion(l.llm.Resolve(LastUserMessage(messages), kwargs))
}
