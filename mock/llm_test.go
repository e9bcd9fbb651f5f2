package mock_test

import (
	"context"
	"testing"

	"github.com/mykhaliev/agent-testkit/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func humanMessage(texts ...string) llms.MessageContent {
	parts := make([]llms.ContentPart, len(texts))
	for i, text := range texts {
		parts[i] = llms.TextContent{Text: text}
	}
	return llms.MessageContent{Role: llms.ChatMessageTypeHuman, Parts: parts}
}

// ============================================================================
// llms.Model Tests
// ============================================================================

func TestGenerateContent(t *testing.T) {
	t.Run("Resolves last human message", func(t *testing.T) {
		llm := mock.NewLLM()
		llm.AddResponse("second question", mock.Text("matched"))

		messages := []llms.MessageContent{
			{Role: llms.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextContent{Text: "be nice"}}},
			humanMessage("first question"),
			{Role: llms.ChatMessageTypeAI, Parts: []llms.ContentPart{llms.TextContent{Text: "an answer"}}},
			humanMessage("second question"),
		}

		resp, err := llm.GenerateContent(context.Background(), messages)
		require.NoError(t, err)
		require.Len(t, resp.Choices, 1)
		assert.Equal(t, "matched", resp.Choices[0].Content)
		assert.Equal(t, "stop", resp.Choices[0].StopReason)
	})

	t.Run("Multi-part text joined with single space", func(t *testing.T) {
		llm := mock.NewLLM()
		llm.AddResponse("part one part two", mock.Text("joined"))

		resp, err := llm.GenerateContent(context.Background(),
			[]llms.MessageContent{humanMessage("part one", "part two")})
		require.NoError(t, err)
		assert.Equal(t, "joined", resp.Choices[0].Content)
	})

	t.Run("Token usage split in generation info", func(t *testing.T) {
		llm := mock.NewLLM()
		llm.SetDefault(mock.NewResponse("out", mock.WithTokensUsed(100)))

		resp, err := llm.GenerateContent(context.Background(), []llms.MessageContent{humanMessage("hi")})
		require.NoError(t, err)

		info := resp.Choices[0].GenerationInfo
		assert.Equal(t, 100, info["TotalTokens"])
		assert.Equal(t, 50, info["PromptTokens"])
		assert.Equal(t, 50, info["CompletionTokens"])
	})

	t.Run("Call options forwarded as kwargs", func(t *testing.T) {
		llm := mock.NewLLM()
		llm.AddPredicate(func(prompt string, kwargs map[string]any) bool {
			return kwargs["model"] == "gpt-4o"
		}, mock.Text("by model"))

		resp, err := llm.GenerateContent(context.Background(),
			[]llms.MessageContent{humanMessage("hi")}, llms.WithModel("gpt-4o"))
		require.NoError(t, err)
		assert.Equal(t, "by model", resp.Choices[0].Content)
	})
}

func TestCall(t *testing.T) {
	llm := mock.NewLLM()
	llm.AddResponse("ping", mock.Text("pong"))

	out, err := llm.Call(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", out)
	assert.Equal(t, 1, llm.CallCount())
}

func TestLastUserMessage(t *testing.T) {
	t.Run("No human message", func(t *testing.T) {
		messages := []llms.MessageContent{
			{Role: llms.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextContent{Text: "sys"}}},
		}
		assert.Equal(t, "", mock.LastUserMessage(messages))
	})

	t.Run("Empty input", func(t *testing.T) {
		assert.Equal(t, "", mock.LastUserMessage(nil))
	})
}

// ============================================================================
// Provider Adapter Tests
// ============================================================================

func TestOpenAIMock(t *testing.T) {
	llm := mock.NewLLM()
	llm.AddResponse("hi", mock.NewResponse("hello!", mock.WithTokensUsed(100)))

	completion := mock.NewOpenAIMock(llm).CreateChatCompletion(
		[]llms.MessageContent{humanMessage("hi")}, nil)

	require.Len(t, completion.Choices, 1)
	assert.Equal(t, "hello!", completion.Choices[0].Message.Content)
	assert.Equal(t, "assistant", completion.Choices[0].Message.Role)
	assert.Equal(t, "stop", completion.Choices[0].FinishReason)
	assert.Equal(t, "gpt-4", completion.Model)
	assert.Equal(t, 100, completion.Usage.TotalTokens)
	assert.Equal(t, 50, completion.Usage.PromptTokens)
	assert.Equal(t, 50, completion.Usage.CompletionTokens)
}

func TestAnthropicMock(t *testing.T) {
	llm := mock.NewLLM()
	llm.SetDefault(mock.NewResponse("from claude", mock.WithModel("claude-3"), mock.WithTokensUsed(80)))

	message := mock.NewAnthropicMock(llm).CreateMessage(
		[]llms.MessageContent{humanMessage("hi")}, nil)

	require.Len(t, message.Content, 1)
	assert.Equal(t, "text", message.Content[0].Type)
	assert.Equal(t, "from claude", message.Content[0].Text)
	assert.Equal(t, "claude-3", message.Model)
	assert.Equal(t, 40, message.Usage.InputTokens)
	assert.Equal(t, 40, message.Usage.OutputTokens)
}

func TestLiteLLMMock(t *testing.T) {
	llm := mock.NewLLM()

	completion := mock.NewLiteLLMMock(llm).Completion(
		[]llms.MessageContent{humanMessage("anything")}, nil)

	require.Len(t, completion.Choices, 1)
	assert.Equal(t, "Mock response", completion.Choices[0].Message.Content)
}
