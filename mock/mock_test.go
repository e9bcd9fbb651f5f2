package mock_test

import (
	"testing"

	"github.com/mykhaliev/agent-testkit/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Response Tests
// ============================================================================

func TestNewResponse(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		r := mock.NewResponse("hello")

		assert.Equal(t, "hello", r.Content)
		assert.Equal(t, "gpt-4", r.Model)
		assert.Equal(t, 100, r.TokensUsed)
		assert.Equal(t, 0.01, r.Cost)
		assert.Equal(t, 0.5, r.Latency)
		assert.Empty(t, r.Metadata)
	})

	t.Run("Options override defaults", func(t *testing.T) {
		r := mock.NewResponse("hello",
			mock.WithModel("claude-3"),
			mock.WithTokensUsed(42),
			mock.WithCost(0.25),
			mock.WithLatency(1.5),
			mock.WithMetadata(map[string]any{"source": "test"}),
		)

		assert.Equal(t, "claude-3", r.Model)
		assert.Equal(t, 42, r.TokensUsed)
		assert.Equal(t, 0.25, r.Cost)
		assert.Equal(t, 1.5, r.Latency)
		assert.Equal(t, "test", r.Metadata["source"])
	})

	t.Run("WithMeta returns a copy", func(t *testing.T) {
		original := mock.NewResponse("hello")
		extended := original.WithMeta("run", "first")

		assert.Equal(t, "first", extended.Metadata["run"])
		assert.NotContains(t, original.Metadata, "run")

		// Chained extension does not leak between copies either.
		other := extended.WithMeta("run", "second")
		assert.Equal(t, "first", extended.Metadata["run"])
		assert.Equal(t, "second", other.Metadata["run"])
	})
}

// ============================================================================
// Resolver Tests
// ============================================================================

func TestResolve(t *testing.T) {
	t.Run("Default fallback", func(t *testing.T) {
		llm := mock.NewLLM()

		r := llm.Resolve("anything", nil)
		assert.Equal(t, "Mock response", r.Content)
	})

	t.Run("SetDefault replaces fallback", func(t *testing.T) {
		llm := mock.NewLLM()
		llm.SetDefault(mock.Text("custom fallback"))

		r := llm.Resolve("anything", nil)
		assert.Equal(t, "custom fallback", r.Content)
	})

	t.Run("Exact match requires full equality", func(t *testing.T) {
		llm := mock.NewLLM()
		llm.AddResponse("Hello", mock.Text("greeting"))

		assert.Equal(t, "greeting", llm.Resolve("Hello", nil).Content)
		assert.Equal(t, "Mock response", llm.Resolve("Hello there", nil).Content)
		assert.Equal(t, "Mock response", llm.Resolve("hello", nil).Content)
	})

	t.Run("First match wins in registration order", func(t *testing.T) {
		llm := mock.NewLLM()
		require.NoError(t, llm.AddPattern("Hello.*", mock.Text("first")))
		llm.AddResponse("Hello world", mock.Text("second"))

		assert.Equal(t, "first", llm.Resolve("Hello world", nil).Content)
	})

	t.Run("Pattern anchored at start", func(t *testing.T) {
		llm := mock.NewLLM()
		require.NoError(t, llm.AddPattern("world", mock.Text("matched")))

		// The pattern must match at position zero of the prompt.
		assert.Equal(t, "Mock response", llm.Resolve("hello world", nil).Content)
		assert.Equal(t, "matched", llm.Resolve("world peace", nil).Content)
	})

	t.Run("Pattern is a prefix match, not a full match", func(t *testing.T) {
		llm := mock.NewLLM()
		require.NoError(t, llm.AddPattern("What", mock.Text("question")))

		assert.Equal(t, "question", llm.Resolve("What is the weather?", nil).Content)
	})

	t.Run("Predicate sees prompt and kwargs", func(t *testing.T) {
		llm := mock.NewLLM()
		llm.AddPredicate(func(prompt string, kwargs map[string]any) bool {
			return kwargs["temperature"] == 0.9
		}, mock.Text("creative"))

		assert.Equal(t, "creative", llm.Resolve("anything", map[string]any{"temperature": 0.9}).Content)
		assert.Equal(t, "Mock response", llm.Resolve("anything", map[string]any{"temperature": 0.1}).Content)
	})

	t.Run("Predicate panic propagates", func(t *testing.T) {
		llm := mock.NewLLM()
		llm.AddPredicate(func(prompt string, kwargs map[string]any) bool {
			panic("boom")
		}, mock.Text("unreachable"))

		assert.Panics(t, func() {
			llm.Resolve("anything", nil)
		})
	})
}

func TestAddPattern(t *testing.T) {
	t.Run("Invalid pattern", func(t *testing.T) {
		llm := mock.NewLLM()

		err := llm.AddPattern("([unclosed", mock.Text("never"))
		require.Error(t, err)
		assert.ErrorIs(t, err, mock.ErrInvalidPattern)
	})
}

// ============================================================================
// Call History Tests
// ============================================================================

func TestCallHistory(t *testing.T) {
	t.Run("Every resolve is recorded", func(t *testing.T) {
		llm := mock.NewLLM()
		llm.Resolve("first", nil)
		llm.Resolve("second", map[string]any{"model": "gpt-4"})

		assert.Equal(t, 2, llm.CallCount())

		last, ok := llm.LastCall()
		require.True(t, ok)
		assert.Equal(t, "second", last.Prompt)
		assert.Equal(t, "gpt-4", last.KwArgs["model"])

		history := llm.History()
		require.Len(t, history, 2)
		assert.Equal(t, "first", history[0].Prompt)
	})

	t.Run("LastCall on fresh mock", func(t *testing.T) {
		llm := mock.NewLLM()

		_, ok := llm.LastCall()
		assert.False(t, ok)
	})

	t.Run("Reset clears history but keeps matchers", func(t *testing.T) {
		llm := mock.NewLLM()
		llm.AddResponse("Hello", mock.Text("greeting"))
		llm.Resolve("Hello", nil)
		require.Equal(t, 1, llm.CallCount())

		llm.Reset()

		assert.Equal(t, 0, llm.CallCount())
		_, ok := llm.LastCall()
		assert.False(t, ok)
		assert.Equal(t, "greeting", llm.Resolve("Hello", nil).Content)
	})
}

// ============================================================================
// Token Counting Tests
// ============================================================================

func TestWithCountedTokens(t *testing.T) {
	content := "The quick brown fox jumps over the lazy dog."
	r := mock.NewResponse(content, mock.WithCountedTokens("gpt-4"))

	assert.Equal(t, "gpt-4", r.Model)
	assert.Greater(t, r.TokensUsed, 0)
	assert.NotEqual(t, 100, r.TokensUsed)
}

func TestCountTokensFallback(t *testing.T) {
	// Unknown models use the len/4 estimate.
	text := "twelve chars"
	assert.Equal(t, len(text)/4, mock.CountTokens("not-a-real-model", text))
}
