package model_test

import (
	"testing"

	"github.com/mykhaliev/agent-testkit/mock"
	"github.com/mykhaliev/agent-testkit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalOne(t *testing.T, resp mock.Response, a model.Assertion) model.AssertionResult {
	t.Helper()
	results := model.NewAssertionEvaluator(resp, nil, nil).Evaluate([]model.Assertion{a})
	require.Len(t, results, 1)
	return results[0]
}

// ============================================================================
// Single Assertion Dispatch Tests
// ============================================================================

func TestEvaluateContentAssertions(t *testing.T) {
	resp := mock.NewResponse("The capital of France is Paris.")

	t.Run("Contains pass", func(t *testing.T) {
		r := evalOne(t, resp, model.Assertion{Type: "contains", Value: "paris"})
		assert.True(t, r.Passed)
		assert.Equal(t, "Output contains 'paris'", r.Message)
	})

	t.Run("Contains fail", func(t *testing.T) {
		r := evalOne(t, resp, model.Assertion{Type: "contains", Value: "London"})
		assert.False(t, r.Passed)
		assert.Contains(t, r.Message, "'london' not found")
	})

	t.Run("Not contains", func(t *testing.T) {
		r := evalOne(t, resp, model.Assertion{Type: "not_contains", Value: "London"})
		assert.True(t, r.Passed)

		r = evalOne(t, resp, model.Assertion{Type: "not_contains", Value: "Paris"})
		assert.False(t, r.Passed)
	})

	t.Run("Equals case sensitive", func(t *testing.T) {
		r := evalOne(t, resp, model.Assertion{
			Type:          "equals",
			Value:         "The capital of France is Paris.",
			CaseSensitive: true,
		})
		assert.True(t, r.Passed)
		assert.Equal(t, "Output equals expected value", r.Message)
	})

	t.Run("Regex", func(t *testing.T) {
		r := evalOne(t, resp, model.Assertion{Type: "regex", Pattern: `capital of \w+`})
		assert.True(t, r.Passed)

		r = evalOne(t, resp, model.Assertion{Type: "regex", Pattern: `^\d+$`})
		assert.False(t, r.Passed)
	})

	t.Run("Similarity with default threshold", func(t *testing.T) {
		r := evalOne(t, resp, model.Assertion{
			Type:  "similarity",
			Value: "the capital of france is paris",
		})
		assert.True(t, r.Passed)
	})
}

func TestEvaluateJSONAssertions(t *testing.T) {
	resp := mock.NewResponse(`{"city": "Paris", "confidence": 0.9}`)

	t.Run("Valid JSON", func(t *testing.T) {
		r := evalOne(t, resp, model.Assertion{Type: "json_valid"})
		assert.True(t, r.Passed)
		assert.Equal(t, "Output is valid JSON", r.Message)
	})

	t.Run("Valid JSON with schema", func(t *testing.T) {
		r := evalOne(t, resp, model.Assertion{
			Type: "json_valid",
			Schema: map[string]any{
				"type":     "object",
				"required": []any{"city"},
				"properties": map[string]any{
					"city": map[string]any{"type": "string"},
				},
			},
		})
		assert.True(t, r.Passed)
	})

	t.Run("JSON Schema violation", func(t *testing.T) {
		r := evalOne(t, resp, model.Assertion{
			Type: "json_schema",
			Schema: map[string]any{
				"type":     "object",
				"required": []any{"country"},
			},
		})
		assert.False(t, r.Passed)
		assert.Contains(t, r.Message, "Schema validation failed")
	})

	t.Run("JSON path", func(t *testing.T) {
		r := evalOne(t, resp, model.Assertion{Type: "json_path", Path: "$.confidence", Expected: 0.9})
		assert.True(t, r.Passed)

		r = evalOne(t, resp, model.Assertion{Type: "json_path", Path: "$.city", Expected: "London"})
		assert.False(t, r.Passed)
	})

	t.Run("Format", func(t *testing.T) {
		r := evalOne(t, resp, model.Assertion{Type: "format", Format: "json"})
		assert.True(t, r.Passed)
		assert.Equal(t, "Output is valid json", r.Message)
	})
}

func TestEvaluateMetricAssertions(t *testing.T) {
	resp := mock.NewResponse("ok",
		mock.WithTokensUsed(150),
		mock.WithCost(0.05),
		mock.WithLatency(1.2),
	)

	t.Run("Max tokens pass", func(t *testing.T) {
		r := evalOne(t, resp, model.Assertion{Type: "max_tokens", Max: 200})
		assert.True(t, r.Passed)
		assert.Equal(t, "Tokens used: 150 (max: 200)", r.Message)
		assert.Equal(t, 150, r.Details["actual"])
	})

	t.Run("Max tokens fail", func(t *testing.T) {
		r := evalOne(t, resp, model.Assertion{Type: "max_tokens", Max: 100})
		assert.False(t, r.Passed)
		assert.Equal(t, "Token usage 150, expected <= 100", r.Message)
	})

	t.Run("Max cost", func(t *testing.T) {
		r := evalOne(t, resp, model.Assertion{Type: "max_cost", Max: 0.1})
		assert.True(t, r.Passed)

		r = evalOne(t, resp, model.Assertion{Type: "max_cost", Max: 0.01})
		assert.False(t, r.Passed)
	})

	t.Run("Max latency", func(t *testing.T) {
		r := evalOne(t, resp, model.Assertion{Type: "max_latency", Max: 2})
		assert.True(t, r.Passed)
		assert.Equal(t, "Latency: 1.20s (max: 2s)", r.Message)

		r = evalOne(t, resp, model.Assertion{Type: "max_latency", Max: 1})
		assert.False(t, r.Passed)
	})
}

func TestEvaluateSafetyAssertions(t *testing.T) {
	t.Run("No PII", func(t *testing.T) {
		r := evalOne(t, mock.NewResponse("All clear."), model.Assertion{Type: "no_pii"})
		assert.True(t, r.Passed)

		r = evalOne(t, mock.NewResponse("Reach me at bob@example.com"), model.Assertion{Type: "no_pii"})
		assert.False(t, r.Passed)
		assert.Contains(t, r.Message, "email")
	})

	t.Run("No hallucination", func(t *testing.T) {
		docs := []string{"Paris is the capital of France."}
		evaluator := model.NewAssertionEvaluator(
			mock.NewResponse("Paris is the capital of France."), docs, nil)

		results := evaluator.Evaluate([]model.Assertion{{Type: "no_hallucination", Threshold: 0.5}})
		require.Len(t, results, 1)
		assert.True(t, results[0].Passed)

		evaluator = model.NewAssertionEvaluator(
			mock.NewResponse("Elephants invented the telephone network."), docs, nil)
		results = evaluator.Evaluate([]model.Assertion{{Type: "no_hallucination", Threshold: 0.5}})
		assert.False(t, results[0].Passed)
	})
}

func TestEvaluateUnknownType(t *testing.T) {
	r := evalOne(t, mock.NewResponse("x"), model.Assertion{Type: "telepathy"})
	assert.False(t, r.Passed)
	assert.Equal(t, "Unknown assertion type: telepathy", r.Message)
}

// ============================================================================
// Template Context Tests
// ============================================================================

func TestEvaluateTemplatedValue(t *testing.T) {
	resp := mock.NewResponse("Hello Ada, welcome back.")
	evaluator := model.NewAssertionEvaluator(resp, nil, map[string]string{"user": "Ada"})

	results := evaluator.Evaluate([]model.Assertion{
		{Type: "contains", Value: "Hello {{user}}"},
	})
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed)
	assert.Equal(t, "Output contains 'Hello Ada'", results[0].Message)
}

// ============================================================================
// Boolean Combinator Tests
// ============================================================================

func TestEvaluateAnyOf(t *testing.T) {
	resp := mock.NewResponse("The sky is blue.")
	evaluator := model.NewAssertionEvaluator(resp, nil, nil)

	t.Run("One child passes", func(t *testing.T) {
		results := evaluator.Evaluate([]model.Assertion{{
			AnyOf: []model.Assertion{
				{Type: "contains", Value: "green"},
				{Type: "contains", Value: "blue"},
			},
		}})
		require.Len(t, results, 1)
		assert.True(t, results[0].Passed)
		assert.Equal(t, "anyOf", results[0].Type)
		assert.Equal(t, "anyOf passed: 1 of 2 assertions passed", results[0].Message)
		assert.Equal(t, 1, results[0].Details["passed_count"])
		assert.Equal(t, 1, results[0].Details["failed_count"])
	})

	t.Run("No child passes", func(t *testing.T) {
		results := evaluator.Evaluate([]model.Assertion{{
			AnyOf: []model.Assertion{
				{Type: "contains", Value: "green"},
				{Type: "contains", Value: "red"},
			},
		}})
		assert.False(t, results[0].Passed)
		assert.Equal(t, "anyOf failed: none of 2 assertions passed", results[0].Message)
	})
}

func TestEvaluateAllOf(t *testing.T) {
	resp := mock.NewResponse("The sky is blue.")
	evaluator := model.NewAssertionEvaluator(resp, nil, nil)

	t.Run("All pass", func(t *testing.T) {
		results := evaluator.Evaluate([]model.Assertion{{
			AllOf: []model.Assertion{
				{Type: "contains", Value: "sky"},
				{Type: "contains", Value: "blue"},
			},
		}})
		assert.True(t, results[0].Passed)
		assert.Equal(t, "allOf passed: all 2 assertions passed", results[0].Message)
	})

	t.Run("One fails", func(t *testing.T) {
		results := evaluator.Evaluate([]model.Assertion{{
			AllOf: []model.Assertion{
				{Type: "contains", Value: "sky"},
				{Type: "contains", Value: "green"},
			},
		}})
		assert.False(t, results[0].Passed)
		assert.Equal(t, "allOf failed: 1 of 2 assertions failed", results[0].Message)
	})
}

func TestEvaluateNot(t *testing.T) {
	resp := mock.NewResponse("The sky is blue.")
	evaluator := model.NewAssertionEvaluator(resp, nil, nil)

	t.Run("Child fails so not passes", func(t *testing.T) {
		results := evaluator.Evaluate([]model.Assertion{{
			Not: &model.Assertion{Type: "contains", Value: "green"},
		}})
		assert.True(t, results[0].Passed)
		assert.Equal(t, "not", results[0].Type)
	})

	t.Run("Child passes so not fails", func(t *testing.T) {
		results := evaluator.Evaluate([]model.Assertion{{
			Not: &model.Assertion{Type: "contains", Value: "blue"},
		}})
		assert.False(t, results[0].Passed)
		assert.Contains(t, results[0].Message, "passed unexpectedly")
	})
}

func TestEvaluateNestedCombinators(t *testing.T) {
	resp := mock.NewResponse("The sky is blue.")
	evaluator := model.NewAssertionEvaluator(resp, nil, nil)

	results := evaluator.Evaluate([]model.Assertion{{
		AllOf: []model.Assertion{
			{AnyOf: []model.Assertion{
				{Type: "contains", Value: "green"},
				{Type: "contains", Value: "blue"},
			}},
			{Not: &model.Assertion{Type: "contains", Value: "purple"}},
		},
	}})
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed)
}

func TestEvaluateDepthLimit(t *testing.T) {
	// Build a not-chain deeper than the evaluator allows.
	leaf := model.Assertion{Type: "contains", Value: "blue"}
	nested := leaf
	for i := 0; i < 15; i++ {
		child := nested
		nested = model.Assertion{Not: &child}
	}

	evaluator := model.NewAssertionEvaluator(mock.NewResponse("The sky is blue."), nil, nil)
	results := evaluator.Evaluate([]model.Assertion{nested})
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Contains(t, results[0].Message, "nesting depth")
}
