package model

import (
	"fmt"

	"github.com/aymerick/raymond"
	"github.com/bytedance/sonic"
	"github.com/mykhaliev/agent-testkit/assertions"
	"github.com/mykhaliev/agent-testkit/mock"
)

// ============================================================================
// ASSERTION EVALUATOR
// ============================================================================

// AssertionEvaluator runs declarative plan assertions against a resolved
// mock response. Assertion values and params are rendered through the
// template context before dispatch.
type AssertionEvaluator struct {
	response        mock.Response
	documents       []string
	templateContext map[string]string
}

func NewAssertionEvaluator(response mock.Response, documents []string, templateContext map[string]string) *AssertionEvaluator {
	return &AssertionEvaluator{response: response, documents: documents, templateContext: templateContext}
}

func (e *AssertionEvaluator) Evaluate(assertionList []Assertion) []AssertionResult {
	return e.evaluateWithDepth(assertionList, 0)
}

const maxCombinatorDepth = 10 // Prevent infinite recursion

// defaultThreshold applies to similarity and grounding checks when the plan
// leaves threshold unset.
const defaultThreshold = 0.8

func (e *AssertionEvaluator) evaluateWithDepth(assertionList []Assertion, depth int) []AssertionResult {
	results := make([]AssertionResult, 0, len(assertionList))

	for _, original := range assertionList {
		assertion := original.Clone()

		// Check for boolean combinators first
		if len(assertion.AnyOf) > 0 {
			results = append(results, e.evalAnyOf(assertion, depth))
			continue
		}
		if len(assertion.AllOf) > 0 {
			results = append(results, e.evalAllOf(assertion, depth))
			continue
		}
		if assertion.Not != nil {
			results = append(results, e.evalNot(assertion, depth))
			continue
		}

		// pre-transform values, if templated
		for k, v := range assertion.Params {
			if t, err := raymond.Parse(v); err == nil {
				if transformed, err := t.Exec(e.templateContext); err == nil {
					assertion.Params[k] = transformed
				}
			}
		}
		if assertion.Value != "" {
			if t, err := raymond.Parse(assertion.Value); err == nil {
				if transformed, err := t.Exec(e.templateContext); err == nil {
					assertion.Value = transformed
				}
			}
		}

		results = append(results, e.evalSingle(assertion))
	}

	return results
}

func (e *AssertionEvaluator) evalSingle(a Assertion) AssertionResult {
	output := e.response.Content

	switch a.Type {
	case "contains":
		return e.check(a, assertions.Contains(output, a.Value, a.CaseSensitive),
			fmt.Sprintf("Output contains '%s'", a.Value))
	case "not_contains":
		return e.check(a, assertions.NotContains(output, a.Value, a.CaseSensitive),
			fmt.Sprintf("Output does not contain '%s'", a.Value))
	case "equals":
		return e.check(a, assertions.AgentResponse(output, a.Value, assertions.ModeEquals, a.CaseSensitive),
			"Output equals expected value")
	case "regex":
		return e.check(a, assertions.AgentResponse(output, a.Pattern, assertions.ModeRegex, a.CaseSensitive),
			fmt.Sprintf("Output matches pattern '%s'", a.Pattern))
	case "similarity":
		return e.check(a, assertions.Similarity(output, a.Value, e.threshold(a)),
			fmt.Sprintf("Similarity >= %g", e.threshold(a)))
	case "json_valid":
		return e.check(a, assertions.JSONValid(output, a.Schema), "Output is valid JSON")
	case "json_schema":
		schemaJSON, err := sonic.Marshal(a.Schema)
		if err != nil {
			return AssertionResult{Type: a.Type, Passed: false, Message: fmt.Sprintf("Invalid schema: %s", err)}
		}
		return e.check(a, assertions.JSONSchema(output, schemaJSON), "Output conforms to JSON Schema")
	case "json_path":
		return e.check(a, assertions.JSONPath(output, a.Path, a.Expected),
			fmt.Sprintf("Value at %s matches expected", a.Path))
	case "format":
		return e.check(a, assertions.Format(output, a.Format),
			fmt.Sprintf("Output is valid %s", a.Format))
	case "max_tokens":
		return e.metric(a, assertions.TokenCount(e.response.TokensUsed, int(a.Max)),
			fmt.Sprintf("Tokens used: %d (max: %d)", e.response.TokensUsed, int(a.Max)),
			e.response.TokensUsed)
	case "max_cost":
		return e.metric(a, assertions.Cost(e.response.Cost, a.Max, ""),
			fmt.Sprintf("Cost: %.4f (max: %.4f)", e.response.Cost, a.Max),
			e.response.Cost)
	case "max_latency":
		return e.metric(a, assertions.Latency(e.response.Latency, a.Max),
			fmt.Sprintf("Latency: %.2fs (max: %gs)", e.response.Latency, a.Max),
			e.response.Latency)
	case "no_pii":
		return e.check(a, assertions.NoPII(output), "No PII detected in output")
	case "no_hallucination":
		return e.check(a, assertions.NoHallucination(output, e.documents, e.threshold(a)),
			fmt.Sprintf("Grounding ratio >= %g", e.threshold(a)))
	default:
		return AssertionResult{
			Type:    a.Type,
			Passed:  false,
			Message: fmt.Sprintf("Unknown assertion type: %s", a.Type),
		}
	}
}

func (e *AssertionEvaluator) threshold(a Assertion) float64 {
	if a.Threshold > 0 {
		return a.Threshold
	}
	return defaultThreshold
}

func (e *AssertionEvaluator) check(a Assertion, err error, passMessage string) AssertionResult {
	if err != nil {
		return AssertionResult{Type: a.Type, Passed: false, Message: err.Error()}
	}
	return AssertionResult{Type: a.Type, Passed: true, Message: passMessage}
}

func (e *AssertionEvaluator) metric(a Assertion, err error, message string, actual any) AssertionResult {
	result := AssertionResult{
		Type:    a.Type,
		Passed:  err == nil,
		Message: message,
		Details: map[string]any{"actual": actual, "max": a.Max},
	}
	if err != nil {
		result.Message = err.Error()
	}
	return result
}

// ============================================================================
// BOOLEAN COMBINATORS
// ============================================================================

func depthExceeded(combinator string) AssertionResult {
	return AssertionResult{
		Type:    combinator,
		Passed:  false,
		Message: fmt.Sprintf("Maximum combinator nesting depth (%d) exceeded", maxCombinatorDepth),
	}
}

func isDepthExceeded(r AssertionResult) bool {
	return !r.Passed && r.Message == depthExceeded(r.Type).Message
}

// evalAnyOf passes when ANY child assertion passes.
func (e *AssertionEvaluator) evalAnyOf(a Assertion, depth int) AssertionResult {
	if depth >= maxCombinatorDepth {
		return depthExceeded("anyOf")
	}

	childResults := e.evaluateWithDepth(a.AnyOf, depth+1)
	passedCount := 0
	for _, child := range childResults {
		if isDepthExceeded(child) {
			return AssertionResult{
				Type:    "anyOf",
				Passed:  false,
				Message: child.Message,
				Details: map[string]any{"children": childResults},
			}
		}
		if child.Passed {
			passedCount++
		}
	}

	passed := passedCount > 0
	message := fmt.Sprintf("anyOf failed: none of %d assertions passed", len(childResults))
	if passed {
		message = fmt.Sprintf("anyOf passed: %d of %d assertions passed", passedCount, len(childResults))
	}

	return AssertionResult{
		Type:    "anyOf",
		Passed:  passed,
		Message: message,
		Details: map[string]any{
			"passed_count": passedCount,
			"failed_count": len(childResults) - passedCount,
			"children":     childResults,
		},
	}
}

// evalAllOf passes when ALL child assertions pass.
func (e *AssertionEvaluator) evalAllOf(a Assertion, depth int) AssertionResult {
	if depth >= maxCombinatorDepth {
		return depthExceeded("allOf")
	}

	childResults := e.evaluateWithDepth(a.AllOf, depth+1)
	failedCount := 0
	for _, child := range childResults {
		if isDepthExceeded(child) {
			return AssertionResult{
				Type:    "allOf",
				Passed:  false,
				Message: child.Message,
				Details: map[string]any{"children": childResults},
			}
		}
		if !child.Passed {
			failedCount++
		}
	}

	passed := failedCount == 0
	message := fmt.Sprintf("allOf failed: %d of %d assertions failed", failedCount, len(childResults))
	if passed {
		message = fmt.Sprintf("allOf passed: all %d assertions passed", len(childResults))
	}

	return AssertionResult{
		Type:    "allOf",
		Passed:  passed,
		Message: message,
		Details: map[string]any{
			"passed_count": len(childResults) - failedCount,
			"failed_count": failedCount,
			"children":     childResults,
		},
	}
}

// evalNot passes when the child assertion FAILS.
func (e *AssertionEvaluator) evalNot(a Assertion, depth int) AssertionResult {
	if depth >= maxCombinatorDepth {
		return depthExceeded("not")
	}

	childResult := e.evaluateWithDepth([]Assertion{*a.Not}, depth+1)[0]
	if isDepthExceeded(childResult) {
		return AssertionResult{
			Type:    "not",
			Passed:  false,
			Message: childResult.Message,
			Details: map[string]any{"child": childResult},
		}
	}

	passed := !childResult.Passed
	message := fmt.Sprintf("not failed: child assertion passed unexpectedly (%s)", childResult.Message)
	if passed {
		message = fmt.Sprintf("not passed: child assertion failed as expected (%s)", childResult.Message)
	}

	return AssertionResult{
		Type:    "not",
		Passed:  passed,
		Message: message,
		Details: map[string]any{"child": childResult},
	}
}
