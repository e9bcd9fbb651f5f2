// Package assertions is a library of pure checks over agent output:
// content, structure, latency/cost/token budgets, similarity, grounding and
// PII. Every assertion returns nil on success and a *Failure carrying a
// diagnostic message on violation; unrecognized modes or formats are caller
// bugs and surface as ordinary errors instead. Nothing here logs, retries,
// or keeps state.
package assertions

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// Failure is the error raised by any failing assertion. A test executor
// catches it to mark a test "failed" rather than aborting the run.
type Failure struct {
	Message string
}

func (f *Failure) Error() string {
	return f.Message
}

// IsFailure reports whether err is (or wraps) an assertion Failure, as
// opposed to a programming error such as an unknown mode.
func IsFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}

func failf(format string, args ...any) error {
	return &Failure{Message: fmt.Sprintf(format, args...)}
}

var (
	// ErrUnknownMode is returned for an unrecognized mode value.
	ErrUnknownMode = errors.New("unknown mode")
	// ErrUnknownFormat is returned for an unrecognized format type.
	ErrUnknownFormat = errors.New("unknown format")
)

// Comparison modes.
const (
	ModeContains   = "contains"
	ModeEquals     = "equals"
	ModeRegex      = "regex"
	ModeSimilarity = "similarity"
)

// List length modes.
const (
	ModeExact = "exact"
	ModeMin   = "min"
	ModeMax   = "max"
)

// DefaultSimilarityScore is the threshold AgentResponse uses in
// similarity mode.
const DefaultSimilarityScore = 0.8

// Contains asserts that output contains expected. Comparison is
// case-insensitive unless caseSensitive is true.
func Contains(output, expected string, caseSensitive bool) error {
	if !caseSensitive {
		output = strings.ToLower(output)
		expected = strings.ToLower(expected)
	}
	if !strings.Contains(output, expected) {
		return failf("Expected '%s' not found in output.\nOutput: %s", expected, output)
	}
	return nil
}

// NotContains asserts that output does not contain unexpected.
func NotContains(output, unexpected string, caseSensitive bool) error {
	if !caseSensitive {
		output = strings.ToLower(output)
		unexpected = strings.ToLower(unexpected)
	}
	if strings.Contains(output, unexpected) {
		return failf("Unexpected '%s' found in output.\nOutput: %s", unexpected, output)
	}
	return nil
}

// Equals asserts structural equality of two values.
func Equals(actual, expected any) error {
	if !reflect.DeepEqual(actual, expected) {
		return failf("Expected: %v\nActual: %v", expected, actual)
	}
	return nil
}

// Latency asserts the operation completed within maxSeconds.
func Latency(duration, maxSeconds float64) error {
	if duration > maxSeconds {
		return failf("Operation took %.2fs, expected <= %gs", duration, maxSeconds)
	}
	return nil
}

// Cost asserts the operation cost is within budget.
func Cost(cost, maxCost float64, currency string) error {
	if currency == "" {
		currency = "USD"
	}
	if cost > maxCost {
		return failf("Operation cost %s %.4f, expected <= %s %.4f", currency, cost, currency, maxCost)
	}
	return nil
}

// TokenCount asserts token usage is within the limit.
func TokenCount(tokens, maxTokens int) error {
	if tokens > maxTokens {
		return failf("Token usage %d, expected <= %d", tokens, maxTokens)
	}
	return nil
}

// Similarity asserts a word-overlap score between output and expected of at
// least minScore. The score is |outputWords ∩ expectedWords| over
// |expectedWords| — a recall-style metric, so argument order matters. An
// empty expected word set passes unconditionally.
func Similarity(output, expected string, minScore float64) error {
	expectedWords := wordSet(expected)
	if len(expectedWords) == 0 {
		return nil
	}

	outputWords := wordSet(output)
	overlap := 0
	for w := range expectedWords {
		if outputWords[w] {
			overlap++
		}
	}

	score := float64(overlap) / float64(len(expectedWords))
	if score < minScore {
		return failf("Similarity score %.2f < %g\nOutput: %s\nExpected: %s", score, minScore, output, expected)
	}
	return nil
}

// ListLength asserts the length of items against expectedLength per mode
// ("exact", "min" or "max").
func ListLength[T any](items []T, expectedLength int, mode string) error {
	actual := len(items)

	switch mode {
	case ModeExact:
		if actual != expectedLength {
			return failf("List length %d, expected %d", actual, expectedLength)
		}
	case ModeMin:
		if actual < expectedLength {
			return failf("List length %d, expected >= %d", actual, expectedLength)
		}
	case ModeMax:
		if actual > expectedLength {
			return failf("List length %d, expected <= %d", actual, expectedLength)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return nil
}

// AllItemsMatch asserts every item contains a match of pattern.
func AllItemsMatch(items []string, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	for i, item := range items {
		if !re.MatchString(item) {
			return failf("Item %d does not match pattern '%s': %s", i, pattern, item)
		}
	}
	return nil
}

// AnyItemMatches asserts at least one item contains a match of pattern.
func AnyItemMatches(items []string, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	for _, item := range items {
		if re.MatchString(item) {
			return nil
		}
	}
	return failf("No item matches pattern '%s' in list: %v", pattern, items)
}

// AgentResponse asserts output against expected under the given mode:
// "contains", "equals", "regex" (unanchored search, case-insensitive unless
// caseSensitive) or "similarity" (threshold 0.8).
func AgentResponse(output, expected, mode string, caseSensitive bool) error {
	if !caseSensitive && mode != ModeRegex {
		output = strings.ToLower(output)
		expected = strings.ToLower(expected)
	}

	switch mode {
	case ModeContains:
		if !strings.Contains(output, expected) {
			return failf("Expected '%s' not found in output.\nOutput: %s", expected, output)
		}
	case ModeEquals:
		if output != expected {
			return failf("Output does not match expected.\nExpected: %s\nActual: %s", expected, output)
		}
	case ModeRegex:
		pattern := expected
		if !caseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %q: %w", expected, err)
		}
		if !re.MatchString(output) {
			return failf("Pattern '%s' not found in output.\nOutput: %s", expected, output)
		}
	case ModeSimilarity:
		return Similarity(output, expected, DefaultSimilarityScore)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return nil
}

// wordSet tokenizes by whitespace into a lowercased word set.
func wordSet(s string) map[string]bool {
	words := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		words[w] = true
	}
	return words
}
