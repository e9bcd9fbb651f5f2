// Package mock provides a deterministic stand-in for LLM-backed agents:
// canned responses are registered against exact prompts, anchored regular
// expressions, or predicate functions, and resolved first-match-wins in
// registration order. No network I/O ever happens here.
package mock

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/bytedance/sonic"
)

const (
	// DefaultContent is the fallback response body before SetDefault is called.
	DefaultContent = "Mock response"

	DefaultModel      = "gpt-4"
	DefaultTokensUsed = 100
	DefaultCost       = 0.01
	DefaultLatency    = 0.5
)

// ErrInvalidPattern is returned by AddPattern when the expression does not
// compile. The error surfaces at registration time, not at resolution time.
var ErrInvalidPattern = errors.New("invalid mock pattern")

// Response is a simulated agent reply together with its synthetic metrics.
// Treat a Response as immutable once registered; WithMeta returns a copy.
type Response struct {
	Content    string         `json:"content"`
	Model      string         `json:"model"`
	TokensUsed int            `json:"tokensUsed"`
	Cost       float64        `json:"cost"`
	Latency    float64        `json:"latency"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ResponseOption mutates a Response during construction.
type ResponseOption func(*Response)

func WithModel(model string) ResponseOption {
	return func(r *Response) { r.Model = model }
}

func WithTokensUsed(tokens int) ResponseOption {
	return func(r *Response) { r.TokensUsed = tokens }
}

func WithCost(cost float64) ResponseOption {
	return func(r *Response) { r.Cost = cost }
}

func WithLatency(seconds float64) ResponseOption {
	return func(r *Response) { r.Latency = seconds }
}

func WithMetadata(metadata map[string]any) ResponseOption {
	return func(r *Response) {
		r.Metadata = make(map[string]any, len(metadata))
		for k, v := range metadata {
			r.Metadata[k] = v
		}
	}
}

// NewResponse builds a Response with default metrics (model gpt-4, 100
// tokens, $0.01, 0.5s latency, empty metadata) and applies the options.
func NewResponse(content string, opts ...ResponseOption) Response {
	r := Response{
		Content:    content,
		Model:      DefaultModel,
		TokensUsed: DefaultTokensUsed,
		Cost:       DefaultCost,
		Latency:    DefaultLatency,
		Metadata:   map[string]any{},
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Text wraps a plain string into a Response with default metrics.
func Text(content string) Response {
	return NewResponse(content)
}

// WithMeta returns a copy of the response with one metadata entry added.
// The receiver is left untouched.
func (r Response) WithMeta(key string, value any) Response {
	meta := make(map[string]any, len(r.Metadata)+1)
	for k, v := range r.Metadata {
		meta[k] = v
	}
	meta[key] = value
	r.Metadata = meta
	return r
}

func (r Response) String() string {
	s, err := sonic.MarshalString(r)
	if err != nil {
		return fmt.Sprintf("mock.Response{content: %q}", r.Content)
	}
	return s
}

// Call is one recorded Resolve invocation. Records are appended in call
// order and never mutated afterwards.
type Call struct {
	Prompt string         `json:"prompt"`
	KwArgs map[string]any `json:"kwargs,omitempty"`
}

// Predicate decides whether a registered response applies to a prompt and
// its keyword context. A panicking predicate propagates through Resolve
// untouched: a broken matcher is a test-authoring bug, not a "no match".
type Predicate func(prompt string, kwargs map[string]any) bool

type matcherKind int

const (
	matchExact matcherKind = iota
	matchPattern
	matchPredicate
)

// matcher is a tagged variant over the three match kinds so dispatch in
// resolve stays exhaustive.
type matcher struct {
	kind     matcherKind
	exact    string
	pattern  *regexp.Regexp
	pred     Predicate
	response Response
}

// LLM resolves prompts to canned responses without real API calls.
//
// Matchers are evaluated in registration order and the first satisfied one
// wins; precedence is therefore controlled purely by registration order.
// There is no removal operation — tests that need isolation construct a
// fresh LLM per test. An LLM must not be shared across goroutines.
//
// Usage:
//
//	llm := mock.NewLLM()
//	llm.AddResponse("What is 2+2?", mock.Text("The answer is 4"))
//	llm.AddPattern(`.*math.*`, mock.Text("I can help with math"))
type LLM struct {
	matchers        []matcher
	defaultResponse Response
	history         []Call
}

func NewLLM() *LLM {
	return &LLM{defaultResponse: NewResponse(DefaultContent)}
}

// AddResponse registers an exact-match response. The prompt must match
// byte-for-byte at resolution time; no normalization is applied.
func (m *LLM) AddResponse(prompt string, response Response) {
	m.matchers = append(m.matchers, matcher{kind: matchExact, exact: prompt, response: response})
}

// AddPattern registers a pattern response. The expression is compiled at
// registration and must match starting at the first byte of the prompt
// (Python re.match semantics). Returns ErrInvalidPattern when the
// expression does not compile.
func (m *LLM) AddPattern(pattern string, response Response) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
	}
	m.matchers = append(m.matchers, matcher{kind: matchPattern, pattern: re, response: response})
	return nil
}

// AddPredicate registers a function-based response.
func (m *LLM) AddPredicate(pred Predicate, response Response) {
	m.matchers = append(m.matchers, matcher{kind: matchPredicate, pred: pred, response: response})
}

// SetDefault replaces the response returned when no matcher is satisfied.
func (m *LLM) SetDefault(response Response) {
	m.defaultResponse = response
}

// Resolve records the call and returns the first-registered satisfied
// matcher's response, falling back to the default. It never performs I/O
// and never fails except via a panicking predicate.
func (m *LLM) Resolve(prompt string, kwargs map[string]any) Response {
	m.history = append(m.history, Call{Prompt: prompt, KwArgs: kwargs})

	for _, mt := range m.matchers {
		switch mt.kind {
		case matchExact:
			if prompt == mt.exact {
				return mt.response
			}
		case matchPattern:
			// Anchored at the start: a leftmost match at offset 0 exists
			// iff any match at offset 0 exists.
			if loc := mt.pattern.FindStringIndex(prompt); loc != nil && loc[0] == 0 {
				return mt.response
			}
		case matchPredicate:
			if mt.pred(prompt, kwargs) {
				return mt.response
			}
		}
	}

	return m.defaultResponse
}

// CallCount returns the number of Resolve calls since the last Reset.
func (m *LLM) CallCount() int {
	return len(m.history)
}

// LastCall returns the most recent recorded call, or false when the
// history is empty.
func (m *LLM) LastCall() (Call, bool) {
	if len(m.history) == 0 {
		return Call{}, false
	}
	return m.history[len(m.history)-1], true
}

// History returns the recorded calls in order. The returned slice is the
// resolver's own backing store; callers must not mutate it.
func (m *LLM) History() []Call {
	return m.history
}

// Reset clears the call history. Registered matchers and the default
// response are unaffected.
func (m *LLM) Reset() {
	m.history = nil
}
