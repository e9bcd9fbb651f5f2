package model

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aymerick/raymond"
	"gopkg.in/yaml.v3"
)

// ============================================================================
// TEST PLAN CONFIGURATION
// ============================================================================

type TestPlan struct {
	Name      string            `yaml:"name"`
	Variables map[string]string `yaml:"variables,omitempty"`
	Settings  Settings          `yaml:"settings"`
	Mock      MockConfig        `yaml:"mock"`
	Tests     []Test            `yaml:"tests"`
	Criteria  Criteria          `yaml:"criteria"`
}

type Settings struct {
	Verbose bool   `yaml:"verbose"`
	DocsDir string `yaml:"docs_dir,omitempty"`
}

// ============================================================================
// MOCK CONFIGURATION
// ============================================================================

// MockConfig declares the canned responses for a plan. Rules are matched in
// declaration order; the first hit wins.
type MockConfig struct {
	Default   *MockResponse `yaml:"default,omitempty"`
	Responses []MockRule    `yaml:"responses,omitempty"`
}

// MockRule binds a response to either an exact prompt or an anchored
// pattern. Exactly one of Prompt and Pattern must be set.
type MockRule struct {
	Prompt   string       `yaml:"prompt,omitempty"`
	Pattern  string       `yaml:"pattern,omitempty"`
	Response MockResponse `yaml:"response"`
}

type MockResponse struct {
	Content     string         `yaml:"content"`
	Model       string         `yaml:"model,omitempty"`
	TokensUsed  int            `yaml:"tokens_used,omitempty"`
	Cost        float64        `yaml:"cost,omitempty"`
	Latency     float64        `yaml:"latency,omitempty"`
	Metadata    map[string]any `yaml:"metadata,omitempty"`
	CountTokens bool           `yaml:"count_tokens,omitempty"` // derive tokens_used from content
}

// ============================================================================
// TEST MODEL
// ============================================================================

type Test struct {
	Name        string              `yaml:"name"`
	Description string              `yaml:"description,omitempty"`
	Prompt      string              `yaml:"prompt"`
	Skip        bool                `yaml:"skip,omitempty"`
	SkipReason  string              `yaml:"skip_reason,omitempty"`
	Params      []map[string]string `yaml:"params,omitempty"`
	Variables   map[string]string   `yaml:"variables,omitempty"`
	Assertions  []Assertion         `yaml:"assertions"`
}

type Assertion struct {
	Type          string            `yaml:"type"`
	Value         string            `yaml:"value,omitempty"`
	Pattern       string            `yaml:"pattern,omitempty"`
	Path          string            `yaml:"path,omitempty"`
	Expected      any               `yaml:"expected,omitempty"`
	Threshold     float64           `yaml:"threshold,omitempty"`
	Max           float64           `yaml:"max,omitempty"`
	Format        string            `yaml:"format,omitempty"`
	Schema        map[string]any    `yaml:"schema,omitempty"`
	CaseSensitive bool              `yaml:"case_sensitive,omitempty"`
	Params        map[string]string `yaml:"params,omitempty"`

	// Boolean combinators (JSON Schema style)
	AnyOf []Assertion `yaml:"anyOf,omitempty"` // OR - pass if ANY child passes
	AllOf []Assertion `yaml:"allOf,omitempty"` // AND - pass if ALL children pass
	Not   *Assertion  `yaml:"not,omitempty"`   // NOT - pass if child FAILS
}

func (a Assertion) Clone() Assertion {
	var params map[string]string
	if a.Params != nil {
		params = make(map[string]string, len(a.Params))
		for k, v := range a.Params {
			params[k] = v
		}
	}

	var schema map[string]any
	if a.Schema != nil {
		schema = make(map[string]any, len(a.Schema))
		for k, v := range a.Schema {
			schema[k] = v
		}
	}

	var anyOf []Assertion
	if a.AnyOf != nil {
		anyOf = make([]Assertion, len(a.AnyOf))
		for i, child := range a.AnyOf {
			anyOf[i] = child.Clone()
		}
	}

	var allOf []Assertion
	if a.AllOf != nil {
		allOf = make([]Assertion, len(a.AllOf))
		for i, child := range a.AllOf {
			allOf[i] = child.Clone()
		}
	}

	var notAssertion *Assertion
	if a.Not != nil {
		cloned := a.Not.Clone()
		notAssertion = &cloned
	}

	return Assertion{
		Type:          a.Type,
		Value:         a.Value,
		Pattern:       a.Pattern,
		Path:          a.Path,
		Expected:      a.Expected,
		Threshold:     a.Threshold,
		Max:           a.Max,
		Format:        a.Format,
		Schema:        schema,
		CaseSensitive: a.CaseSensitive,
		Params:        params,
		AnyOf:         anyOf,
		AllOf:         allOf,
		Not:           notAssertion,
	}
}

// ============================================================================
// TEST RESULT
// ============================================================================

type Criteria struct {
	SuccessRate string `yaml:"success_rate" json:"successRate"`
}

// Threshold parses the success_rate value ("80%" or "0.8") into a fraction.
// The second return is false when no criteria is configured.
func (c Criteria) Threshold() (float64, bool, error) {
	raw := strings.TrimSpace(c.SuccessRate)
	if raw == "" {
		return 0, false, nil
	}

	percent := strings.HasSuffix(raw, "%")
	raw = strings.TrimSuffix(raw, "%")
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid success_rate %q: %w", c.SuccessRate, err)
	}
	if percent || value > 1 {
		value /= 100
	}
	if value < 0 || value > 1 {
		return 0, false, fmt.Errorf("success_rate %q out of range", c.SuccessRate)
	}
	return value, true, nil
}

// Message is one turn of an agent conversation transcript.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

type AssertionResult struct {
	Type    string         `json:"type"`
	Passed  bool           `json:"passed"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type TestResult struct {
	Name       string            `json:"name"`
	Status     Status            `json:"status"`
	Message    string            `json:"message,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
	Assertions []AssertionResult `json:"assertions,omitempty"`
	StartTime  time.Time         `json:"startTime"`
	EndTime    time.Time         `json:"endTime"`
	DurationMs int64             `json:"durationMs"`
}

type Summary struct {
	Total      int   `json:"total"`
	Passed     int   `json:"passed"`
	Failed     int   `json:"failed"`
	Skipped    int   `json:"skipped"`
	DurationMs int64 `json:"durationMs"`
	// SuccessRate is passed over (passed + failed); skips do not count.
	SuccessRate float64 `json:"successRate"`
}

// ============================================================================
// YAML PARSER
// ============================================================================

func ParsePlan(filename string) (*TestPlan, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParsePlanFromString(string(data))
}

func ParsePlanFromString(definition string) (*TestPlan, error) {
	var plan TestPlan
	if err := yaml.Unmarshal([]byte(definition), &plan); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Validate checks structural constraints the YAML schema cannot express.
func (p *TestPlan) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("plan name is required")
	}
	for i, rule := range p.Mock.Responses {
		if (rule.Prompt == "") == (rule.Pattern == "") {
			return fmt.Errorf("mock rule %d: exactly one of prompt or pattern is required", i)
		}
	}
	for i, test := range p.Tests {
		if test.Name == "" {
			return fmt.Errorf("test %d: name is required", i)
		}
		if test.Prompt == "" {
			return fmt.Errorf("test %q: prompt is required", test.Name)
		}
	}
	return nil
}

// ============================================================================
// UTILITY FUNCTIONS
// ============================================================================

// Summarize aggregates per-test results into a Summary.
func Summarize(results []TestResult, duration time.Duration) Summary {
	summary := Summary{Total: len(results), DurationMs: duration.Milliseconds()}
	for _, r := range results {
		switch r.Status {
		case StatusPassed:
			summary.Passed++
		case StatusFailed:
			summary.Failed++
		case StatusSkipped:
			summary.Skipped++
		}
	}
	if executed := summary.Passed + summary.Failed; executed > 0 {
		summary.SuccessRate = float64(summary.Passed) / float64(executed)
	}
	return summary
}

func GetAllEnv() map[string]string {
	envMap := make(map[string]string)
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}
	return envMap
}

// RenderTemplate safely parses and executes a Raymond template.
// If parsing or execution fails, it returns the input string unchanged.
func RenderTemplate(input string, context map[string]string) string {
	tmpl, err := raymond.Parse(input)
	if err != nil {
		log.Printf("Failed to parse template: %v", err)
		return input
	}

	output, err := tmpl.Exec(context)
	if err != nil {
		log.Printf("Failed to execute template: %v", err)
		return input
	}

	return output
}
