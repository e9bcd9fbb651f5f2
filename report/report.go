// Package report renders test results as console output, JSON, HTML (using
// embedded Go templates) and JUnit XML.
package report

import (
	"bytes"
	"embed"
	"encoding/xml"
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/life4/genesis/slices"
	"github.com/mykhaliev/agent-testkit/model"
	"github.com/mykhaliev/agent-testkit/version"
)

//go:embed templates/report.html templates/report.css
var templateFS embed.FS

const (
	TypeConsole = "console"
	TypeJSON    = "json"
	TypeHTML    = "html"
	TypeJUnit   = "junit"
)

var knownTypes = []string{TypeConsole, TypeJSON, TypeHTML, TypeJUnit}

// ValidateReportType rejects unknown report formats before a run starts.
func ValidateReportType(reportType string) error {
	if slices.Contains(knownTypes, reportType) {
		return nil
	}
	return fmt.Errorf("unknown report type %q (expected one of: %s)", reportType, strings.Join(knownTypes, ", "))
}

// Document is the JSON report payload.
type Document struct {
	Plan      string             `json:"plan"`
	Version   string             `json:"version"`
	Timestamp time.Time          `json:"timestamp"`
	Summary   model.Summary      `json:"summary"`
	Results   []model.TestResult `json:"results"`
}

type Generator struct {
	Plan string // plan name shown in report headers
	tmpl *template.Template
}

// NewGenerator parses the embedded HTML template once for the run.
func NewGenerator(plan string) (*Generator, error) {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"truncate": func(s string, max int) string {
			if len(s) <= max {
				return s
			}
			return s[:max-3] + "..."
		},
		"percent": func(rate float64) string {
			return fmt.Sprintf("%.1f%%", rate*100)
		},
		"seconds": func(ms int64) string {
			return fmt.Sprintf("%.2fs", float64(ms)/1000.0)
		},
	}

	tmpl, err := template.New("report.html").Funcs(funcMap).ParseFS(templateFS, "templates/report.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &Generator{Plan: plan, tmpl: tmpl}, nil
}

// Generate renders one report. Console ignores outputPath and writes to
// stdout; the other formats write to outputPath when set, stdout otherwise.
func (g *Generator) Generate(results []model.TestResult, summary model.Summary, reportType, outputPath string) error {
	if err := ValidateReportType(reportType); err != nil {
		return err
	}

	if reportType == TypeConsole {
		g.GenerateConsole(os.Stdout, results, summary)
		return nil
	}

	var content string
	var err error
	switch reportType {
	case TypeJSON:
		content, err = g.GenerateJSON(results, summary)
	case TypeHTML:
		content, err = g.GenerateHTML(results, summary)
	case TypeJUnit:
		content, err = g.GenerateJUnit(results, summary)
	}
	if err != nil {
		return err
	}

	if outputPath == "" {
		fmt.Println(content)
		return nil
	}
	if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}

// ============================================================================
// CONSOLE REPORT
// ============================================================================

const consoleRule = "═══════════════════════════════════════════════════════════════"

func (g *Generator) GenerateConsole(w io.Writer, results []model.TestResult, summary model.Summary) {
	fmt.Fprintln(w, "\n"+consoleRule)
	fmt.Fprintf(w, "  Test Plan: %s\n", g.Plan)
	fmt.Fprintln(w, consoleRule)
	fmt.Fprintln(w)

	for _, result := range results {
		switch result.Status {
		case model.StatusPassed:
			fmt.Fprintf(w, "  \033[32m✓\033[0m %s (%.2fs)\n", result.Name, float64(result.DurationMs)/1000.0)
		case model.StatusSkipped:
			reason := result.Message
			if reason == "" {
				reason = "skipped"
			}
			fmt.Fprintf(w, "  \033[33m○\033[0m %s (%s)\n", result.Name, reason)
		default:
			fmt.Fprintf(w, "  \033[31m✗\033[0m %s (%.2fs)\n", result.Name, float64(result.DurationMs)/1000.0)
		}

		for _, assertion := range result.Assertions {
			symbol := "✓"
			color := "\033[32m" // green
			if !assertion.Passed {
				symbol = "✗"
				color = "\033[31m" // red
			}
			fmt.Fprintf(w, "    %s%s\033[0m %s: %s\n", color, symbol, assertion.Type, assertion.Message)
		}

		if result.Status == model.StatusFailed && result.Message != "" && len(result.Assertions) == 0 {
			fmt.Fprintf(w, "    \033[31m%s\033[0m\n", indent(result.Message, "    "))
		}
	}

	fmt.Fprintln(w, "\n"+consoleRule)
	fmt.Fprintf(w, "Total: %d | \033[32mPassed: %d\033[0m | \033[31mFailed: %d\033[0m | \033[33mSkipped: %d\033[0m | Success rate: %.1f%%\n",
		summary.Total, summary.Passed, summary.Failed, summary.Skipped, summary.SuccessRate*100)
	fmt.Fprintln(w, consoleRule)
	fmt.Fprintln(w)
}

// indent keeps multi-line failure messages aligned under their test row.
func indent(s, prefix string) string {
	return strings.ReplaceAll(s, "\n", "\n"+prefix)
}

// ============================================================================
// JSON REPORT
// ============================================================================

func (g *Generator) GenerateJSON(results []model.TestResult, summary model.Summary) (string, error) {
	doc := Document{
		Plan:      g.Plan,
		Version:   version.Version,
		Timestamp: time.Now().UTC(),
		Summary:   summary,
		Results:   results,
	}

	data, err := sonic.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	return string(data), nil
}

// LoadDocument reads a previously generated JSON report back in.
func LoadDocument(jsonPath string) (*Document, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file: %w", err)
	}

	var doc Document
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON report: %w", err)
	}
	return &doc, nil
}

// ============================================================================
// HTML REPORT
// ============================================================================

// reportData is the view model passed to the HTML template.
type reportData struct {
	CSS       template.CSS
	Plan      string
	Version   string
	Generated string
	Summary   model.Summary
	Results   []model.TestResult
}

func (g *Generator) GenerateHTML(results []model.TestResult, summary model.Summary) (string, error) {
	cssBytes, err := templateFS.ReadFile("templates/report.css")
	if err != nil {
		return "", fmt.Errorf("failed to read stylesheet: %w", err)
	}

	data := reportData{
		CSS:       template.CSS(cssBytes),
		Plan:      g.Plan,
		Version:   version.Version,
		Generated: time.Now().UTC().Format("2006-01-02 15:04:05 UTC"),
		Summary:   summary,
		Results:   results,
	}

	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// ============================================================================
// JUNIT REPORT
// ============================================================================

type junitTestSuites struct {
	XMLName  xml.Name         `xml:"testsuites"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Skipped  int              `xml:"skipped,attr"`
	Time     string           `xml:"time,attr"`
	Suites   []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Skipped  int             `xml:"skipped,attr"`
	Time     string          `xml:"time,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	Skipped   *junitSkipped `xml:"skipped,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Content string `xml:",chardata"`
}

type junitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

func (g *Generator) GenerateJUnit(results []model.TestResult, summary model.Summary) (string, error) {
	cases := make([]junitTestCase, 0, len(results))
	for _, result := range results {
		tc := junitTestCase{
			Name:      result.Name,
			Classname: g.Plan,
			Time:      fmt.Sprintf("%.3f", float64(result.DurationMs)/1000.0),
		}
		switch result.Status {
		case model.StatusFailed:
			tc.Failure = &junitFailure{
				Message: firstLine(result.Message),
				Content: result.Message,
			}
		case model.StatusSkipped:
			tc.Skipped = &junitSkipped{Message: result.Message}
		}
		cases = append(cases, tc)
	}

	doc := junitTestSuites{
		Tests:    summary.Total,
		Failures: summary.Failed,
		Skipped:  summary.Skipped,
		Time:     fmt.Sprintf("%.3f", float64(summary.DurationMs)/1000.0),
		Suites: []junitTestSuite{{
			Name:     g.Plan,
			Tests:    summary.Total,
			Failures: summary.Failed,
			Skipped:  summary.Skipped,
			Time:     fmt.Sprintf("%.3f", float64(summary.DurationMs)/1000.0),
			Cases:    cases,
		}},
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JUnit report: %w", err)
	}
	return xml.Header + string(out), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
