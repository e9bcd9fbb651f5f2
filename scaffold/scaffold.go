// Package scaffold creates a starter test suite on disk.
package scaffold

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mykhaliev/agent-testkit/logger"
)

const planTemplate = `name: %s
settings:
  verbose: false
  docs_dir: docs

variables:
  topic: testing

mock:
  default:
    content: Mock response
  responses:
    - prompt: Hello
      response:
        content: Hi there! How can I help you today?
    - pattern: "(?i).*weather.*"
      response:
        content: It is sunny and 22 degrees.
        tokens_used: 42

tests:
  - name: greeting
    prompt: Hello
    assertions:
      - type: contains
        value: help
      - type: max_tokens
        max: 500

  - name: weather_lookup
    prompt: What is the weather like?
    assertions:
      - type: regex
        pattern: "\\d+ degrees"
      - type: no_hallucination
        threshold: 0.5

criteria:
  success_rate: 80%%
`

const notesTemplate = `---
title: Grounding notes
---
The weather report covers the current conditions. It is sunny and 22 degrees
today. Forecasts beyond the current day are not included.
`

const readmeTemplate = `# %s

A starter test suite. Run it with:

    agent-testkit -f plan.yaml

Edit plan.yaml to declare mock responses and test assertions, and drop
grounding documents (.md or .txt) into docs/ for hallucination checks.
`

// New creates the <name>/ suite directory with a runnable plan, a grounding
// document and a README. Refuses to overwrite an existing directory.
func New(name string) error {
	if name == "" {
		return fmt.Errorf("suite name is required")
	}
	if _, err := os.Stat(name); err == nil {
		return fmt.Errorf("directory %q already exists", name)
	}

	if err := os.MkdirAll(filepath.Join(name, "docs"), 0755); err != nil {
		return fmt.Errorf("failed to create suite directory: %w", err)
	}

	files := map[string]string{
		filepath.Join(name, "plan.yaml"):        fmt.Sprintf(planTemplate, name),
		filepath.Join(name, "docs", "notes.md"): notesTemplate,
		filepath.Join(name, "README.md"):        fmt.Sprintf(readmeTemplate, name),
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	logger.Logger.Info("Created test suite", "name", name)
	return nil
}
