package assertions

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"
)

// Output formats recognized by Format.
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatXML      = "xml"
)

var markdownMarkers = []string{"#", "**", "*", "-", "```"}

// Format asserts that output is well formed for the given format type.
// Markdown and HTML use heuristics (markers, angle brackets); the rest
// parse.
func Format(output, formatType string) error {
	switch formatType {
	case FormatJSON:
		var v any
		if err := sonic.Unmarshal([]byte(output), &v); err != nil {
			return failf("Invalid JSON: %s", err)
		}
	case FormatYAML:
		var v any
		if err := yaml.Unmarshal([]byte(output), &v); err != nil {
			return failf("Invalid YAML: %s", err)
		}
	case FormatMarkdown:
		found := false
		for _, marker := range markdownMarkers {
			if strings.Contains(output, marker) {
				found = true
				break
			}
		}
		if !found {
			return failf("Output does not appear to be Markdown")
		}
	case FormatHTML:
		if !strings.Contains(output, "<") || !strings.Contains(output, ">") {
			return failf("Output does not appear to be HTML")
		}
	case FormatXML:
		decoder := xml.NewDecoder(strings.NewReader(output))
		for {
			_, err := decoder.Token()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return failf("Invalid XML: %s", err)
			}
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, formatType)
	}
	return nil
}
