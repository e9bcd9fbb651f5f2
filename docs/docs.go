// Package docs loads grounding documents used by hallucination checks.
package docs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mykhaliev/agent-testkit/logger"
	"gopkg.in/yaml.v3"
)

var extensions = map[string]bool{
	".md":  true,
	".txt": true,
}

// Document is a single grounding source.
type Document struct {
	Name string            // base filename without extension
	Path string            // absolute path
	Meta map[string]string // YAML frontmatter, when present
	Body string            // content with frontmatter stripped
}

// Load reads a single document. Markdown files may carry YAML frontmatter
// delimited by ---; it is parsed into Meta and stripped from Body.
func Load(path string) (*Document, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve document path: %w", err)
	}

	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	meta, body, err := splitFrontmatter(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	name := strings.TrimSuffix(filepath.Base(absPath), filepath.Ext(absPath))
	return &Document{Name: name, Path: absPath, Meta: meta, Body: body}, nil
}

// LoadDir loads every .md and .txt file in dir, sorted by filename. A
// missing directory is an error; an empty one yields an empty slice.
func LoadDir(dir string) ([]Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("documents directory not found: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("documents path must be a directory: %s", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	var documents []Document
	for _, entry := range entries {
		if entry.IsDir() || !extensions[filepath.Ext(entry.Name())] {
			continue
		}
		doc, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		documents = append(documents, *doc)
	}
	sort.Slice(documents, func(i, j int) bool { return documents[i].Name < documents[j].Name })

	logger.Logger.Debug("Loaded documents", "dir", dir, "count", len(documents))
	return documents, nil
}

// Texts returns just the document bodies, in order.
func Texts(documents []Document) []string {
	texts := make([]string, len(documents))
	for i, doc := range documents {
		texts[i] = doc.Body
	}
	return texts
}

// splitFrontmatter separates optional YAML frontmatter from the body.
// Content that does not start with --- is returned whole.
func splitFrontmatter(content string) (map[string]string, string, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	if !strings.HasPrefix(content, "---") {
		return nil, content, nil
	}

	endIndex := strings.Index(content[3:], "\n---")
	if endIndex == -1 {
		return nil, "", fmt.Errorf("frontmatter not properly closed (missing ---)")
	}

	frontmatterYAML := content[4 : endIndex+3]

	bodyStart := endIndex + 3 + 4 // skip past "\n---"
	body := ""
	if bodyStart < len(content) {
		body = strings.TrimPrefix(content[bodyStart:], "\n")
	}

	var meta map[string]string
	if err := yaml.Unmarshal([]byte(frontmatterYAML), &meta); err != nil {
		return nil, "", fmt.Errorf("invalid YAML frontmatter: %w", err)
	}

	return meta, body, nil
}
