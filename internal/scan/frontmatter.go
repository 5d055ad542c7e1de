package scan

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a markdown file split into front matter and body.
type Document struct {
	FrontMatter    map[string]any
	RawFrontMatter string
	Body           string
	HasFrontMatter bool
}

// ParseMarkdown splits a "---" delimited YAML block off the top of content
// and decodes it. A file without front matter is valid.
func ParseMarkdown(content string) (Document, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	meta, body, ok := splitFrontMatter(content)
	doc := Document{Body: strings.TrimSpace(body), HasFrontMatter: ok, RawFrontMatter: meta}
	if !ok {
		return doc, nil
	}

	var fm map[string]any
	if err := yaml.Unmarshal([]byte(meta), &fm); err != nil {
		return doc, fmt.Errorf("parse front matter: %w", err)
	}
	if fm == nil {
		fm = map[string]any{}
	}
	doc.FrontMatter = fm
	return doc, nil
}

// String returns the field as a trimmed string, empty when absent or not a
// string.
func (d Document) String(field string) string {
	s, _ := d.FrontMatter[field].(string)
	return strings.TrimSpace(s)
}

// Title is the first markdown heading of the body.
func (d Document) Title() string {
	return extractMarkdownTitle(d.Body)
}

func splitFrontMatter(content string) (string, string, bool) {
	lines := strings.Split(content, "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[0]) != "---" {
		return "", content, false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			meta := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return meta, body, true
		}
	}
	return "", content, false
}

func extractMarkdownTitle(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "<!--") {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		}
		break
	}
	return ""
}
