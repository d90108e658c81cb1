// Package parser reads back what a record's text says about itself: title,
// current and previous statuses, and link lines. It never rewrites text.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/starford/adrctl/internal/adr"
)

var (
	previousRe = regexp.MustCompile(`(?m)^Previous status: (.*?)[ \t]*$`)
	linkLineRe = regexp.MustCompile(`(?m)^(.+?) \[([^\]]+)\]\(([^)]*)\) on (.+?)[ \t]*$`)

	markdown = goldmark.New()
)

// Link is one link line of a Status section.
type Link struct {
	Type   string
	Target string
	Date   string
}

// Result holds the output of parsing a record.
type Result struct {
	Frontmatter      map[string]interface{}
	Body             string
	Title            string
	Tags             []string
	Status           string
	HasStatus        bool
	PreviousStatuses []string
	Links            []Link
}

// Parse extracts frontmatter, title, and Status section details from raw record bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, body),
		Tags:        frontmatterTags(fm),
	}

	if sec, ok := adr.LocateStatus(body); ok {
		res.HasStatus = true
		res.Status = sec.Status
	}
	region := statusRegion(body)
	for _, m := range previousRe.FindAllStringSubmatch(region, -1) {
		res.PreviousStatuses = append(res.PreviousStatuses, m[1])
	}
	for _, m := range linkLineRe.FindAllStringSubmatch(region, -1) {
		if strings.HasPrefix(m[1], "Status:") || strings.HasPrefix(m[1], "Previous status:") {
			continue
		}
		res.Links = append(res.Links, Link{Type: m[1], Target: m[2], Date: m[4]})
	}
	return res, nil
}

// statusRegion returns the text from the "## Status" heading up to the next
// second-level heading, or "" when there is none.
func statusRegion(body string) string {
	start := strings.Index(body, "## Status")
	if start < 0 {
		return ""
	}
	rest := body[start+len("## Status"):]
	if end := strings.Index(rest, "\n## "); end >= 0 {
		rest = rest[:end]
	}
	return rest
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: the whole file is body.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// frontmatterTags collects the frontmatter "tags" list.
func frontmatterTags(fm map[string]interface{}) []string {
	raw, ok := fm["tags"].([]interface{})
	if !ok {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if _, dup := seen[s]; s == "" || dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the text
// of the first H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if t, ok := fm["title"].(string); ok && t != "" {
		return t
	}
	src := []byte(body)
	doc := markdown.Parser().Parse(text.NewReader(src))
	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 {
			title = string(h.Text(src))
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(title)
}
