package adr

import (
	"fmt"

	"github.com/cbroglie/mustache"
)

// Template file names expected in the template directory.
const (
	RecordTemplate = "index-recordname.md"
	RootTemplate   = "0000-record-architecture-decisions.md"

	// RootRecord is the record init writes from RootTemplate.
	RootRecord = RootTemplate
)

// Fields are the values a record template can reference.
type Fields struct {
	Date   string // {{date}}
	Status string // {{status}}
	Index  string // {{adr-index}}
	Name   string // {{adr-name}}
	Links  string // {{links}}, optional
}

// context builds the mustache context. Empty fields are left out so that
// {{#links}} sections disappear for records created without a link.
func (f Fields) context() map[string]any {
	ctx := make(map[string]any, 5)
	set := func(k, v string) {
		if v != "" {
			ctx[k] = v
		}
	}
	set("date", f.Date)
	set("status", f.Status)
	set("adr-index", f.Index)
	set("adr-name", f.Name)
	set("links", f.Links)
	return ctx
}

// TemplateSource reads template files by name.
type TemplateSource interface {
	Read(name string) ([]byte, error)
}

// Renderer fills record templates.
type Renderer struct {
	src TemplateSource
}

// NewRenderer creates a Renderer reading templates from src.
func NewRenderer(src TemplateSource) *Renderer {
	return &Renderer{src: src}
}

// Render reads the named template and fills it with f. The template is read on
// every call so edits to the template directory apply immediately.
func (r *Renderer) Render(name string, f Fields) (string, error) {
	data, err := r.src.Read(name)
	if err != nil {
		return "", fmt.Errorf("adr: read template %s: %w", name, err)
	}
	// Records are markdown: no HTML escaping of titles or links.
	tmpl, err := mustache.ParseStringRaw(string(data), true)
	if err != nil {
		return "", fmt.Errorf("adr: parse template %s: %w", name, err)
	}
	out, err := tmpl.Render(f.context())
	if err != nil {
		return "", fmt.Errorf("adr: render template %s: %w", name, err)
	}
	return out, nil
}
