package adr

import (
	"os"
	"strings"
	"testing"
)

type mapSource map[string]string

func (m mapSource) Read(name string) ([]byte, error) {
	s, ok := m[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(s), nil
}

const recordTemplate = "# {{adr-index}}. {{adr-name}}\n\nDate: {{date}}\n\n## Status\n\nStatus: {{status}}\n{{#links}}{{links}}\n{{/links}}\n## Context\n\nWhat is the issue?\n"

func TestRender(t *testing.T) {
	r := NewRenderer(mapSource{RecordTemplate: recordTemplate})
	out, err := r.Render(RecordTemplate, Fields{
		Date:   "D1",
		Status: StatusValue("Proposed", "D1"),
		Index:  "3",
		Name:   "Use Bob's <queue>",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.HasPrefix(out, "# 3. Use Bob's <queue>\n") {
		t.Errorf("title not rendered raw:\n%s", out)
	}
	sec, ok := LocateStatus(out)
	if !ok {
		t.Fatalf("rendered record has no status section:\n%s", out)
	}
	if sec.Status != "Proposed on D1" {
		t.Errorf("status = %q", sec.Status)
	}
	if strings.Contains(out, "Previous status") {
		t.Error("fresh record must not have a previous status")
	}
}

func TestRender_WithLinks(t *testing.T) {
	r := NewRenderer(mapSource{RecordTemplate: recordTemplate})
	link := LinkLine(Supersedes, "0002-old-name.md", "D1")
	out, err := r.Render(RecordTemplate, Fields{
		Date:   "D1",
		Status: StatusValue("Accepted", "D1"),
		Index:  "5",
		Name:   "New name",
		Links:  link,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "Status: Accepted on D1\n"+link+"\n") {
		t.Errorf("link not below status line:\n%s", out)
	}
}

func TestRender_DoesNotEscapeHTML(t *testing.T) {
	r := NewRenderer(mapSource{"t.md": "{{adr-name}}|{{{adr-name}}}|{{links}}"})
	name := `Bob's "A & B" <queue>`
	link := LinkLine("Amends", "0001-a&b.md", "D1")
	out, err := r.Render("t.md", Fields{Name: name, Links: link})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if want := name + "|" + name + "|" + link; out != want {
		t.Errorf("got %q, want %q", out, want)
	}
	for _, entity := range []string{"&#39;", "&amp;", "&lt;", "&gt;", "&#34;", "&quot;"} {
		if strings.Contains(out, entity) {
			t.Errorf("output contains %s: %q", entity, out)
		}
	}
}

func TestRender_MissingTemplate(t *testing.T) {
	r := NewRenderer(mapSource{})
	if _, err := r.Render(RecordTemplate, Fields{}); err == nil {
		t.Fatal("expected error for missing template")
	}
}

func TestRender_ReadsTemplateEveryCall(t *testing.T) {
	src := mapSource{RecordTemplate: "v1 {{adr-name}}"}
	r := NewRenderer(src)
	first, _ := r.Render(RecordTemplate, Fields{Name: "x"})
	src[RecordTemplate] = "v2 {{adr-name}}"
	second, _ := r.Render(RecordTemplate, Fields{Name: "x"})
	if first != "v1 x" || second != "v2 x" {
		t.Errorf("first=%q second=%q", first, second)
	}
}
