// Package testutil provides shared test helpers for records and template directories.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/adrctl/internal/adr"
	"github.com/starford/adrctl/internal/storage"
)

// Date is the date every FixedClock produces.
const Date = "Sunday, October 18, 2026"

// RecordTemplate mirrors the upstream index-recordname.md template.
const RecordTemplate = `# {{adr-index}}. {{adr-name}}

Date: {{date}}

## Status

Status: {{status}}
{{#links}}
{{links}}
{{/links}}

## Context

The issue motivating this decision.

## Decision

The change that we're proposing or have agreed to implement.

## Consequences

What becomes easier or more difficult to do because of this change.
`

// RootTemplate mirrors the upstream 0000-record-architecture-decisions.md template.
const RootTemplate = `# 0. Record architecture decisions

Date: {{date}}

## Status

Status: {{status}}

## Context

We need to record the architectural decisions made on this project.

## Decision

We will use Architecture Decision Records.

## Consequences

See Michael Nygard's article.
`

// FixedClock returns a clock pinned to 2026-10-18 using the default layout.
func FixedClock() adr.Clock {
	return adr.Clock{
		Layout: adr.DefaultDateLayout,
		Now:    func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) },
	}
}

// TestRecords creates a temporary records directory with a storage.Provider.
func TestRecords(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestTemplates creates a temporary template directory holding both templates.
func TestTemplates(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	WriteTemplates(t, dir)
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteTemplates writes the record and root templates into dir.
func WriteTemplates(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		adr.RecordTemplate: RecordTemplate,
		adr.RootTemplate:   RootTemplate,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}
