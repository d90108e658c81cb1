// Package adr holds the record lifecycle rules: naming, index allocation,
// template rendering, and the Status section rewrites that keep linked
// records consistent.
package adr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Sanitize turns a human-entered title into the slug used in record filenames.
// Only the first apostrophe is replaced; any later ones are kept as typed.
func Sanitize(title string) string {
	slug := strings.ToLower(title)
	slug = strings.ReplaceAll(slug, " ", "-")
	return strings.Replace(slug, "'", "-", 1)
}

// Filename returns "<4-digit index>-<slug>.md".
func Filename(index int, slug string) string {
	return fmt.Sprintf("%04d-%s.md", index, slug)
}

// ParseIndex returns the numeric prefix of a record filename (the part before
// the first hyphen). Names whose prefix does not start with a digit yield 0.
func ParseIndex(name string) int {
	prefix, _, _ := strings.Cut(name, "-")
	prefix = strings.TrimLeftFunc(prefix, unicode.IsSpace)
	end := 0
	for end < len(prefix) && prefix[end] >= '0' && prefix[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(prefix[:end])
	if err != nil {
		return 0
	}
	return n
}

// LastIndex returns the highest index among names, or -1 when names is empty.
func LastIndex(names []string) int {
	last := -1
	for _, name := range names {
		last = max(last, ParseIndex(name))
	}
	return last
}

// NextIndex returns the index the next record receives. Gaps left by removed
// records are never reused.
func NextIndex(names []string) int {
	return LastIndex(names) + 1
}
