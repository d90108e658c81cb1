package adr

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrStatusSectionNotFound is returned when a record has no recognisable
// "## Status" section. The record text is never rewritten in that case.
var ErrStatusSectionNotFound = errors.New("status section not found")

// statusSectionRe is the anchor every existing record relies on. The prose
// group is greedy, so the last "Status: " line after the heading is the one
// that gets rewritten.
var statusSectionRe = regexp.MustCompile(`## Status([\s\S]+)Status: ([\w \t,]*)\s*`)

// StatusText matches a status value the anchor reads back whole. Any other
// character ends the match early and splits the value on the next rewrite.
var StatusText = regexp.MustCompile(`^[\w \t,]*$`)

// Section is a located Status section.
type Section struct {
	Start int
	End   int
	// Prose is everything between the heading and the status line, verbatim.
	Prose string
	// Status is the current status value without trailing blanks.
	Status string
}

// LocateStatus finds the Status section of text.
func LocateStatus(text string) (Section, bool) {
	m := statusSectionRe.FindStringSubmatchIndex(text)
	if m == nil {
		return Section{}, false
	}
	return Section{
		Start:  m[0],
		End:    m[1],
		Prose:  text[m[2]:m[3]],
		Status: strings.TrimRight(text[m[4]:m[5]], " \t"),
	}, true
}

// rewrite replaces the matched region with the heading, the original prose and body.
func (s Section) rewrite(text, body string) string {
	var b strings.Builder
	b.Grow(len(text) + len(body))
	b.WriteString(text[:s.Start])
	b.WriteString("## Status")
	b.WriteString(s.Prose)
	b.WriteString(body)
	b.WriteString(text[s.End:])
	return b.String()
}

// StatusValue is the text stored after "Status: ", e.g. "Accepted on Sunday, October 18, 2026".
func StatusValue(status, date string) string {
	return status + " on " + date
}

// SetStatus makes status the current status of the record and demotes the
// previous one to a "Previous status" line right below it.
func SetStatus(text, status, date string) (string, error) {
	sec, ok := LocateStatus(text)
	if !ok {
		return text, ErrStatusSectionNotFound
	}
	body := "Status: " + StatusValue(status, date) + "\nPrevious status: " + sec.Status + "  \n"
	return sec.rewrite(text, body), nil
}

// ErrStatusText is returned for a status value the anchor could not read back.
var ErrStatusText = errors.New("status text has characters the Status line cannot hold")

// CheckStatusValue reports whether the value StatusValue builds from status
// and date would be read back unchanged by LocateStatus.
func CheckStatusValue(status, date string) error {
	if !StatusText.MatchString(StatusValue(status, date)) {
		return fmt.Errorf("%w: %q", ErrStatusText, StatusValue(status, date))
	}
	return nil
}
