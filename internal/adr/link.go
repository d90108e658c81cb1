package adr

import (
	"fmt"
	"strings"
)

// Link types with special meaning.
const (
	Supersedes   = "Supersedes"
	SupersededBy = "Superseded by"
	// SupersededStatus is forced onto a record when a newer one supersedes it.
	SupersededStatus = "Superseded"
)

// LinkLine renders "<linkType> [<name>](<name>) on <date>".
func LinkLine(linkType, name, date string) string {
	return fmt.Sprintf("%s [%s](%s) on %s", linkType, name, name, date)
}

// ReciprocalLinkType derives the phrase written on the target of a link:
// "Supersedes" becomes "Superseded by" and "Amends" becomes "Amended by".
func ReciprocalLinkType(linkType string) string {
	if trimmed := strings.TrimSpace(linkType); strings.HasSuffix(trimmed, "es") {
		return strings.TrimSuffix(trimmed, "es") + "ed by"
	}
	if strings.HasSuffix(linkType, "s") {
		return strings.TrimSuffix(linkType, "s") + "ed by"
	}
	return linkType
}

// AppendLink adds a link line directly below the current status line,
// leaving the status itself unchanged.
func AppendLink(text, linkType, source, date string) (string, error) {
	sec, ok := LocateStatus(text)
	if !ok {
		return text, ErrStatusSectionNotFound
	}
	body := "Status: " + sec.Status + "  \n" + LinkLine(linkType, source, date) + "\n"
	return sec.rewrite(text, body), nil
}

// ApplyLink records on the target text that source relates to it through
// linkType. A "Superseded by" link also moves the target to the Superseded
// status, leaving the section as new status, previous status, then links.
func ApplyLink(text, source, linkType, date string) (string, error) {
	out, err := AppendLink(text, linkType, source, date)
	if err != nil {
		return text, err
	}
	if linkType == SupersededBy {
		if out, err = SetStatus(out, SupersededStatus, date); err != nil {
			return text, err
		}
	}
	return out, nil
}
