// Package models defines the record types exchanged between the service and its surfaces.
package models

import "time"

// RecordMeta is the lightweight listing entry for a record file.
type RecordMeta struct {
	Name      string    `json:"name"`
	Index     int       `json:"index"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Record is a record file together with what could be read back from its text.
type Record struct {
	RecordMeta
	Title            string   `json:"title,omitempty"`
	Status           string   `json:"status,omitempty"`
	PreviousStatuses []string `json:"previous_statuses"`
	Links            []Link   `json:"links"`
	Tags             []string `json:"tags,omitempty"`
	Content          string   `json:"content,omitempty"`
}

// Link is a link line found in a record's Status section. Source is the
// record holding the line.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
	Date   string `json:"date,omitempty"`
}
