// Package storage defines the records directory abstraction.
package storage

import "github.com/starford/adrctl/internal/models"

// Provider is the interface for record file operations. Names are relative
// to the provider root.
type Provider interface {
	// List returns metadata for every .md file directly under the root, sorted by name.
	List() ([]models.RecordMeta, error)
	// Read returns the raw bytes of the named file.
	Read(name string) ([]byte, error)
	// Write atomically replaces the named file with content.
	Write(name string, content []byte) error
	// Exists reports whether the named file is present.
	Exists(name string) (bool, error)
	// Root returns the absolute directory the provider is rooted at.
	Root() string
}
