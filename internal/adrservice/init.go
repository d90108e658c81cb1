package adrservice

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/adrctl/internal/storage"
)

// Layout locates the records and template directories.
type Layout struct {
	RecordsDir  string
	TemplateDir string
}

// TemplateSyncer brings the template directory in line with its upstream repository.
type TemplateSyncer interface {
	Sync(ctx context.Context, dir string) error
}

// Open returns a service over existing records and template directories.
func Open(layout Layout, opts ...Option) (*Service, error) {
	records, err := storage.NewFS(layout.RecordsDir)
	if err != nil {
		return nil, fmt.Errorf("adrservice: open records: %w", err)
	}
	templates, err := storage.NewFS(layout.TemplateDir)
	if err != nil {
		return nil, fmt.Errorf("adrservice: open templates: %w", err)
	}
	return NewService(records, templates, opts...), nil
}

// Init prepares a records directory: it creates both directories, syncs the
// templates when syncer is non-nil, and writes the root record. A failed sync
// is logged and does not stop init; an unreadable root template does.
func Init(ctx context.Context, layout Layout, syncer TemplateSyncer, opts ...Option) (*Service, string, error) {
	for _, dir := range []string{layout.RecordsDir, layout.TemplateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, "", fmt.Errorf("adrservice: create %s: %w", dir, err)
		}
	}
	svc, err := Open(layout, opts...)
	if err != nil {
		return nil, "", err
	}
	if syncer != nil {
		if err := syncer.Sync(ctx, svc.templates.Root()); err != nil {
			svc.logger.Warn("init: template sync failed",
				slog.String("dir", svc.templates.Root()),
				slog.String("error", err.Error()))
		}
	}
	path, err := svc.WriteRootRecord(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("adrservice: init: %w", err)
	}
	return svc, path, nil
}
