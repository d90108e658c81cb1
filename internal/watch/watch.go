// Package watch reports record files appearing, changing and disappearing in
// the records directory.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Event kinds passed to an EventCallback.
const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
)

// EventCallback is called for every record change. name is the record
// filename relative to the records directory.
type EventCallback func(kind, name string)

// Watch watches dir until ctx is cancelled. Only *.md files directly inside dir
// are reported; the atomic-write temp files never are.
//
// Atomic writes land as a rename onto the record, which fsnotify reports as
// Create. Names seen before are therefore reported as Updated.
func Watch(ctx context.Context, dir string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	known, err := existing(dir)
	if err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("dir", dir), slog.Int("records", len(known)))

	emit := func(kind, name string) {
		logger.Debug("watcher: event", slog.String("name", name), slog.String("op", kind))
		if cb != nil {
			cb(kind, name)
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if !isRecord(name) {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind := Updated
				if _, seen := known[name]; !seen {
					kind = Created
					known[name] = struct{}{}
				}
				emit(kind, name)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old name only; the new one arrives as Create.
				if _, seen := known[name]; !seen {
					continue
				}
				delete(known, name)
				emit(Deleted, name)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func existing(dir string) (map[string]struct{}, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if !e.IsDir() && isRecord(e.Name()) {
			known[e.Name()] = struct{}{}
		}
	}
	return known, nil
}

func isRecord(name string) bool {
	return strings.HasSuffix(name, ".md") && !strings.HasPrefix(name, ".")
}
