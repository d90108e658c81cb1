// Package templaterepo keeps the template directory in step with an upstream
// git repository. It shells out to the git CLI.
package templaterepo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultBranch is synced when Syncer.Branch is empty.
const DefaultBranch = "master"

// ErrNoRemote is returned by Sync when no repository URL is configured.
var ErrNoRemote = errors.New("templaterepo: no repository url configured")

// Syncer clones or updates a template directory from URL.
type Syncer struct {
	URL    string
	Branch string
	Logger *slog.Logger
}

// Sync makes dir an exact checkout of the configured branch. A directory that
// is not yet a repository is cloned into when empty, otherwise initialised in
// place. Local edits to tracked templates are discarded.
func (s *Syncer) Sync(ctx context.Context, dir string) error {
	if s.URL == "" {
		return ErrNoRemote
	}
	branch := s.Branch
	if branch == "" {
		branch = DefaultBranch
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		logger.Info("templates: updating", slog.String("dir", dir), slog.String("branch", branch))
		return s.update(ctx, dir, branch)
	}

	empty, err := isEmptyDir(dir)
	if err != nil {
		return err
	}
	if empty {
		logger.Info("templates: cloning", slog.String("url", s.URL), slog.String("dir", dir))
		_, err := run(ctx, "", "clone", "--branch", branch, s.URL, dir)
		return err
	}

	logger.Info("templates: adopting existing directory", slog.String("dir", dir))
	if _, err := run(ctx, dir, "init"); err != nil {
		return err
	}
	if _, err := run(ctx, dir, "remote", "add", "origin", s.URL); err != nil {
		return err
	}
	return s.update(ctx, dir, branch)
}

func (s *Syncer) update(ctx context.Context, dir, branch string) error {
	if _, err := run(ctx, dir, "fetch", "origin", branch); err != nil {
		return err
	}
	_, err := run(ctx, dir, "reset", "--hard", "origin/"+branch)
	return err
}

// run executes git, in dir when non-empty, and returns stdout. Stderr is
// folded into the error.
func run(ctx context.Context, dir string, args ...string) (string, error) {
	full := args
	if dir != "" {
		full = append([]string{"-C", dir}, args...)
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", full...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w (stderr: %s)",
			strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func isEmptyDir(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("templaterepo: read %s: %w", dir, err)
	}
	return len(entries) == 0, nil
}
