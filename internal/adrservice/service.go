// Package adrservice composes naming, index allocation, rendering and the
// Status section rewrites into the record lifecycle operations.
package adrservice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/adrctl/internal/adr"
	"github.com/starford/adrctl/internal/apperr"
	"github.com/starford/adrctl/internal/checksum"
	"github.com/starford/adrctl/internal/models"
	"github.com/starford/adrctl/internal/parser"
	"github.com/starford/adrctl/internal/storage"
)

// CreateRequest describes a new record and an optional link to an existing one.
type CreateRequest struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	LinkType string `json:"link_type,omitempty"`
	Target   string `json:"target,omitempty"`
}

// Validate checks that a name and status are set and that a link comes with both halves.
func (r *CreateRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Status, validation.Required, validation.Match(adr.StatusText)),
		validation.Field(&r.LinkType, validation.When(r.Target != "", validation.Required)),
		validation.Field(&r.Target, validation.When(r.LinkType != "", validation.Required)),
	)
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for every date written into records.
func WithClock(c adr.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service runs the record lifecycle against a records directory and a template directory.
//
// Mutating calls are serialised within the process. Nothing guards against a
// second process editing the same directory.
type Service struct {
	records   storage.Provider
	templates storage.Provider
	renderer  *adr.Renderer
	clock     adr.Clock
	logger    *slog.Logger

	mu sync.Mutex
}

// NewService creates a new record service.
func NewService(records, templates storage.Provider, opts ...Option) *Service {
	s := &Service{
		records:   records,
		templates: templates,
		renderer:  adr.NewRenderer(templates),
		clock:     adr.NewClock(""),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordsDir returns the absolute records directory.
func (s *Service) RecordsDir() string {
	return s.records.Root()
}

// List returns every record in the directory with what its text says about it.
func (s *Service) List(_ context.Context) ([]models.Record, error) {
	metas, err := s.records.List()
	if err != nil {
		return nil, err
	}
	out := make([]models.Record, 0, len(metas))
	for _, m := range metas {
		data, err := s.records.Read(m.Name)
		if err != nil {
			s.logger.Warn("list: read failed", slog.String("name", m.Name), slog.String("error", err.Error()))
			continue
		}
		rec, err := buildRecord(m, data)
		if err != nil {
			s.logger.Warn("list: parse failed", slog.String("name", m.Name), slog.String("error", err.Error()))
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

// Names returns the record filenames in name order.
func (s *Service) Names(_ context.Context) ([]string, error) {
	return s.names()
}

// Get reads a single record including its content.
func (s *Service) Get(_ context.Context, name string) (*models.Record, error) {
	name = recordName(name)
	data, err := s.read(name)
	if err != nil {
		return nil, err
	}
	metas, err := s.records.List()
	if err != nil {
		return nil, err
	}
	meta := models.RecordMeta{Name: name}
	for _, m := range metas {
		if m.Name == name {
			meta = m
			break
		}
	}
	rec, err := buildRecord(meta, data)
	if err != nil {
		return nil, err
	}
	rec.Content = string(data)
	return rec, nil
}

// Create allocates the next index, renders the record template and writes the
// new record. When a link is requested the target receives the reciprocal link
// line and the new record is seeded with the forward one. It returns the path
// of the new record.
func (s *Service) Create(_ context.Context, req CreateRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.names()
	if err != nil {
		return "", err
	}
	index := adr.NextIndex(names)
	name := adr.Filename(index, adr.Sanitize(req.Name))
	s.logger.Info("create record",
		slog.String("name", name),
		slog.String("records", s.records.Root()),
		slog.String("templates", s.templates.Root()))

	exists, err := s.records.Exists(name)
	if err != nil {
		return "", err
	}
	if exists {
		return "", fmt.Errorf("adrservice: create %s: %w", name, apperr.ErrAlreadyExists)
	}

	date := s.clock.Today()
	if err := adr.CheckStatusValue(req.Status, date); err != nil {
		return "", fmt.Errorf("adrservice: create %s: %w: %v", name, apperr.ErrInvalidInput, err)
	}
	fields := adr.Fields{
		Date:   date,
		Status: adr.StatusValue(req.Status, date),
		Index:  strconv.Itoa(index),
		Name:   req.Name,
	}
	linked := req.LinkType != "" && req.Target != ""
	target := recordName(req.Target)
	if linked {
		fields.Links = adr.LinkLine(req.LinkType, target, date)
	}

	// Render before touching the target so a broken template leaves it alone.
	out, err := s.renderer.Render(adr.RecordTemplate, fields)
	if err != nil {
		s.logger.Error("create: render failed", slog.String("name", name), slog.String("error", err.Error()))
		return "", err
	}

	var original []byte
	if linked {
		if original, err = s.addLinkLocked(name, target, adr.ReciprocalLinkType(req.LinkType), date); err != nil {
			return "", err
		}
	}

	if err := s.records.Write(name, []byte(out)); err != nil {
		s.logger.Error("create: write failed", slog.String("name", name), slog.String("error", err.Error()))
		if linked {
			s.restore(target, original)
		}
		return "", err
	}
	return filepath.Join(s.records.Root(), name), nil
}

// ChangeStatus makes status the current status of the named record, keeping
// the old one as a "Previous status" line.
func (s *Service) ChangeStatus(ctx context.Context, name, status string) error {
	return s.ChangeStatusIfMatch(ctx, name, status, "")
}

// ChangeStatusIfMatch is ChangeStatus guarded by the record checksum. A
// non-empty etag that no longer matches the file returns apperr.ErrConflict.
func (s *Service) ChangeStatusIfMatch(_ context.Context, name, status, etag string) error {
	if status == "" {
		return fmt.Errorf("%w: status is required", apperr.ErrInvalidInput)
	}
	name = recordName(name)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("change status", slog.String("name", name), slog.String("status", status))
	data, err := s.read(name)
	if err != nil {
		s.logger.Error("change status: read failed", slog.String("name", name), slog.String("error", err.Error()))
		return err
	}
	if !checksum.Match(etag, data) {
		return fmt.Errorf("adrservice: change status of %s: %w", name, apperr.ErrConflict)
	}
	date := s.clock.Today()
	if err := adr.CheckStatusValue(status, date); err != nil {
		return fmt.Errorf("adrservice: change status of %s: %w: %v", name, apperr.ErrInvalidInput, err)
	}
	out, err := adr.SetStatus(string(data), status, date)
	if err != nil {
		s.logger.Warn("change status: record left unchanged", slog.String("name", name), slog.String("error", err.Error()))
		return fmt.Errorf("adrservice: change status of %s: %w", name, err)
	}
	if err := s.records.Write(name, []byte(out)); err != nil {
		s.logger.Error("change status: write failed", slog.String("name", name), slog.String("error", err.Error()))
		return err
	}
	return nil
}

// AddLink records on target that source relates to it through linkType.
// "Superseded by" also moves target to the Superseded status.
func (s *Service) AddLink(_ context.Context, source, target, linkType string) error {
	if source == "" || target == "" || linkType == "" {
		return fmt.Errorf("%w: source, target and link type are required", apperr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	date := s.clock.Today()
	if linkType == adr.SupersededBy {
		if err := adr.CheckStatusValue(adr.SupersededStatus, date); err != nil {
			return fmt.Errorf("adrservice: link %s to %s: %w: %v", source, target, apperr.ErrInvalidInput, err)
		}
	}
	_, err := s.addLinkLocked(recordName(source), recordName(target), linkType, date)
	return err
}

// addLinkLocked rewrites target and returns its text from before the rewrite.
func (s *Service) addLinkLocked(source, target, linkType, date string) ([]byte, error) {
	s.logger.Info("add link",
		slog.String("link_type", linkType),
		slog.String("source", source),
		slog.String("target", target))
	data, err := s.read(target)
	if err != nil {
		s.logger.Error("add link: read failed", slog.String("target", target), slog.String("error", err.Error()))
		return nil, err
	}
	out, err := adr.ApplyLink(string(data), source, linkType, date)
	if err != nil {
		s.logger.Warn("add link: target left unchanged", slog.String("target", target), slog.String("error", err.Error()))
		return nil, fmt.Errorf("adrservice: link %s to %s: %w", source, target, err)
	}
	if err := s.records.Write(target, []byte(out)); err != nil {
		s.logger.Error("add link: write failed", slog.String("target", target), slog.String("error", err.Error()))
		return nil, err
	}
	return data, nil
}

// restore puts back a record rewritten earlier in a call that then failed.
func (s *Service) restore(name string, data []byte) {
	if err := s.records.Write(name, data); err != nil {
		s.logger.Error("restore failed, record keeps the new link",
			slog.String("name", name), slog.String("error", err.Error()))
		return
	}
	s.logger.Warn("restored record", slog.String("name", name))
}

// WriteRootRecord renders the root template into the first record unless it
// already exists.
func (s *Service) WriteRootRecord(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.records.Exists(adr.RootRecord)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.records.Root(), adr.RootRecord)
	if exists {
		s.logger.Info("root record already present", slog.String("path", path))
		return path, nil
	}
	date := s.clock.Today()
	if err := adr.CheckStatusValue("Accepted", date); err != nil {
		return "", fmt.Errorf("adrservice: root record: %w: %v", apperr.ErrInvalidInput, err)
	}
	out, err := s.renderer.Render(adr.RootTemplate, adr.Fields{
		Date:   date,
		Status: adr.StatusValue("Accepted", date),
	})
	if err != nil {
		return "", err
	}
	if err := s.records.Write(adr.RootRecord, []byte(out)); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Service) names() ([]string, error) {
	metas, err := s.records.List()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(metas))
	for i, m := range metas {
		names[i] = m.Name
	}
	return names, nil
}

func (s *Service) read(name string) ([]byte, error) {
	data, err := s.records.Read(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("adrservice: %s: %w", name, apperr.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

// recordName accepts either a bare filename or a path into the records directory.
func recordName(p string) string {
	if p == "" {
		return ""
	}
	return filepath.Base(p)
}

func buildRecord(meta models.RecordMeta, data []byte) (*models.Record, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	meta.Index = adr.ParseIndex(meta.Name)
	rec := &models.Record{
		RecordMeta:       meta,
		Title:            res.Title,
		Status:           res.Status,
		Tags:             res.Tags,
		PreviousStatuses: nonNilSlice(res.PreviousStatuses),
		Links:            []models.Link{},
	}
	for _, l := range res.Links {
		rec.Links = append(rec.Links, models.Link{
			Source: meta.Name,
			Target: l.Target,
			Type:   l.Type,
			Date:   l.Date,
		})
	}
	return rec, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
