package adrservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/adrctl/internal/adr"
	"github.com/starford/adrctl/internal/apperr"
	"github.com/starford/adrctl/internal/storage"
	"github.com/starford/adrctl/internal/testutil"
)

const oldRecord = "# 2. Old name\n\nDate: D0\n\n## Status\n\nStatus: Accepted on D0\n\n## Context\n\nOld context.\n"

func testService(t *testing.T) (*Service, string) {
	t.Helper()
	recordsDir, records := testutil.TestRecords(t)
	_, templates := testutil.TestTemplates(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(records, templates, WithClock(testutil.FixedClock()), WithLogger(logger)), recordsDir
}

func writeRecord(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readRecord(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

func TestCreate_FirstRecordGetsIndexZero(t *testing.T) {
	svc, dir := testService(t)
	path, err := svc.Create(context.Background(), CreateRequest{Name: "Use Go", Status: "Proposed"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if path != filepath.Join(svc.RecordsDir(), "0000-use-go.md") {
		t.Errorf("path = %q", path)
	}
	got := readRecord(t, dir, "0000-use-go.md")
	if !strings.HasPrefix(got, "# 0. Use Go\n") {
		t.Errorf("heading not rendered:\n%s", got)
	}
	sec, ok := adr.LocateStatus(got)
	if !ok {
		t.Fatalf("no status section:\n%s", got)
	}
	if sec.Status != "Proposed on "+testutil.Date {
		t.Errorf("status = %q", sec.Status)
	}
	if strings.Contains(got, "Previous status") {
		t.Error("fresh record must not carry a previous status")
	}
}

func TestCreate_NextIndexAfterMax(t *testing.T) {
	svc, dir := testService(t)
	writeRecord(t, dir, "0000-a.md", oldRecord)
	writeRecord(t, dir, "0007-b.md", oldRecord)
	writeRecord(t, dir, "notes.md", "free text")

	path, err := svc.Create(context.Background(), CreateRequest{Name: "My Decision's Name", Status: "Proposed"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if filepath.Base(path) != "0008-my-decision-s-name.md" {
		t.Errorf("name = %q", filepath.Base(path))
	}
}

func TestCreate_Supersedes(t *testing.T) {
	svc, dir := testService(t)
	writeRecord(t, dir, "0002-old-name.md", oldRecord)
	writeRecord(t, dir, "0004-other.md", oldRecord)

	path, err := svc.Create(context.Background(), CreateRequest{
		Name:     "New name",
		Status:   "Accepted",
		LinkType: adr.Supersedes,
		Target:   "0002-old-name.md",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if filepath.Base(path) != "0005-new-name.md" {
		t.Fatalf("name = %q", filepath.Base(path))
	}

	target := readRecord(t, dir, "0002-old-name.md")
	section := "## Status\n\n" +
		"Status: Superseded on " + testutil.Date + "\n" +
		"Previous status: Accepted on D0  \n" +
		"Superseded by [0005-new-name.md](0005-new-name.md) on " + testutil.Date + "\n" +
		"## Context\n"
	if !strings.Contains(target, section) {
		t.Errorf("target status section out of order:\n%s", target)
	}

	created := readRecord(t, dir, "0005-new-name.md")
	sec, ok := adr.LocateStatus(created)
	if !ok || sec.Status != "Accepted on "+testutil.Date {
		t.Errorf("new record status = %q (found=%v)", sec.Status, ok)
	}
	if !strings.Contains(created, "Supersedes [0002-old-name.md](0002-old-name.md) on "+testutil.Date) {
		t.Errorf("forward link missing:\n%s", created)
	}
}

func TestCreate_AmendsKeepsTargetStatus(t *testing.T) {
	svc, dir := testService(t)
	writeRecord(t, dir, "0002-old-name.md", oldRecord)

	if _, err := svc.Create(context.Background(), CreateRequest{
		Name: "Tweak", Status: "Proposed", LinkType: "Amends", Target: "0002-old-name.md",
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	target := readRecord(t, dir, "0002-old-name.md")
	if !strings.Contains(target, "Status: Accepted on D0  \nAmended by [0003-tweak.md](0003-tweak.md) on "+testutil.Date+"\n") {
		t.Errorf("unexpected target:\n%s", target)
	}
	if strings.Contains(target, "Previous status") {
		t.Error("plain link must not change the target status")
	}
}

func TestCreate_MalformedTargetUnchanged(t *testing.T) {
	svc, dir := testService(t)
	broken := "# 1. Broken\n\nNo status heading here.\n"
	writeRecord(t, dir, "0001-broken.md", broken)

	_, err := svc.Create(context.Background(), CreateRequest{
		Name: "New", Status: "Accepted", LinkType: adr.Supersedes, Target: "0001-broken.md",
	})
	if !errors.Is(err, adr.ErrStatusSectionNotFound) {
		t.Fatalf("err = %v, want ErrStatusSectionNotFound", err)
	}
	if got := readRecord(t, dir, "0001-broken.md"); got != broken {
		t.Errorf("target modified:\n%s", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "0002-new.md")); !os.IsNotExist(err) {
		t.Error("new record written despite failed link")
	}
}

func TestCreate_MissingTarget(t *testing.T) {
	svc, dir := testService(t)
	_, err := svc.Create(context.Background(), CreateRequest{
		Name: "New", Status: "Accepted", LinkType: "Amends", Target: "0009-ghost.md",
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("unexpected files: %v", entries)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := testService(t)
	cases := []CreateRequest{
		{Status: "Proposed"},
		{Name: "x"},
		{Name: "x", Status: "Proposed", LinkType: "Amends"},
		{Name: "x", Status: "Proposed", Target: "0000-a.md"},
		{Name: "x", Status: "In-Review"},
	}
	for _, req := range cases {
		if _, err := svc.Create(context.Background(), req); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("Create(%+v) err = %v, want ErrInvalidInput", req, err)
		}
	}
}

func TestCreate_UnreadableTemplate(t *testing.T) {
	_, records := testutil.TestRecords(t)
	_, templates := testutil.TestRecords(t) // empty directory: no templates
	svc := NewService(records, templates, WithClock(testutil.FixedClock()), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if _, err := svc.Create(context.Background(), CreateRequest{Name: "x", Status: "Proposed"}); err == nil {
		t.Fatal("expected error without a record template")
	}
}

func TestChangeStatus_History(t *testing.T) {
	svc, dir := testService(t)
	writeRecord(t, dir, "0002-old-name.md", oldRecord)
	ctx := context.Background()

	if err := svc.ChangeStatus(ctx, "0002-old-name.md", "A"); err != nil {
		t.Fatalf("ChangeStatus A: %v", err)
	}
	if err := svc.ChangeStatus(ctx, filepath.Join(dir, "0002-old-name.md"), "B"); err != nil {
		t.Fatalf("ChangeStatus B: %v", err)
	}
	got := readRecord(t, dir, "0002-old-name.md")
	for _, line := range []string{
		"Status: B on " + testutil.Date + "\n",
		"Previous status: A on " + testutil.Date + "  \n",
		"Previous status: Accepted on D0  \n",
	} {
		if !strings.Contains(got, line) {
			t.Errorf("missing %q:\n%s", line, got)
		}
	}
}

func TestChangeStatus_MalformedUnchanged(t *testing.T) {
	svc, dir := testService(t)
	broken := "# 1. Broken\n"
	writeRecord(t, dir, "0001-broken.md", broken)
	err := svc.ChangeStatus(context.Background(), "0001-broken.md", "Accepted")
	if !errors.Is(err, adr.ErrStatusSectionNotFound) {
		t.Fatalf("err = %v", err)
	}
	if got := readRecord(t, dir, "0001-broken.md"); got != broken {
		t.Errorf("record modified: %q", got)
	}
}

func TestChangeStatus_Missing(t *testing.T) {
	svc, _ := testService(t)
	if err := svc.ChangeStatus(context.Background(), "0001-none.md", "Accepted"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAddLink_MalformedUnchanged(t *testing.T) {
	svc, dir := testService(t)
	broken := "# 3. Broken\n\nStatus: Accepted\n"
	writeRecord(t, dir, "0003-broken.md", broken)
	err := svc.AddLink(context.Background(), "0004-new.md", "0003-broken.md", adr.SupersededBy)
	if !errors.Is(err, adr.ErrStatusSectionNotFound) {
		t.Fatalf("err = %v", err)
	}
	if got := readRecord(t, dir, "0003-broken.md"); got != broken {
		t.Errorf("record modified: %q", got)
	}
}

func TestAddLink_SupersededBy(t *testing.T) {
	svc, dir := testService(t)
	writeRecord(t, dir, "0002-old-name.md", oldRecord)
	if err := svc.AddLink(context.Background(), "0005-new-name.md", "0002-old-name.md", adr.SupersededBy); err != nil {
		t.Fatalf("AddLink: %v", err)
	}
	rec, err := svc.Get(context.Background(), "0002-old-name.md")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Status != "Superseded on "+testutil.Date {
		t.Errorf("status = %q", rec.Status)
	}
	if len(rec.PreviousStatuses) != 1 || rec.PreviousStatuses[0] != "Accepted on D0" {
		t.Errorf("previous = %v", rec.PreviousStatuses)
	}
	if len(rec.Links) != 1 || rec.Links[0].Target != "0005-new-name.md" || rec.Links[0].Type != adr.SupersededBy {
		t.Errorf("links = %+v", rec.Links)
	}
}

func TestListAndGet(t *testing.T) {
	svc, dir := testService(t)
	writeRecord(t, dir, "0002-old-name.md", oldRecord)
	writeRecord(t, dir, "0001-first.md", "# 1. First\n\n## Status\n\nStatus: Proposed on D0\n")

	recs, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len = %d, want 2", len(recs))
	}
	if recs[0].Name != "0001-first.md" || recs[0].Index != 1 || recs[0].Title != "1. First" {
		t.Errorf("recs[0] = %+v", recs[0])
	}
	if recs[1].Status != "Accepted on D0" || recs[1].Content != "" {
		t.Errorf("recs[1] = %+v", recs[1])
	}

	rec, err := svc.Get(context.Background(), "0002-old-name.md")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Content != oldRecord || rec.Checksum == "" {
		t.Errorf("content/checksum not filled: %+v", rec)
	}
	if _, err := svc.Get(context.Background(), "0009-none.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get missing err = %v", err)
	}

	names, err := svc.Names(context.Background())
	if err != nil || len(names) != 2 {
		t.Errorf("Names = %v, %v", names, err)
	}
}

func TestChangeStatusIfMatch(t *testing.T) {
	svc, dir := testService(t)
	writeRecord(t, dir, "0002-old-name.md", oldRecord)
	ctx := context.Background()

	err := svc.ChangeStatusIfMatch(ctx, "0002-old-name.md", "Deprecated", "stale")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if got := readRecord(t, dir, "0002-old-name.md"); got != oldRecord {
		t.Errorf("record modified on conflict")
	}

	rec, err := svc.Get(ctx, "0002-old-name.md")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.ChangeStatusIfMatch(ctx, "0002-old-name.md", "Deprecated", rec.Checksum); err != nil {
		t.Fatalf("ChangeStatusIfMatch: %v", err)
	}
}

func TestChangeStatus_RejectsUnreadableStatus(t *testing.T) {
	svc, dir := testService(t)
	writeRecord(t, dir, "0002-old-name.md", oldRecord)

	for _, status := range []string{"In-Review", "Done."} {
		err := svc.ChangeStatus(context.Background(), "0002-old-name.md", status)
		if !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("ChangeStatus(%q) err = %v, want ErrInvalidInput", status, err)
		}
	}
	if got := readRecord(t, dir, "0002-old-name.md"); got != oldRecord {
		t.Errorf("record modified:\n%s", got)
	}
}

func TestService_RejectsUnreadableDateLayout(t *testing.T) {
	recordsDir, records := testutil.TestRecords(t)
	_, templates := testutil.TestTemplates(t)
	clock := adr.Clock{
		Layout: "2006-01-02",
		Now:    func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) },
	}
	svc := NewService(records, templates, WithClock(clock), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	writeRecord(t, recordsDir, "0002-old-name.md", oldRecord)
	ctx := context.Background()

	if err := svc.ChangeStatus(ctx, "0002-old-name.md", "Deprecated"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("ChangeStatus err = %v, want ErrInvalidInput", err)
	}
	if err := svc.AddLink(ctx, "0005-new.md", "0002-old-name.md", adr.SupersededBy); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("AddLink err = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.Create(ctx, CreateRequest{Name: "x", Status: "Proposed"}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("Create err = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.WriteRootRecord(ctx); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("WriteRootRecord err = %v, want ErrInvalidInput", err)
	}
	if got := readRecord(t, recordsDir, "0002-old-name.md"); got != oldRecord {
		t.Errorf("record modified:\n%s", got)
	}
	entries, _ := os.ReadDir(recordsDir)
	if len(entries) != 1 {
		t.Errorf("unexpected files: %v", entries)
	}
}

// failingWrites fails every write to the named file.
type failingWrites struct {
	storage.Provider
	name string
}

func (f failingWrites) Write(name string, content []byte) error {
	if name == f.name {
		return errors.New("disk full")
	}
	return f.Provider.Write(name, content)
}

func TestCreate_RestoresTargetWhenWriteFails(t *testing.T) {
	recordsDir, records := testutil.TestRecords(t)
	_, templates := testutil.TestTemplates(t)
	writeRecord(t, recordsDir, "0002-old-name.md", oldRecord)
	store := failingWrites{Provider: records, name: "0003-new-name.md"}
	svc := NewService(store, templates, WithClock(testutil.FixedClock()), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, err := svc.Create(context.Background(), CreateRequest{
		Name:     "New name",
		Status:   "Accepted",
		LinkType: adr.Supersedes,
		Target:   "0002-old-name.md",
	})
	if err == nil {
		t.Fatal("expected write error")
	}
	if got := readRecord(t, recordsDir, "0002-old-name.md"); got != oldRecord {
		t.Errorf("target not restored:\n%s", got)
	}
	if _, err := os.Stat(filepath.Join(recordsDir, "0003-new-name.md")); !os.IsNotExist(err) {
		t.Errorf("new record exists: %v", err)
	}
}
