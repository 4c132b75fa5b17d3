package journal_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"storyflow/internal/journal"
	"storyflow/internal/services"
	"storyflow/internal/task"
)

func openStore(t *testing.T) *journal.Store {
	t.Helper()
	store, err := journal.Open(filepath.Join(t.TempDir(), "state", "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLifecycleFinished(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	d := task.NewDescriptor("t1", task.KindVideo, "p1")
	if err := store.RecordRegistered(ctx, d, "sess-1"); err != nil {
		t.Fatalf("RecordRegistered: %v", err)
	}
	if err := store.RecordProgress(ctx, "t1", 40, "rendering"); err != nil {
		t.Fatalf("RecordProgress: %v", err)
	}

	entry, err := store.Get(ctx, "t1")
	if err != nil || entry == nil {
		t.Fatalf("Get: %v %v", entry, err)
	}
	if entry.State != journal.StateTracking || entry.Progress != 40 || entry.Message != "rendering" {
		t.Fatalf("unexpected tracking entry %+v", entry)
	}
	if entry.Kind != task.KindVideo || entry.SubjectID != "p1" || entry.SessionID != "sess-1" {
		t.Fatalf("unexpected identity fields %+v", entry)
	}

	if err := store.RecordFinished(ctx, "t1", "http://host/v.mp4"); err != nil {
		t.Fatalf("RecordFinished: %v", err)
	}
	entry, _ = store.Get(ctx, "t1")
	if entry.State != journal.StateFinished || entry.Progress != 100 || entry.ResourceURL != "http://host/v.mp4" {
		t.Fatalf("unexpected finished entry %+v", entry)
	}
	if entry.FinishedAt == nil {
		t.Fatal("expected finished_at")
	}
	if entry.Duration(time.Now()) < 0 {
		t.Fatal("expected non-negative duration")
	}

	if err := store.RecordProgress(ctx, "t1", 10, "late"); err != nil {
		t.Fatalf("RecordProgress: %v", err)
	}
	entry, _ = store.Get(ctx, "t1")
	if entry.Progress != 100 {
		t.Fatalf("late progress must not rewrite a finished entry, got %d", entry.Progress)
	}
}

func TestLifecycleFailedRecordsErrorKind(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.RecordRegistered(ctx, task.NewDescriptor("t2", task.KindShot, "s2"), ""); err != nil {
		t.Fatalf("RecordRegistered: %v", err)
	}
	cause := services.Wrap(services.ErrTaskFailed, "remote task", "t2", "model crashed", nil)
	if err := store.RecordFailed(ctx, "t2", cause); err != nil {
		t.Fatalf("RecordFailed: %v", err)
	}
	entry, _ := store.Get(ctx, "t2")
	if entry.State != journal.StateFailed || entry.ErrorKind != "task_failed" || entry.ErrorMessage == "" {
		t.Fatalf("unexpected failed entry %+v", entry)
	}
}

func TestListStatsAndClear(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	for i, id := range []string{"a", "b", "c"} {
		d := task.Descriptor{TaskID: id, Kind: task.KindShot, SubjectID: "s-" + id, RegisteredAt: base.Add(time.Duration(i) * time.Minute)}
		if err := store.RecordRegistered(ctx, d, ""); err != nil {
			t.Fatalf("RecordRegistered: %v", err)
		}
	}
	_ = store.RecordFinished(ctx, "a", "")
	_ = store.RecordFailed(ctx, "b", nil)

	entries, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 || entries[0].TaskID != "c" {
		t.Fatalf("expected newest first, got %+v", entries)
	}

	limited, _ := store.List(ctx, 1, journal.StateFinished)
	if len(limited) != 1 || limited[0].TaskID != "a" {
		t.Fatalf("unexpected filtered list %+v", limited)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[journal.StateTracking] != 1 || stats[journal.StateFinished] != 1 || stats[journal.StateFailed] != 1 {
		t.Fatalf("unexpected stats %v", stats)
	}

	removed, err := store.Clear(ctx)
	if err != nil || removed != 2 {
		t.Fatalf("Clear = %d, %v", removed, err)
	}
}

func TestMarkAbandonedFailsTrackingEntries(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	_ = store.RecordRegistered(ctx, task.NewDescriptor("t1", task.KindText, "p1"), "")

	n, err := store.MarkAbandoned(ctx)
	if err != nil || n != 1 {
		t.Fatalf("MarkAbandoned = %d, %v", n, err)
	}
	entry, _ := store.Get(ctx, "t1")
	if entry.State != journal.StateFailed || entry.ErrorKind != "abandoned" {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := journal.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = store.RecordRegistered(context.Background(), task.NewDescriptor("t1", task.KindText, "p1"), "")
	_ = store.Close()

	reopened, err := journal.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if entry, _ := reopened.Get(context.Background(), "t1"); entry == nil {
		t.Fatal("expected entry to survive reopen")
	}
	if missing, err := reopened.Get(context.Background(), "nope"); err != nil || missing != nil {
		t.Fatalf("expected nil for unknown task, got %v %v", missing, err)
	}
}

func TestListOrdersWithinTheSameSecond(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	second := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)

	older := task.Descriptor{TaskID: "older", Kind: task.KindShot, SubjectID: "s1", RegisteredAt: second.Add(100 * time.Millisecond)}
	newer := task.Descriptor{TaskID: "newer", Kind: task.KindShot, SubjectID: "s2", RegisteredAt: second.Add(123 * time.Millisecond)}
	whole := task.Descriptor{TaskID: "whole", Kind: task.KindShot, SubjectID: "s3", RegisteredAt: second}
	for _, d := range []task.Descriptor{older, whole, newer} {
		if err := store.RecordRegistered(ctx, d, ""); err != nil {
			t.Fatalf("RecordRegistered %s: %v", d.TaskID, err)
		}
	}

	entries, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var order []string
	for _, e := range entries {
		order = append(order, e.TaskID)
	}
	if len(order) != 3 || order[0] != "newer" || order[1] != "older" || order[2] != "whole" {
		t.Fatalf("expected newer, older, whole; got %v", order)
	}
	if !entries[0].CreatedAt.Equal(newer.RegisteredAt) {
		t.Fatalf("created_at did not round trip: %v", entries[0].CreatedAt)
	}
}

func TestLatestStoryboard(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	latest, err := store.LatestStoryboard(ctx)
	if err != nil || latest != "" {
		t.Fatalf("expected no storyboard, got %q %v", latest, err)
	}
	if err := store.RecordStoryboard(ctx, " ", "untitled", 0); err == nil {
		t.Fatal("expected blank project id to be rejected")
	}

	if err := store.RecordStoryboard(ctx, "p1", "First", 3); err != nil {
		t.Fatalf("RecordStoryboard: %v", err)
	}
	if err := store.RecordStoryboard(ctx, "p2", "Second", 2); err != nil {
		t.Fatalf("RecordStoryboard: %v", err)
	}
	if latest, _ = store.LatestStoryboard(ctx); latest != "p2" {
		t.Fatalf("expected p2, got %q", latest)
	}

	// A project registered without a storyboard never becomes a candidate.
	_ = store.RecordRegistered(ctx, task.NewDescriptor("t9", task.KindText, "p9"), "")
	_ = store.RecordFinished(ctx, "t9", "")
	if latest, _ = store.LatestStoryboard(ctx); latest != "p2" {
		t.Fatalf("expected p2 after unrelated text task, got %q", latest)
	}
}
