package testsupport

import (
	"context"
	"testing"

	"storyflow/internal/config"
	"storyflow/internal/journal"
	"storyflow/internal/task"
)

// MustOpenJournal opens the task journal for tests and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg.JournalPath())
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// RecordTask journals a freshly registered task.
func RecordTask(t testing.TB, store *journal.Store, taskID string, kind task.Kind, subjectID string) task.Descriptor {
	t.Helper()

	d := task.NewDescriptor(taskID, kind, subjectID)
	if err := store.RecordRegistered(context.Background(), d, "session-test"); err != nil {
		t.Fatalf("RecordRegistered: %v", err)
	}
	return d
}
