package state

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RecordAndGet(t *testing.T) {
	store := openTestStore(t)

	entry := &Entry{
		MessageID:  "msg-1",
		ThreadID:   "thread-1",
		Sender:     "alice@example.com",
		Subject:    "Invoice attached",
		Intent:     "work",
		Confidence: 0.87,
		Labels:     []string{"Text Only", "Money Related", "AI:Work"},
		Status:     "classified",
	}

	if err := store.Record(entry); err != nil {
		t.Fatalf("Record error: %v", err)
	}

	got, err := store.GetByMessageID("msg-1")
	if err != nil {
		t.Fatalf("GetByMessageID error: %v", err)
	}
	if got == nil {
		t.Fatal("expected entry, got nil")
	}
	if got.Intent != "work" {
		t.Errorf("Intent = %q", got.Intent)
	}
	if got.Confidence != 0.87 {
		t.Errorf("Confidence = %v", got.Confidence)
	}
	if len(got.Labels) != 3 || got.Labels[2] != "AI:Work" {
		t.Errorf("Labels = %v", got.Labels)
	}
	if got.ProcessedAt.IsZero() {
		t.Error("ProcessedAt should be set automatically")
	}
}

func TestStore_GetByMessageID_NotFound(t *testing.T) {
	store := openTestStore(t)

	got, err := store.GetByMessageID("missing")
	if err != nil {
		t.Fatalf("GetByMessageID error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown message, got %+v", got)
	}
}

func TestStore_Record_Upsert(t *testing.T) {
	store := openTestStore(t)

	if err := store.Record(&Entry{MessageID: "msg-1", Intent: "spam", Status: "classified"}); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if err := store.Record(&Entry{MessageID: "msg-1", Intent: "promotional", Status: "classified"}); err != nil {
		t.Fatalf("Record (update) error: %v", err)
	}

	got, err := store.GetByMessageID("msg-1")
	if err != nil {
		t.Fatalf("GetByMessageID error: %v", err)
	}
	if got.Intent != "promotional" {
		t.Errorf("Intent = %q, expected updated value", got.Intent)
	}

	entries, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected a single row after upsert, got %d", len(entries))
	}
}

func TestStore_IsProcessed(t *testing.T) {
	store := openTestStore(t)

	processed, err := store.IsProcessed("msg-1")
	if err != nil {
		t.Fatalf("IsProcessed error: %v", err)
	}
	if processed {
		t.Error("unknown message should not be processed")
	}

	if err := store.Record(&Entry{MessageID: "msg-1", Status: "classified"}); err != nil {
		t.Fatalf("Record error: %v", err)
	}

	processed, err = store.IsProcessed("msg-1")
	if err != nil {
		t.Fatalf("IsProcessed error: %v", err)
	}
	if !processed {
		t.Error("recorded message should be processed")
	}
}

func TestStore_Recent_Ordering(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"oldest", "middle", "newest"} {
		entry := &Entry{
			MessageID:   id,
			Status:      "classified",
			ProcessedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := store.Record(entry); err != nil {
			t.Fatalf("Record error: %v", err)
		}
	}

	entries, err := store.Recent(2)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].MessageID != "newest" || entries[1].MessageID != "middle" {
		t.Errorf("unexpected order: %q, %q", entries[0].MessageID, entries[1].MessageID)
	}
}

func TestStore_GetStats(t *testing.T) {
	store := openTestStore(t)

	fixtures := []Entry{
		{MessageID: "a", Status: "classified"},
		{MessageID: "b", Status: "classified"},
		{MessageID: "c", Status: "failed", ErrorMsg: "labels unavailable"},
		{MessageID: "d", Status: "skipped"},
	}
	for i := range fixtures {
		if err := store.Record(&fixtures[i]); err != nil {
			t.Fatalf("Record error: %v", err)
		}
	}

	stats, err := store.GetStats()
	if err != nil {
		t.Fatalf("GetStats error: %v", err)
	}
	if stats.Total != 4 {
		t.Errorf("Total = %d", stats.Total)
	}
	if stats.Classified != 2 || stats.Failed != 1 || stats.Skipped != 1 {
		t.Errorf("Stats = %+v", stats)
	}
}

func TestStore_IsHealthy(t *testing.T) {
	store := openTestStore(t)
	if err := store.IsHealthy(); err != nil {
		t.Errorf("IsHealthy error: %v", err)
	}
}
