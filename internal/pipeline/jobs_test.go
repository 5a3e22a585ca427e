package pipeline

import (
	"testing"
	"time"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestContentHashHex_DifferentInputs(t *testing.T) {
	h1 := ContentHashHex([]byte("aaa"))
	h2 := ContentHashHex([]byte("bbb"))
	if h1 == h2 {
		t.Error("expected different hashes for different inputs")
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{
		ID:        "test-1",
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusParsing, "parsing document"},
		{StatusAssembling, "building chapter"},
		{StatusStoring, "writing json"},
		{StatusLoading, "loading database"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("parse: bad markup")
	job.AddError("store: disk full")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "parse: bad markup" {
		t.Errorf("expected first error %q, got %q", "parse: bad markup", snap.Progress.Errors[0])
	}
}

func TestJob_AddWarning(t *testing.T) {
	job := &Job{ID: "warn-test", UpdatedAt: time.Now()}
	job.AddWarning("unbalanced formatting markers")

	snap := job.Snapshot()
	if len(snap.Progress.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(snap.Progress.Warnings))
	}
}

func TestJob_SetCounts(t *testing.T) {
	job := &Job{ID: "counts-test", UpdatedAt: time.Now()}
	job.SetCounts(5, 120, 900)

	snap := job.Snapshot()
	if snap.Progress.Pages != 5 || snap.Progress.Rubrics != 120 || snap.Progress.Remedies != 900 {
		t.Errorf("unexpected counts: %+v", snap.Progress)
	}
}

func TestJob_FileData(t *testing.T) {
	job := &Job{ID: "data-test"}
	data := []byte("file content here")
	job.SetFileData(data)
	got := job.FileData()
	if string(got) != string(data) {
		t.Errorf("expected file data %q, got %q", data, got)
	}
}

func TestJob_Document(t *testing.T) {
	job := &Job{ID: "doc-test"}
	if job.Document() != nil {
		t.Error("expected nil document before assembly")
	}
	job.SetDocument([]byte(`{"title":"x"}`))
	if string(job.Document()) != `{"title":"x"}` {
		t.Errorf("unexpected document %q", job.Document())
	}
}

func TestJob_SnapshotSlicesNotNil(t *testing.T) {
	// Snapshot should always return non-nil error/warning slices.
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if snap.Progress.Warnings == nil {
		t.Error("expected non-nil warnings slice in snapshot")
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", UpdatedAt: time.Now()}
	store.Put(expired)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	// Add a fresh job.
	fresh := &Job{ID: "new", UpdatedAt: time.Now()}
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

// Cleanup runs on a ticker while workers update jobs; the race detector
// catches any unlocked read of the last-touched time.
func TestJobStore_CleanupConcurrentWithUpdates(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "busy", UpdatedAt: time.Now()}
	store.Put(job)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			job.SetStatus(StatusParsing, "parse")
		}
	}()
	for i := 0; i < 100; i++ {
		store.Cleanup()
	}
	<-done

	if store.Get("busy") == nil {
		t.Error("expected active job to survive cleanup")
	}
}

func TestGenerateULID_Properties(t *testing.T) {
	a := generateULID()
	b := generateULID()
	if len(a) != 26 || len(b) != 26 {
		t.Fatalf("expected 26-character IDs, got %q and %q", a, b)
	}
	if a == b {
		t.Error("expected distinct IDs")
	}
	if a > b {
		t.Errorf("expected lexicographic ordering by creation time: %q then %q", a, b)
	}
}
