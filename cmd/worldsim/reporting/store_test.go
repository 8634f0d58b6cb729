package reporting

import (
	"path/filepath"
	"testing"
)

func TestHistoryStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := OpenHistoryStore(path)
	if err != nil {
		t.Fatalf("OpenHistoryStore failed: %v", err)
	}
	defer store.Close()

	history := sampleHistory()
	if err := store.SaveRun("run-1", 42, 2, history); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	runs, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("run count = %d, want 1", len(runs))
	}
	if runs[0].ID != "run-1" || runs[0].Seed != 42 || runs[0].Steps != 2 {
		t.Errorf("unexpected run row: %+v", runs[0])
	}
}

func TestSaveRunRejectsDuplicateID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := OpenHistoryStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	history := sampleHistory()
	if err := store.SaveRun("run-1", 1, 2, history); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveRun("run-1", 1, 2, history); err == nil {
		t.Error("duplicate run id should fail the primary key")
	}
}
