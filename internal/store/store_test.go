package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingRecordReturnsEmpty(t *testing.T) {
	s := New(t.TempDir())
	record, err := s.Load("movie", 42)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(record) != 0 {
		t.Fatalf("expected empty record, got %v", record)
	}
}

func TestUpdateMergesOverPriorState(t *testing.T) {
	s := New(t.TempDir())

	if err := s.Update("movie", 42, map[string]string{
		KeySettingsHash: "h1",
		KeyThemeURL:     "https://youtu.be/abc",
	}); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if err := s.Update("movie", 42, map[string]string{
		KeySettingsHash: "h2",
		KeyPosterURL:    "/poster.jpg",
	}); err != nil {
		t.Fatalf("second update: %v", err)
	}

	record, err := s.Load("movie", 42)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if record[KeySettingsHash] != "h2" {
		t.Errorf("settings hash not overwritten: %q", record[KeySettingsHash])
	}
	if record[KeyThemeURL] != "https://youtu.be/abc" {
		t.Errorf("theme url lost on merge: %q", record[KeyThemeURL])
	}
	if record[KeyPosterURL] != "/poster.jpg" {
		t.Errorf("poster url not merged: %q", record[KeyPosterURL])
	}
}

// Legacy keys written by older releases must be pruned on save.
func TestUpdatePrunesLegacyKeys(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	path := filepath.Join(dir, "data", "Movies", "7.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	old, _ := json.Marshal(map[string]string{
		"downloaded_timestamp": "12345",
		KeyThemeURL:            "https://youtu.be/old",
	})
	if err := os.WriteFile(path, old, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := s.Update("movie", 7, map[string]string{KeySettingsHash: "h"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	record, err := s.Load("movie", 7)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := record["downloaded_timestamp"]; ok {
		t.Error("legacy key survived update")
	}
	if record[KeyThemeURL] != "https://youtu.be/old" {
		t.Errorf("non-legacy key lost: %q", record[KeyThemeURL])
	}
}

func TestRecordsSeparatedByItemType(t *testing.T) {
	s := New(t.TempDir())

	if err := s.Update("movie", 1, map[string]string{KeyThemeURL: "m"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Update("show", 1, map[string]string{KeyThemeURL: "s"}); err != nil {
		t.Fatal(err)
	}

	movie, _ := s.Load("movie", 1)
	show, _ := s.Load("show", 1)
	if movie[KeyThemeURL] != "m" || show[KeyThemeURL] != "s" {
		t.Errorf("records collided: movie=%v show=%v", movie, show)
	}
}

func TestUnknownItemTypeRejected(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Update("album", 1, map[string]string{}); err == nil {
		t.Fatal("expected error for unknown item type")
	}
}

func TestRemove(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Update("movie", 9, map[string]string{KeyThemeURL: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove("movie", 9); err != nil {
		t.Fatalf("remove: %v", err)
	}
	record, err := s.Load("movie", 9)
	if err != nil {
		t.Fatalf("load after remove: %v", err)
	}
	if len(record) != 0 {
		t.Fatalf("record survived removal: %v", record)
	}
	// Removing an absent record is not an error.
	if err := s.Remove("movie", 9); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}

func TestMigrationFlags(t *testing.T) {
	s := New(t.TempDir())

	done, err := s.CompletedMigration("split_records")
	if err != nil {
		t.Fatalf("completed: %v", err)
	}
	if done {
		t.Fatal("migration reported complete before running")
	}

	if err := s.MarkMigrationComplete("split_records"); err != nil {
		t.Fatalf("mark: %v", err)
	}

	done, err = s.CompletedMigration("split_records")
	if err != nil {
		t.Fatalf("completed: %v", err)
	}
	if !done {
		t.Fatal("migration not recorded")
	}

	other, _ := s.CompletedMigration("other")
	if other {
		t.Fatal("unrelated migration reported complete")
	}
}
