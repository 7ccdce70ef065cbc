package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dhcgn/inbox-triage/annotate"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirStreamsSortedTextFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "Subject: second\nbody b")
	writeFile(t, dir, "a.txt", "\ufeffSubject: first\nbody a")
	writeFile(t, dir, "C.TXT", "body c")
	writeFile(t, dir, "notes.md", "ignored")
	if err := os.Mkdir(filepath.Join(dir, "nested.txt"), 0o755); err != nil {
		t.Fatal(err)
	}

	src, err := NewDir(dir, nil)
	if err != nil {
		t.Fatalf("NewDir() error = %v", err)
	}
	envelopes, err := Collect(context.Background(), src)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	wantIDs := []string{"C.TXT", "a.txt", "b.txt"}
	if len(envelopes) != len(wantIDs) {
		t.Fatalf("got %d envelopes, want %d", len(envelopes), len(wantIDs))
	}
	for i, id := range wantIDs {
		if envelopes[i].Blob.ID != id {
			t.Errorf("envelope %d id = %q, want %q", i, envelopes[i].Blob.ID, id)
		}
		if envelopes[i].Err != nil {
			t.Errorf("envelope %d err = %v", i, envelopes[i].Err)
		}
	}
	if got := envelopes[1].Blob.Lines[0]; got != "Subject: first" {
		t.Errorf("byte order mark not stripped: %q", got)
	}
}

func TestDirSkipsUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1.txt", "Subject: one\nfirst")
	writeFile(t, dir, "2.txt", "Subject: two\nsecond")
	writeFile(t, dir, "4.txt", "Subject: four\nfourth")
	if err := os.Symlink(filepath.Join(dir, "missing"), filepath.Join(dir, "3.txt")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	src, err := NewDir(dir, nil)
	if err != nil {
		t.Fatalf("NewDir() error = %v", err)
	}
	envelopes, err := Collect(context.Background(), src)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(envelopes) != 4 {
		t.Fatalf("got %d envelopes, want 4", len(envelopes))
	}
	if !errors.Is(envelopes[2].Err, ErrUnreadable) {
		t.Errorf("envelope 3 err = %v, want ErrUnreadable", envelopes[2].Err)
	}

	res := annotate.Batch(envelopes, annotate.Options{})
	if len(res.Records) != 3 {
		t.Fatalf("got %d records, want 3", len(res.Records))
	}
	if len(res.Skipped) != 1 || res.Skipped[0].ID != "3.txt" {
		t.Errorf("unexpected skips: %+v", res.Skipped)
	}
}

func TestNewDirRejectsFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "x")
	if _, err := NewDir(filepath.Join(dir, "a.txt"), nil); err == nil {
		t.Error("expected error for a file path")
	}
	if _, err := NewDir("", nil); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestDirStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "x")

	src, err := NewDir(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Collect(ctx, src); !errors.Is(err, context.Canceled) {
		t.Errorf("Collect() error = %v, want context.Canceled", err)
	}
}
