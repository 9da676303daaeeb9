package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherMarksStaleOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pass0.slang")
	if err := os.WriteFile(path, []byte("#pragma stage vertex\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	w, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := w.Track(path); err != nil {
		t.Fatalf("Track: %v", err)
	}
	if w.Stale(path) {
		t.Fatal("freshly tracked file should not start stale")
	}

	if err := os.WriteFile(path, []byte("#pragma stage fragment\n"), 0o644); err != nil {
		t.Fatalf("rewrite file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if w.Stale(path) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected file write to mark the tracked path stale")
}

func TestWatcherIgnoresUntrackedPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "untracked.slang")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	w, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if w.Stale(path) {
		t.Fatal("an untracked path should never report stale")
	}
}

func TestTrackMissingFileIsNotAnError(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := w.Track(filepath.Join(t.TempDir(), "missing.slang")); err != nil {
		t.Fatalf("Track on a not-yet-written path should not error, got %v", err)
	}
}
