package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// makeHistoryBundle creates a real directory so the loader's existence
// check passes, and returns its path.
func makeHistoryBundle(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHistoryServiceMissingFile(t *testing.T) {
	dir := t.TempDir()
	svc := newHistoryServiceAt(filepath.Join(dir, "history.json"))

	paths, needsRewrite, err := svc.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("Load() = %v; want empty", paths)
	}
	if needsRewrite {
		t.Error("needsRewrite = true for a missing file; want false")
	}
}

func TestHistoryServiceSaveLoad(t *testing.T) {
	dir := t.TempDir()
	svc := newHistoryServiceAt(filepath.Join(dir, "history.json"))

	want := []string{
		makeHistoryBundle(t, dir, "Foo.app"),
		makeHistoryBundle(t, dir, "Bar.app"),
	}
	if err := svc.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, needsRewrite, err := svc.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if needsRewrite {
		t.Error("needsRewrite = true after a clean round trip; want false")
	}
	if len(got) != len(want) {
		t.Fatalf("Load() = %v; want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Load()[%d] = %q; want %q", i, got[i], want[i])
		}
	}

	// Atomic save must not leave its temp file behind.
	if _, err := os.Stat(filepath.Join(dir, "history.json.tmp")); !os.IsNotExist(err) {
		t.Error("Save left history.json.tmp behind")
	}
}

func TestHistoryServiceCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")

	if err := os.WriteFile(path, []byte("{bad json"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := newHistoryServiceAt(path)
	paths, _, err := svc.Load()
	if err == nil {
		t.Fatal("Load() succeeded on corrupt JSON")
	}
	if len(paths) != 0 {
		t.Errorf("Load() = %v on corrupt JSON; want empty", paths)
	}

	// The corrupt file stays on disk for the user to inspect.
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if string(data) != "{bad json" {
		t.Errorf("corrupt file was rewritten: %q", data)
	}
}

func TestHistoryServicePrunesStaleEntries(t *testing.T) {
	dir := t.TempDir()
	svc := newHistoryServiceAt(filepath.Join(dir, "history.json"))

	live := makeHistoryBundle(t, dir, "Live.app")
	vanished := filepath.Join(dir, "Vanished.app") // never created
	notBundle := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(notBundle, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := svc.Save([]string{live, vanished, notBundle}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	paths, needsRewrite, err := svc.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !needsRewrite {
		t.Error("needsRewrite = false after pruning; want true")
	}
	if len(paths) != 1 || paths[0] != live {
		t.Errorf("Load() = %v; want [%s]", paths, live)
	}
}

func TestHistoryServiceNoHome(t *testing.T) {
	svc := newHistoryServiceAt("")

	if err := svc.Save([]string{"/Applications/Foo.app"}); !errors.Is(err, ErrNoHome) {
		t.Errorf("Save() = %v; want ErrNoHome", err)
	}
	if _, _, err := svc.Load(); !errors.Is(err, ErrNoHome) {
		t.Errorf("Load() = %v; want ErrNoHome", err)
	}
}

func TestHistoryServiceSaveEmptyList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")
	svc := newHistoryServiceAt(path)

	if err := svc.Save(nil); err != nil {
		t.Fatalf("Save(nil): %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("empty save wrote %q; want []", data)
	}

	paths, needsRewrite, loadErr := svc.Load()
	if loadErr != nil || len(paths) != 0 || needsRewrite {
		t.Errorf("Load() = (%v, %v, %v); want (empty, false, nil)", paths, needsRewrite, loadErr)
	}
}
