package mediafs

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveRejectsTraversal(t *testing.T) {
	root, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := root.Resolve("originals/a.mp4"); err != nil {
		t.Errorf("valid path rejected: %v", err)
	}
	for _, rel := range []string{"../outside", "originals/../../etc/passwd", ".."} {
		if _, err := root.Resolve(rel); err == nil {
			t.Errorf("Resolve(%q) succeeded, want traversal error", rel)
		}
	}
}

func TestSaveAndExists(t *testing.T) {
	root, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	n, err := root.Save("originals/x.pdf", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if n != 5 {
		t.Errorf("Save() wrote %d bytes, want 5", n)
	}

	ok, err := root.Exists("originals/x.pdf")
	if err != nil || !ok {
		t.Errorf("Exists() = %v, %v; want true, nil", ok, err)
	}
	ok, err = root.Exists("originals/missing.pdf")
	if err != nil || ok {
		t.Errorf("Exists(missing) = %v, %v; want false, nil", ok, err)
	}
}

func TestContains(t *testing.T) {
	dir := t.TempDir()
	root, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if !root.Contains(filepath.Join(dir, "hls", "v")) {
		t.Error("Contains() = false for path under root")
	}
	if root.Contains(filepath.Dir(dir)) {
		t.Error("Contains() = true for parent of root")
	}
	if root.Contains(dir) {
		t.Error("Contains() = true for root itself")
	}
}
