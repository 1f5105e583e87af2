package detect

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func mkOutput(t *testing.T, root, name string, mod time.Time) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	file := filepath.Join(dir, "app.js")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Chtimes(file, mod, mod); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	return dir
}

func TestOutputDirSingle(t *testing.T) {
	root := t.TempDir()
	want := mkOutput(t, root, "dist", time.Now())

	got, err := OutputDir(root)
	if err != nil {
		t.Fatalf("OutputDir: %v", err)
	}
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestOutputDirNewestWins(t *testing.T) {
	root := t.TempDir()
	mkOutput(t, root, "dist", time.Now().Add(-time.Hour))
	want := mkOutput(t, root, "build", time.Now())

	got, err := OutputDir(root)
	if err != nil {
		t.Fatalf("OutputDir: %v", err)
	}
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestOutputDirSkipsEmpty(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "dist"), 0o755); err != nil {
		t.Fatal(err)
	}
	want := mkOutput(t, root, "out", time.Now())

	got, err := OutputDir(root)
	if err != nil {
		t.Fatalf("OutputDir: %v", err)
	}
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestOutputDirIgnoresFiles(t *testing.T) {
	root := t.TempDir()
	// A plain file named like a candidate must not match.
	if err := os.WriteFile(filepath.Join(root, "dist"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := OutputDir(root); !errors.Is(err, ErrNoOutputDir) {
		t.Errorf("err = %v, want ErrNoOutputDir", err)
	}
}

func TestOutputDirNone(t *testing.T) {
	if _, err := OutputDir(t.TempDir()); !errors.Is(err, ErrNoOutputDir) {
		t.Errorf("err = %v, want ErrNoOutputDir", err)
	}
}
