package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ariacut/internal/logging"
)

func mkEditionDir(t *testing.T, root, name string, size int) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Join(dir, "audio"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if size > 0 {
		if err := os.WriteFile(filepath.Join(dir, "audio", "full.mp3"), make([]byte, size), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return dir
}

func TestListDirectoriesSkipsNonEditions(t *testing.T) {
	root := t.TempDir()
	mkEditionDir(t, root, "3", 100)
	mkEditionDir(t, root, "tmp", 10)
	if err := os.WriteFile(filepath.Join(root, "7"), []byte("file"), 0o644); err != nil {
		t.Fatal(err)
	}

	dirs, err := ListDirectories(root)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}
	if len(dirs) != 1 || dirs[0].EditionID != 3 || dirs[0].Size != 100 {
		t.Fatalf("unexpected dirs: %+v", dirs)
	}
}

func TestListDirectoriesMissingRoot(t *testing.T) {
	for _, root := range []string{"", "  ", "/nonexistent/path/12345"} {
		dirs, err := ListDirectories(root)
		if err != nil || len(dirs) != 0 {
			t.Errorf("root %q: dirs=%v err=%v", root, dirs, err)
		}
	}
}

func TestCleanOrphanedKeepsActiveEditions(t *testing.T) {
	root := t.TempDir()
	keep := mkEditionDir(t, root, "1", 10)
	orphan := mkEditionDir(t, root, "2", 10)
	other := mkEditionDir(t, root, "notes", 0)

	result := CleanOrphaned(context.Background(), root, map[int64]struct{}{1: {}}, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != orphan {
		t.Fatalf("expected %s removed, got %v", orphan, result.Removed)
	}
	for _, dir := range []string{keep, other} {
		if _, err := os.Stat(dir); err != nil {
			t.Fatalf("%s should remain: %v", dir, err)
		}
	}
}
