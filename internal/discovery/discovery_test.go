package discovery

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestFindFilesNaturalOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"seg_10.mpg", "seg_2.mpg", "seg_1.mpg", "notes.txt", ".hidden.mpg"} {
		touch(t, dir, name)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.mpg"), 0755); err != nil {
		t.Fatal(err)
	}

	result, err := FindFiles(dir, Video)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"seg_1.mpg", "seg_2.mpg", "seg_10.mpg"}
	if len(result.Files) != len(want) {
		t.Fatalf("got %v", result.Files)
	}
	for i, name := range want {
		if filepath.Base(result.Files[i]) != name {
			t.Errorf("file %d = %s, want %s", i, filepath.Base(result.Files[i]), name)
		}
	}
	if result.SkippedCount != 1 {
		t.Errorf("SkippedCount = %d, want 1", result.SkippedCount)
	}
}

func TestFindFilesErrors(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "readme.md")

	if _, err := FindFiles(dir, Audio); err == nil {
		t.Error("expected error when nothing matches")
	}
	if _, err := FindFiles(filepath.Join(dir, "missing"), nil); err == nil {
		t.Error("expected error for missing directory")
	}
	if _, err := FindFiles(filepath.Join(dir, "readme.md"), nil); err == nil {
		t.Error("expected error for a file path")
	}
}

func TestFindFilesNilMatcherTakesAll(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.wav")
	touch(t, dir, "b.txt")

	result, err := FindFilesWithLogging(dir, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Files) != 2 {
		t.Errorf("got %v", result.Files)
	}
}
