package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestListFilesAndDirs(t *testing.T) {
	root := t.TempDir()
	mkdir(t, root, "b", "nested")
	mkdir(t, root, "a")
	touch(t, filepath.Join(root, "b", "nested"), "z.jpg")
	touch(t, filepath.Join(root, "a"), "y.png")
	touch(t, root, "x.txt")

	files, err := OS{}.ListFiles(root)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	want := []string{
		filepath.Join(root, "a", "y.png"),
		filepath.Join(root, "b", "nested", "z.jpg"),
		filepath.Join(root, "x.txt"),
	}
	assertPaths(t, files, want)

	dirs, err := OS{}.ListDirs(root)
	if err != nil {
		t.Fatalf("ListDirs: %v", err)
	}
	assertPaths(t, dirs, []string{
		filepath.Join(root, "a"),
		filepath.Join(root, "b"),
		filepath.Join(root, "b", "nested"),
	})
}

func TestListFilesMissingRoot(t *testing.T) {
	files, err := OS{}.ListFiles(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("got %d files, want 0", len(files))
	}
}

func TestCollectImages(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "photo.JPG")
	touch(t, root, "icon.png")
	touch(t, root, "notes.md")
	touch(t, root, "anim.webp")

	images, err := CollectImages(OS{}, root)
	if err != nil {
		t.Fatalf("CollectImages: %v", err)
	}
	assertPaths(t, images, []string{
		filepath.Join(root, "icon.png"),
		filepath.Join(root, "photo.JPG"),
	})

	if _, err := CollectImages(OS{}, filepath.Join(root, "missing")); err == nil {
		t.Error("expected error for missing source dir")
	}
}

func TestCopyFileAndChtimes(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src.jpg")
	if err := os.WriteFile(src, []byte("pixels"), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(root, "deep", "dest.jpg")

	if err := (OS{}).CopyFile(src, dest); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "pixels" {
		t.Fatalf("copied content = %q, %v", data, err)
	}

	stamp := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := (OS{}).Chtimes(dest, stamp); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(stamp) {
		t.Errorf("mtime = %v, want %v", info.ModTime(), stamp)
	}
}

func TestEnsureOutputDir(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out", "responsive")
	if err := EnsureOutputDir(out); err != nil {
		t.Fatalf("EnsureOutputDir: %v", err)
	}
	if err := EnsureOutputDir(out); err != nil {
		t.Fatalf("EnsureOutputDir on existing dir: %v", err)
	}
	touch(t, root, "file")
	if err := EnsureOutputDir(filepath.Join(root, "file")); err == nil {
		t.Error("expected error when output path is a file")
	}
}

func mkdir(t *testing.T, parts ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(parts...), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte{}, 0o644); err != nil {
		t.Fatalf("touch %s: %v", path, err)
	}
}

func assertPaths(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] got %s, want %s", i, got[i], want[i])
		}
	}
}
