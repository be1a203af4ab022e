package common

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FS is the set of filesystem primitives planning, generation and pruning
// depend on.
type FS interface {
	ListFiles(root string) ([]string, error)
	ListDirs(root string) ([]string, error)
	Stat(path string) (fs.FileInfo, error)
	MkdirAll(path string) error
	Remove(path string) error
	RemoveAll(path string) error
	CopyFile(src, dest string) error
	Chtimes(path string, mtime time.Time) error
}

// OS implements FS on the local filesystem.
type OS struct{}

var _ FS = OS{}

// ListFiles returns every regular file under root, recursively, sorted.
// A missing root yields an empty list.
func (OS) ListFiles(root string) ([]string, error) {
	return walk(root, func(d fs.DirEntry) bool { return !d.IsDir() })
}

// ListDirs returns every directory under root (root excluded), sorted.
func (OS) ListDirs(root string) ([]string, error) {
	return walk(root, func(d fs.DirEntry) bool { return d.IsDir() })
}

func walk(root string, keep func(fs.DirEntry) bool) ([]string, error) {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if keep(d) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func (OS) Stat(path string) (fs.FileInfo, error) { return os.Stat(path) }

func (OS) MkdirAll(path string) error { return os.MkdirAll(path, 0o755) }

func (OS) Remove(path string) error { return os.Remove(path) }

func (OS) RemoveAll(path string) error { return os.RemoveAll(path) }

func (OS) Chtimes(path string, mtime time.Time) error { return os.Chtimes(path, mtime, mtime) }

// CopyFile copies src over dest, creating dest's directory if needed.
func (OS) CopyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	tmp := dest + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dest)
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// IsImage reports whether path has an extension the encoders can both read
// and write.
func IsImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsJPEG reports whether path has a JPEG extension.
func IsJPEG(path string) bool {
	lower := strings.ToLower(filepath.Ext(path))
	return lower == ".jpg" || lower == ".jpeg"
}

// CollectImages lists image files under root.
func CollectImages(fsys FS, root string) ([]string, error) {
	info, err := fsys.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input %s is not a directory", root)
	}
	files, err := fsys.ListFiles(root)
	if err != nil {
		return nil, err
	}
	images := files[:0]
	for _, f := range files {
		if IsImage(f) {
			images = append(images, f)
		}
	}
	return images, nil
}
