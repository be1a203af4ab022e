package common

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemFS is an in-memory FS. Paths are cleaned with filepath.Clean; only
// sizes and mtimes are stored, never contents.
type MemFS struct {
	mu    sync.Mutex
	nodes map[string]*memNode
}

type memNode struct {
	dir     bool
	size    int64
	modTime time.Time
}

var _ FS = (*MemFS)(nil)

func NewMemFS() *MemFS {
	return &MemFS{nodes: map[string]*memNode{}}
}

// WriteFile creates or replaces a file, creating its parents.
func (m *MemFS) WriteFile(name string, size int64, mtime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = filepath.Clean(name)
	m.mkdirAll(filepath.Dir(name), mtime)
	m.nodes[name] = &memNode{size: size, modTime: mtime}
}

// Paths returns every file path, sorted.
func (m *MemFS) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for p, n := range m.nodes {
		if !n.dir {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func (m *MemFS) ListFiles(root string) ([]string, error) {
	return m.list(root, false)
}

func (m *MemFS) ListDirs(root string) ([]string, error) {
	return m.list(root, true)
}

func (m *MemFS) list(root string, dirs bool) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	root = filepath.Clean(root)
	if n, ok := m.nodes[root]; ok && !n.dir {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	var out []string
	for p, n := range m.nodes {
		if n.dir == dirs && within(root, p) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemFS) Stat(name string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = filepath.Clean(name)
	n, ok := m.nodes[name]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return memInfo{name: path.Base(filepath.ToSlash(name)), node: *n}, nil
}

func (m *MemFS) MkdirAll(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mkdirAll(filepath.Clean(name), time.Now())
}

func (m *MemFS) mkdirAll(name string, mtime time.Time) error {
	for p := name; ; p = filepath.Dir(p) {
		if n, ok := m.nodes[p]; ok {
			if !n.dir {
				return fmt.Errorf("%s is not a directory", p)
			}
		} else {
			m.nodes[p] = &memNode{dir: true, modTime: mtime}
		}
		if parent := filepath.Dir(p); parent == p {
			return nil
		}
	}
}

func (m *MemFS) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = filepath.Clean(name)
	if _, ok := m.nodes[name]; !ok {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
	}
	for p := range m.nodes {
		if within(name, p) {
			return &fs.PathError{Op: "remove", Path: name, Err: fmt.Errorf("directory not empty")}
		}
	}
	delete(m.nodes, name)
	return nil
}

func (m *MemFS) RemoveAll(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = filepath.Clean(name)
	for p := range m.nodes {
		if p == name || within(name, p) {
			delete(m.nodes, p)
		}
	}
	return nil
}

func (m *MemFS) CopyFile(src, dest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[filepath.Clean(src)]
	if !ok || n.dir {
		return &fs.PathError{Op: "copy", Path: src, Err: fs.ErrNotExist}
	}
	dest = filepath.Clean(dest)
	m.mkdirAll(filepath.Dir(dest), time.Now())
	m.nodes[dest] = &memNode{size: n.size, modTime: time.Now()}
	return nil
}

func (m *MemFS) Chtimes(name string, mtime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[filepath.Clean(name)]
	if !ok {
		return &fs.PathError{Op: "chtimes", Path: name, Err: fs.ErrNotExist}
	}
	n.modTime = mtime
	return nil
}

// within reports whether p lies strictly below dir.
func within(dir, p string) bool {
	return strings.HasPrefix(p, strings.TrimSuffix(dir, string(filepath.Separator))+string(filepath.Separator))
}

type memInfo struct {
	name string
	node memNode
}

func (i memInfo) Name() string       { return i.name }
func (i memInfo) Size() int64        { return i.node.size }
func (i memInfo) ModTime() time.Time { return i.node.modTime }
func (i memInfo) IsDir() bool        { return i.node.dir }
func (i memInfo) Sys() any           { return nil }

func (i memInfo) Mode() fs.FileMode {
	if i.node.dir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}
