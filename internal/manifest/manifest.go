package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yegorkir/respimg/internal/common"
	"github.com/yegorkir/respimg/internal/variant"
)

var widthSuffix = regexp.MustCompile(`-\d{1,4}w$`)

type Clone struct {
	ClonePath string `json:"clonePath"`
	CloneSize string `json:"cloneSize"`
}

type Entry struct {
	Original string  `json:"original"`
	Clones   []Clone `json:"clones"`
}

type Options struct {
	SourceDir string
	OutputDir string
	// Root is stripped from every path written; paths outside it stay
	// absolute.
	Root string
}

// Build maps every readable source image to the files in OutputDir that
// share its relative path once the extension and a trailing -<width>w are
// dropped.
func Build(fsys common.FS, read variant.DimensionReader, opts Options) ([]Entry, error) {
	sources, err := common.CollectImages(fsys, opts.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	outputs, err := fsys.ListFiles(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("list outputs: %w", err)
	}

	clones := make(map[string][]string)
	for _, out := range outputs {
		key := widthSuffix.ReplaceAllString(stem(opts.OutputDir, out), "")
		clones[key] = append(clones[key], out)
	}

	entries := []Entry{}
	for _, src := range sources {
		if _, err := read(src); err != nil {
			continue
		}
		entry := Entry{Original: webPath(opts.Root, src), Clones: []Clone{}}
		for _, c := range clones[stem(opts.SourceDir, src)] {
			p := webPath(opts.Root, c)
			entry.Clones = append(entry.Clones, Clone{ClonePath: p, CloneSize: cloneSize(p)})
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Write stores entries as indented JSON.
func Write(path string, entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func stem(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	return strings.TrimSuffix(rel, filepath.Ext(rel))
}

func webPath(root, path string) string {
	if root == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return "/" + filepath.ToSlash(rel)
}

func cloneSize(p string) string {
	p = strings.TrimSuffix(p, filepath.Ext(p))
	return p[strings.LastIndex(p, "-")+1:]
}
