package prune

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yegorkir/respimg/internal/common"
	"github.com/yegorkir/respimg/internal/report"
)

// Recorder receives one event per deletion.
type Recorder interface {
	Send(report.Event)
}

// Reconciler deletes everything under an output root that is not an
// expected path or an ancestor directory of one.
type Reconciler struct {
	FS       common.FS
	Log      logrus.FieldLogger
	Recorder Recorder
}

// Reconcile removes orphaned directories first, then re-lists and removes
// orphaned files, so files inside a deleted directory are not counted
// twice. Individual delete failures are logged and skipped.
func (r *Reconciler) Reconcile(ctx context.Context, outputDir string, expected map[string]struct{}) error {
	dirs, err := r.FS.ListDirs(outputDir)
	if err != nil {
		return fmt.Errorf("list output dirs: %w", err)
	}
	for _, dir := range OrphanDirs(dirs, expected) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.FS.RemoveAll(dir); err != nil {
			r.Log.WithField("dir", dir).WithError(err).Error("failed to delete orphaned directory")
			continue
		}
		r.Log.WithField("dir", dir).Debug("deleted orphaned directory")
		r.record(report.Event{Kind: report.DirDeleted, Path: dir})
	}

	files, err := r.FS.ListFiles(outputDir)
	if err != nil {
		return fmt.Errorf("list output files: %w", err)
	}
	for _, file := range OrphanFiles(files, expected) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.FS.Remove(file); err != nil {
			r.Log.WithField("file", file).WithError(err).Error("failed to delete orphaned image")
			continue
		}
		r.Log.WithField("file", file).Debug("deleted orphaned image")
		r.record(report.Event{Kind: report.ImageDeleted, Path: file})
	}
	return nil
}

func (r *Reconciler) record(e report.Event) {
	if r.Recorder != nil {
		r.Recorder.Send(e)
	}
}

// OrphanDirs returns the dirs that contain no expected path. A dir inside
// an already returned one is left out.
func OrphanDirs(dirs []string, expected map[string]struct{}) []string {
	keep := ancestors(expected)
	var orphans []string
	for _, dir := range dirs {
		dir = filepath.Clean(dir)
		if _, ok := keep[dir]; ok {
			continue
		}
		if withinAny(orphans, dir) {
			continue
		}
		orphans = append(orphans, dir)
	}
	return orphans
}

func withinAny(dirs []string, p string) bool {
	for _, dir := range dirs {
		if inside(dir, p) {
			return true
		}
	}
	return false
}

// OrphanFiles returns the files that are not expected.
func OrphanFiles(files []string, expected map[string]struct{}) []string {
	var orphans []string
	for _, file := range files {
		if _, ok := expected[filepath.Clean(file)]; !ok {
			orphans = append(orphans, file)
		}
	}
	return orphans
}

func ancestors(paths map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for p := range paths {
		for dir := filepath.Dir(p); ; dir = filepath.Dir(dir) {
			if _, seen := out[dir]; seen {
				break
			}
			out[dir] = struct{}{}
			if filepath.Dir(dir) == dir {
				break
			}
		}
	}
	return out
}

func inside(dir, p string) bool {
	return strings.HasPrefix(p, dir+string(filepath.Separator))
}
