package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/yegorkir/respimg/internal/common"
)

const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a source tree and reports quiet periods after image
// changes.
type Watcher struct {
	Debounce time.Duration

	root string
	fsw  *fsnotify.Watcher
	log  logrus.FieldLogger
}

// New watches root and every directory below it.
func New(root string, log logrus.FieldLogger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	w := &Watcher{Debounce: DefaultDebounce, root: root, fsw: fsw, log: log}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch folder %s: %w", dir, err)
	}
	dirs, err := common.OS{}.ListDirs(dir)
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if err := w.fsw.Add(d); err != nil {
			return fmt.Errorf("failed to watch folder %s: %w", d, err)
		}
	}
	w.log.WithFields(logrus.Fields{"dir": dir, "subdirs": len(dirs)}).Debug("watching")
	return nil
}

// Run calls onChange once per quiet period following relevant events,
// until ctx is done. Events that arrive while onChange runs start a new
// period. An onChange error is logged and watching continues.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context) error) error {
	timer := time.NewTimer(w.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.log.WithFields(logrus.Fields{"file": event.Name, "op": event.Op.String()}).Debug("source changed")
			timer.Reset(w.Debounce)

		case <-timer.C:
			if err := onChange(ctx); err != nil {
				w.log.WithError(err).Error("regeneration failed")
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("watcher error")
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if base := filepath.Base(event.Name); base != "" && base[0] == '.' {
		return false
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.log.WithError(err).Warn("cannot watch new directory")
			}
			return true
		}
	}
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		// A removed directory has no extension to check.
		return common.IsImage(event.Name) || filepath.Ext(event.Name) == ""
	}
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
		return common.IsImage(event.Name)
	}
	return false
}

func (w *Watcher) Close() error {
	return w.fsw.Close()
}
