package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yegorkir/respimg/internal/logging"
)

func TestRunTriggersOnImageChanges(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	w.Debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) error {
			calls <- struct{}{}
			return nil
		})
	}()

	write := func(path string) {
		t.Helper()
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	wait := func(what string) {
		t.Helper()
		select {
		case <-calls:
		case <-time.After(5 * time.Second):
			t.Fatalf("no regeneration after %s", what)
		}
	}

	write(filepath.Join(root, "a.jpg"))
	write(filepath.Join(root, "b.png"))
	wait("writing images")

	sub := filepath.Join(root, "album")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	wait("creating a directory")

	time.Sleep(100 * time.Millisecond)
	write(filepath.Join(sub, "c.jpg"))
	wait("writing into a new directory")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRelevant(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	cases := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: filepath.Join(root, "a.jpg"), Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: filepath.Join(root, "notes.txt"), Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: filepath.Join(root, ".a.jpg.swp"), Op: fsnotify.Create}, false},
		{fsnotify.Event{Name: filepath.Join(root, "gone"), Op: fsnotify.Remove}, true},
		{fsnotify.Event{Name: filepath.Join(root, "a.jpg"), Op: fsnotify.Chmod}, false},
	}
	for _, tc := range cases {
		if got := w.relevant(tc.event); got != tc.want {
			t.Errorf("relevant(%v) = %v, want %v", tc.event, got, tc.want)
		}
	}
}
