package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func fsEvent(name string) fsnotify.Event {
	return fsnotify.Event{Name: name, Op: fsnotify.Write}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rules.yaml", "- id: A\n")

	w, err := NewWatcher(dir, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan int, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func(c *Catalog, err error) {
			if err != nil {
				results <- -1
				return
			}
			results <- c.Len()
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "rules.yaml"), []byte("- id: A\n- id: B\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case n := <-results:
		if n != 2 {
			t.Errorf("reloaded catalog has %d rules, want 2", n)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Watch() did not return after cancel")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rules.yaml", "- id: A\n")

	w, err := NewWatcher(dir, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	if w.relevant(fsEvent(filepath.Join(dir, "README.md"))) {
		t.Error("non-YAML file considered relevant")
	}
	if w.relevant(fsEvent(filepath.Join(dir, ".swap.yaml"))) {
		t.Error("hidden file considered relevant")
	}
	if !w.relevant(fsEvent(filepath.Join(dir, "more.yml"))) {
		t.Error("YAML file not considered relevant")
	}
	_ = w.Close()
}

func TestWatcher_CloseTwice(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := w.Watch(context.Background(), func(*Catalog, error) {}); err == nil {
		t.Error("Watch() on closed watcher should fail")
	}
}
