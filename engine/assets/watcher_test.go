package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReportsShaderWrites(t *testing.T) {
	dir := t.TempDir()

	changes := make(chan string, 16)
	watcher, err := NewShaderWatcher(func(path string) { changes <- path })
	if err != nil {
		t.Fatal(err)
	}
	defer watcher.Close()

	if err := watcher.Watch(dir); err != nil {
		t.Fatal(err)
	}

	// A non-shader file must not fire the callback; the shader source after it
	// must, which also proves the first write was filtered out.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	source := filepath.Join(dir, "demo.vert")
	if err := os.WriteFile(source, []byte("#version 450\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-changes:
		if path != source {
			t.Errorf("change reported for %s, want %s", path, source)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported for shader source write")
	}
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	watcher, err := NewShaderWatcher(func(string) {})
	if err != nil {
		t.Fatal(err)
	}
	if err := watcher.Close(); err != nil {
		t.Fatal(err)
	}
	if err := watcher.Close(); err != nil {
		t.Fatal(err)
	}
	if err := watcher.Watch(t.TempDir()); err == nil {
		t.Error("expected error when watching after close")
	}
}
