package configsrc

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcher_DebouncesChangesToConfigDocuments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello-config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("plugin: rest\n"), 0o644))

	w, err := NewWatcher([]string{dir}, nil)
	require.NoError(t, err)
	defer w.Close()

	changed := make(chan struct{}, 10)
	w.Start(func() { changed <- struct{}{} })

	require.NoError(t, os.WriteFile(path, []byte("plugin: rest\ncontentType: text/plain\n"), 0o644))

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config change notification")
	}
}

func TestWatcher_IgnoresNonConfigFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello-config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("plugin: rest\n"), 0o644))

	w, err := NewWatcher([]string{dir}, nil)
	require.NoError(t, err)
	defer w.Close()

	changed := make(chan struct{}, 10)
	w.Start(func() { changed <- struct{}{} })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "response.txt"), []byte("hello"), 0o644))

	select {
	case <-changed:
		t.Fatal("unexpected change notification for a non-config file")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcher_ToleratesMissingRoot(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "does-not-exist")

	w, err := NewWatcher([]string{missing}, nil)
	require.NoError(t, err)
	defer w.Close()
}
