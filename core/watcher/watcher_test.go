package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tristendillon/stager/core/testutil"
	"github.com/tristendillon/stager/core/watcher"
)

func startWatcher(t *testing.T, root string) chan []string {
	t.Helper()

	fw, err := watcher.NewFileWatcher(root, []string{"ignored"}, 50*time.Millisecond)
	require.NoError(t, err)

	started := make(chan struct{})
	changes := make(chan []string, 8)
	fw.OnStart(func() error {
		close(started)
		return nil
	})
	fw.OnChange(func(changed []string) error {
		changes <- changed
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fw.Watch(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = fw.Close()
	})

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not start")
	}
	return changes
}

func TestWatch_ReportsContentChange(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"repoA/main.js": "one"})
	changes := startWatcher(t, root)

	target := filepath.Join(root, "repoA", "main.js")
	require.NoError(t, os.WriteFile(target, []byte("two"), 0o644))

	select {
	case changed := <-changes:
		assert.Contains(t, changed, target)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatch_NewDirectoryIsWatched(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	changes := startWatcher(t, root)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "repoB"), 0o755))
	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("directory creation not reported")
	}

	// Let the new directory's watch register before writing into it.
	time.Sleep(100 * time.Millisecond)
	target := filepath.Join(root, "repoB", "lib.js")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case changed := <-changes:
			if contains(changed, target) {
				return
			}
		case <-deadline:
			t.Fatal("write in new directory not reported")
		}
	}
}

func TestWatch_IgnoresExcludedPaths(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"ignored/x.js":  "x",
		"repoA/main.js": "one",
	})
	changes := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "ignored", "x.js"), []byte("y"), 0o644))

	select {
	case changed := <-changes:
		t.Fatalf("unexpected change: %v", changed)
	case <-time.After(300 * time.Millisecond):
	}
}

func contains(items []string, item string) bool {
	for _, i := range items {
		if i == item {
			return true
		}
	}
	return false
}
