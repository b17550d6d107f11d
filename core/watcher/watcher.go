package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tristendillon/stager/core/cache"
	"github.com/tristendillon/stager/core/logger"
	"github.com/tristendillon/stager/core/models"
)

type FileWatcher interface {
	Watch(ctx context.Context) error
	Close() error
}

// FileWatcherImpl watches the raw-storage root and calls OnChange, debounced,
// whenever a script's content actually changes or a file appears or vanishes.
type FileWatcherImpl struct {
	FileWatcher *models.FileWatcher
	contents    *cache.ContentCache
}

func NewFileWatcher(rootDir string, excludePaths []string, debounce time.Duration) (*FileWatcherImpl, error) {
	fw, err := models.NewFileWatcher(rootDir, excludePaths, debounce)
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &FileWatcherImpl{
		FileWatcher: fw,
		contents:    cache.NewContentCache(),
	}, nil
}

func (fw *FileWatcherImpl) OnStart(fn func() error) { fw.FileWatcher.AddOnStartFunc(fn) }

func (fw *FileWatcherImpl) OnChange(fn func(changed []string) error) {
	fw.FileWatcher.AddOnChangeFunc(fn)
}

func (fw *FileWatcherImpl) OnClose(fn func() error) { fw.FileWatcher.AddOnCloseFunc(fn) }

// Watch blocks until ctx is done or the underlying watcher fails.
func (fw *FileWatcherImpl) Watch(ctx context.Context) error {
	if err := fw.addWatchersRecursively(fw.FileWatcher.RootDir); err != nil {
		return fmt.Errorf("failed to add watchers: %w", err)
	}

	if err := fw.FileWatcher.OnStart(); err != nil {
		logger.Error("Watcher.OnStart failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.FileWatcher.Watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			fw.handleEvent(event)

		case err, ok := <-fw.FileWatcher.Watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			logger.Error("Watcher error: %v", err)
		}
	}
}

func (fw *FileWatcherImpl) handleEvent(event fsnotify.Event) {
	if fw.shouldExcludePath(event.Name) || (event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write)) {
		return
	}

	logger.Debug("File event: %s %s", event.Op, event.Name)

	if event.Has(fsnotify.Create) {
		if stat, err := os.Stat(event.Name); err == nil && stat.IsDir() {
			if err := fw.addWatchersRecursively(event.Name); err != nil {
				logger.Warn("Cannot watch new directory %s: %v", event.Name, err)
			}
			fw.debounceChange(event.Name)
			return
		}
	}

	changed, err := fw.contents.UpdateContent(event.Name)
	if err != nil {
		logger.Debug("Treating %s as changed: %v", event.Name, err)
		changed = true
	}
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		changed = true
	}
	if !changed {
		logger.Debug("Ignoring %s: content unchanged", event.Name)
		return
	}

	fw.debounceChange(event.Name)
}

func (fw *FileWatcherImpl) debounceChange(path string) {
	fw.FileWatcher.Mutex.Lock()
	defer fw.FileWatcher.Mutex.Unlock()

	fw.FileWatcher.MarkPending(path)

	if fw.FileWatcher.DebounceTimer != nil {
		fw.FileWatcher.DebounceTimer.Stop()
	}

	fw.FileWatcher.DebounceTimer = time.AfterFunc(fw.FileWatcher.Debounce, func() {
		fw.FileWatcher.Mutex.Lock()
		changed := fw.FileWatcher.TakePending()
		fw.FileWatcher.Mutex.Unlock()

		logger.Debug("%d file changes detected, restaging...", len(changed))
		if err := fw.FileWatcher.OnChange(changed); err != nil {
			logger.Error("Watcher.OnChange failed: %v", err)
		}
	})
}

func (fw *FileWatcherImpl) Close() error {
	fw.FileWatcher.Mutex.Lock()
	if fw.FileWatcher.DebounceTimer != nil {
		fw.FileWatcher.DebounceTimer.Stop()
	}
	fw.FileWatcher.Mutex.Unlock()

	if err := fw.FileWatcher.OnClose(); err != nil {
		logger.Error("Watcher.OnClose failed: %v", err)
	}

	return fw.FileWatcher.Watcher.Close()
}

func (fw *FileWatcherImpl) shouldExcludePath(path string) bool {
	relPath, err := filepath.Rel(fw.FileWatcher.RootDir, path)
	if err != nil {
		return false
	}

	relPath = filepath.Clean(relPath)

	for _, excludePath := range fw.FileWatcher.ExcludePaths {
		excludePath = filepath.Clean(excludePath)

		if relPath == excludePath {
			return true
		}
		if strings.HasPrefix(relPath, excludePath+string(filepath.Separator)) {
			return true
		}
		if filepath.Base(relPath) == excludePath {
			return true
		}
	}

	return false
}

func (fw *FileWatcherImpl) addWatchersRecursively(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() {
			fw.contents.Prime([]string{path})
			return nil
		}

		if fw.shouldExcludePath(path) {
			logger.Debug("Excluding directory: %s", path)
			return filepath.SkipDir
		}

		logger.Debug("Adding watcher for: %s", path)
		if err := fw.FileWatcher.Watcher.Add(path); err != nil {
			return fmt.Errorf("failed to add watcher for %s: %w", path, err)
		}

		return nil
	})
}
