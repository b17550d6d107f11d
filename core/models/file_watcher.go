package models

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher holds the fsnotify state and the callbacks driven by a watch loop.
type FileWatcher struct {
	Watcher       *fsnotify.Watcher
	RootDir       string
	ExcludePaths  []string
	Debounce      time.Duration
	DebounceTimer *time.Timer
	Mutex         sync.Mutex
	OnStart       func() error
	OnChange      func(changed []string) error
	OnClose       func() error

	pending map[string]struct{}
}

func NewFileWatcher(rootDir string, excludePaths []string, debounce time.Duration) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &FileWatcher{
		Watcher:      watcher,
		RootDir:      rootDir,
		ExcludePaths: append([]string{".git"}, excludePaths...),
		Debounce:     debounce,
		OnStart:      func() error { return fmt.Errorf("OnStart not set") },
		OnChange:     func([]string) error { return fmt.Errorf("OnChange not set") },
		OnClose:      func() error { return nil },
		pending:      make(map[string]struct{}),
	}, nil
}

func (fw *FileWatcher) AddOnStartFunc(onStart func() error) {
	fw.OnStart = onStart
}

func (fw *FileWatcher) AddOnChangeFunc(onChange func(changed []string) error) {
	fw.OnChange = onChange
}

func (fw *FileWatcher) AddOnCloseFunc(onClose func() error) {
	fw.OnClose = onClose
}

// MarkPending records a changed path; caller must hold Mutex.
func (fw *FileWatcher) MarkPending(path string) {
	fw.pending[path] = struct{}{}
}

// TakePending drains the changed paths; caller must hold Mutex.
func (fw *FileWatcher) TakePending() []string {
	changed := make([]string, 0, len(fw.pending))
	for p := range fw.pending {
		changed = append(changed, p)
	}
	fw.pending = make(map[string]struct{})
	return changed
}
