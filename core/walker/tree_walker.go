package walker

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tristendillon/stager/core/logger"
)

// DiscoveredFile is a regular file found under a walked root.
type DiscoveredFile struct {
	Path    string // Absolute path
	RelPath string // Slash-separated path relative to the root
	Repo    string // First path segment
	Size    int64
}

type TreeWalker interface {
	Walk(root string) ([]DiscoveredFile, error)
}

// TreeWalkerImpl lists the files of a staging tree. Files directly under the
// root belong to no repository and are skipped, as are excluded names.
type TreeWalkerImpl struct {
	Exclude []string
}

func defaultExcludePaths() []string {
	return []string{".git", ".DS_Store"}
}

func NewTreeWalker(exclude ...string) *TreeWalkerImpl {
	return &TreeWalkerImpl{
		Exclude: append(defaultExcludePaths(), exclude...),
	}
}

func (w *TreeWalkerImpl) Walk(root string) ([]DiscoveredFile, error) {
	var discovered []DiscoveredFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}

		if w.excluded(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		relPath = filepath.ToSlash(relPath)
		repo, _, nested := strings.Cut(relPath, "/")
		if !nested {
			logger.Debug("Ignoring %s: not inside a repository folder", relPath)
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		discovered = append(discovered, DiscoveredFile{
			Path:    path,
			RelPath: relPath,
			Repo:    repo,
			Size:    info.Size(),
		})
		return nil
	})

	sort.Slice(discovered, func(i, j int) bool {
		return discovered[i].RelPath < discovered[j].RelPath
	})
	return discovered, err
}

func (w *TreeWalkerImpl) excluded(name string) bool {
	for _, ex := range w.Exclude {
		if name == ex {
			return true
		}
	}
	return false
}
