package dependency

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/tristendillon/stager/core/logger"
	"github.com/tristendillon/stager/core/models"
)

var ErrUnsafeDestination = errors.New("refusing to clear destination")

type CopiedFile struct {
	Source string
	Target string
	Bytes  int64
}

type SkippedFile struct {
	Source string
	Err    error
}

type MaterializeResult struct {
	Copied  []CopiedFile
	Skipped []SkippedFile
}

func (mr *MaterializeResult) BytesCopied() int64 {
	var total int64
	for _, c := range mr.Copied {
		total += c.Bytes
	}
	return total
}

// Materializer copies a closure into a freshly cleared staging tree laid out
// as <dest>/<repo>/<internal path><ext>.
type Materializer struct {
	destRoot  string
	ext       string
	protected []string
}

// NewMaterializer builds a materializer for destRoot. Paths in protected
// (typically the raw-storage root) must never be wiped.
func NewMaterializer(destRoot, ext string, protected ...string) *Materializer {
	return &Materializer{
		destRoot:  destRoot,
		ext:       ext,
		protected: protected,
	}
}

func (m *Materializer) DestRoot() string { return m.destRoot }

// TargetPath is where a closure file lands under the destination root.
func (m *Materializer) TargetPath(file models.ResolvedFile) string {
	name := filepath.FromSlash(file.Internal)
	if !models.HasSuffix(name, m.ext) {
		name += m.ext
	}
	return filepath.Join(m.destRoot, file.Repo, name)
}

// Materialize wipes the destination, recreates it and copies every closure
// file into it. Failing to prepare the destination is fatal; a failed copy
// only skips that file.
func (m *Materializer) Materialize(closure *models.Closure) (*MaterializeResult, error) {
	if err := m.reset(); err != nil {
		return nil, err
	}

	result := &MaterializeResult{}
	targets := make(map[string]string)

	for _, file := range closure.Files {
		target := m.TargetPath(file)
		if prev, dup := targets[target]; dup && prev != file.Path {
			err := fmt.Errorf("%s and %s both map to %s", prev, file.Path, target)
			logger.Warn("Skipping %s: %v", file.Path, err)
			result.Skipped = append(result.Skipped, SkippedFile{Source: file.Path, Err: err})
			continue
		}
		targets[target] = file.Path

		n, err := copyFile(file.Path, target)
		if err != nil {
			logger.Warn("Failed to copy %s: %v", file.Path, err)
			result.Skipped = append(result.Skipped, SkippedFile{Source: file.Path, Err: err})
			continue
		}

		logger.Debug("Copied %s -> %s (%s)", file.Path, target, humanize.Bytes(uint64(n)))
		result.Copied = append(result.Copied, CopiedFile{Source: file.Path, Target: target, Bytes: n})
	}

	return result, nil
}

func (m *Materializer) reset() error {
	if m.destRoot == "" {
		return fmt.Errorf("%w: empty destination", ErrUnsafeDestination)
	}

	dest, err := filepath.Abs(m.destRoot)
	if err != nil {
		return fmt.Errorf("failed to resolve destination %s: %w", m.destRoot, err)
	}

	for _, p := range m.protected {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		if abs == dest || strings.HasPrefix(abs, dest+string(filepath.Separator)) {
			return fmt.Errorf("%w: %s contains %s", ErrUnsafeDestination, dest, abs)
		}
		if strings.HasPrefix(dest, abs+string(filepath.Separator)) {
			return fmt.Errorf("%w: %s is inside %s", ErrUnsafeDestination, dest, abs)
		}
	}
	if dest == filepath.Dir(dest) {
		return fmt.Errorf("%w: %s is a filesystem root", ErrUnsafeDestination, dest)
	}

	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("failed to clear destination %s: %w", dest, err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("failed to create destination %s: %w", dest, err)
	}
	return nil
}

func copyFile(sourcePath, targetPath string) (int64, error) {
	src, err := os.Open(sourcePath)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create target directory: %w", err)
	}

	dst, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		// A partial file would still show up in the module map.
		_ = os.Remove(targetPath)
		return n, fmt.Errorf("failed to write %s: %w", targetPath, err)
	}
	return n, nil
}
