package dependency

import (
	"errors"
	"fmt"
	"os"

	"github.com/tristendillon/stager/core/graph"
	"github.com/tristendillon/stager/core/logger"
	"github.com/tristendillon/stager/core/models"
	"github.com/tristendillon/stager/core/scanner"
)

var ErrEntryNotFound = errors.New("entry file does not exist")

// ImportResolver is the part of resolver.Resolver the builder needs.
type ImportResolver interface {
	Resolve(raw string) models.Resolution
}

// ScanFunc extracts import strings from one file.
type ScanFunc func(path string) ([]string, error)

type ClosureBuilder struct {
	resolver ImportResolver
	scan     ScanFunc
	graph    *graph.DependencyGraph
}

func NewClosureBuilder(resolver ImportResolver) *ClosureBuilder {
	return &ClosureBuilder{
		resolver: resolver,
		scan:     scanner.ScanFile,
		graph:    graph.NewDependencyGraph(),
	}
}

// WithScanner replaces the file scanner, mostly for tests.
func (cb *ClosureBuilder) WithScanner(scan ScanFunc) *ClosureBuilder {
	cb.scan = scan
	return cb
}

// Graph is the import graph of the most recent Build.
func (cb *ClosureBuilder) Graph() *graph.DependencyGraph {
	return cb.graph
}

// Build walks the import graph breadth-first from entry. Every absolute path
// enters the queue at most once, so cycles terminate. Unresolvable imports
// and unreadable files are recorded on the closure and never abort the walk.
func (cb *ClosureBuilder) Build(entry models.ResolvedFile) (*models.Closure, error) {
	info, err := os.Stat(entry.Path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, entry.Path)
	}

	cb.graph.Clear()
	closure := &models.Closure{Entry: entry}
	visited := make(models.VisitedSet)

	entry.Depth = 0
	queue := []models.ResolvedFile{entry}
	visited.Add(entry.Path)
	cb.graph.AddNode(entry.Path)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		closure.Files = append(closure.Files, current)
		logger.Debug("Visiting %s:%s (depth %d)", current.Repo, current.Internal, current.Depth)

		imports, err := cb.scan(current.Path)
		if err != nil {
			logger.Warn("Skipping imports of %s: %v", current.Path, err)
			closure.ReadErrors = append(closure.ReadErrors, models.Resolution{
				Status: models.ReadError,
				Import: current.Import,
				From:   current.Path,
				Err:    err,
			})
			continue
		}

		for _, raw := range imports {
			res := cb.resolver.Resolve(raw)
			res.From = current.Path

			if !res.OK() {
				cb.recordMissing(closure, res)
				continue
			}

			target := *res.File
			closure.Edges = append(closure.Edges, models.Edge{From: current.Path, To: target.Path, Import: raw})
			cb.graph.AddEdge(current.Path, target.Path)

			if !visited.Add(target.Path) {
				continue
			}

			target.Depth = current.Depth + 1
			queue = append(queue, target)
		}
	}

	logger.Debug("Closure of %s: %d files, %d missing imports", entry.Path, len(closure.Files), len(closure.Missing))
	return closure, nil
}

func (cb *ClosureBuilder) recordMissing(closure *models.Closure, res models.Resolution) {
	closure.Missing = append(closure.Missing, res)
	if res.Status == models.RepoMissing {
		logger.Info("Import %s in %s points to a repository that was not fetched", res.Import, res.From)
		return
	}
	logger.Warn("Unresolved import %s in %s: %v", res.Import, res.From, res.Err)
}
