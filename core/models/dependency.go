package models

import (
	"sort"
	"strings"
)

// ResolutionStatus classifies the outcome of resolving one import string.
type ResolutionStatus int

const (
	Resolved ResolutionStatus = iota
	NotFound
	RepoMissing
	ReadError
)

func (s ResolutionStatus) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case NotFound:
		return "not found"
	case RepoMissing:
		return "repository missing"
	case ReadError:
		return "read error"
	default:
		return "unknown"
	}
}

// SourceTree is one checked-out repository under the raw-storage root.
type SourceTree struct {
	Name string
	Dir  string
}

// ResolvedFile is a local script file reached during traversal.
type ResolvedFile struct {
	Path     string // Absolute path on disk
	Repo     string // Source tree name
	Internal string // Path inside the source tree as it was imported
	Import   string // Raw import that first reached this file, "" for the entry
	Depth    int    // BFS distance from the entry
}

// Resolution is the explicit result of resolving one import string.
type Resolution struct {
	Status     ResolutionStatus
	Import     string
	From       string // Absolute path of the importing file
	File       *ResolvedFile
	Candidates []string
	Ambiguous  bool // Both the suffixed and extensionless candidates exist
	Err        error
}

func (r Resolution) OK() bool {
	return r.Status == Resolved && r.File != nil
}

// VisitedSet records absolute paths that entered the traversal queue.
type VisitedSet map[string]struct{}

// Add marks path visited and reports whether it was new.
func (v VisitedSet) Add(path string) bool {
	if _, seen := v[path]; seen {
		return false
	}
	v[path] = struct{}{}
	return true
}

func (v VisitedSet) Has(path string) bool {
	_, seen := v[path]
	return seen
}

// Edge is one "From imports To" relation discovered while scanning.
type Edge struct {
	From   string
	To     string
	Import string
}

// Closure is every file reachable from one entry, in BFS discovery order.
type Closure struct {
	Entry      ResolvedFile
	Files      []ResolvedFile
	Missing    []Resolution
	ReadErrors []Resolution
	Edges      []Edge
}

// Repos returns the sorted set of source trees the closure touches.
func (c *Closure) Repos() []string {
	seen := make(map[string]struct{})
	for _, f := range c.Files {
		seen[f.Repo] = struct{}{}
	}

	repos := make([]string, 0, len(seen))
	for repo := range seen {
		repos = append(repos, repo)
	}
	sort.Strings(repos)
	return repos
}

// MissingRepos returns the sorted set of repositories that were imported but
// are not present in raw storage.
func (c *Closure) MissingRepos() []string {
	seen := make(map[string]struct{})
	for _, m := range c.Missing {
		if m.Status != RepoMissing {
			continue
		}
		if ip, err := ParseImportPath(m.Import); err == nil {
			seen[ip.Repo] = struct{}{}
		}
	}

	repos := make([]string, 0, len(seen))
	for repo := range seen {
		repos = append(repos, repo)
	}
	sort.Strings(repos)
	return repos
}

// Contains reports whether the closure holds the file at the absolute path.
func (c *Closure) Contains(path string) bool {
	for _, f := range c.Files {
		if f.Path == path {
			return true
		}
	}
	return false
}

// HasSuffix reports whether name already carries ext.
func HasSuffix(name, ext string) bool {
	return ext != "" && strings.HasSuffix(name, ext)
}
