package models

import (
	"sort"
	"time"
)

// ModuleMap maps fully qualified logical import paths to files relative to
// the staging root. It is rebuilt from scratch on every run.
type ModuleMap struct {
	GeneratedAt time.Time         `json:"generated_at" yaml:"generated_at"`
	Owner       string            `json:"owner" yaml:"owner"`
	Modules     map[string]string `json:"modules" yaml:"modules"`
}

func NewModuleMap(owner string, generatedAt time.Time) *ModuleMap {
	return &ModuleMap{
		GeneratedAt: generatedAt.UTC(),
		Owner:       owner,
		Modules:     make(map[string]string),
	}
}

// Keys returns the logical import paths in sorted order.
func (m *ModuleMap) Keys() []string {
	keys := make([]string, 0, len(m.Modules))
	for k := range m.Modules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Summary is what a stage run reports once it finishes.
type Summary struct {
	Entry          string
	FilesFound     int
	FilesCopied    int
	FilesSkipped   int
	BytesCopied    int64
	Repos          []string
	MissingImports int
	MissingRepos   []string
	ReadErrors     int
	MapEntries     int
	MapPath        string
	DryRun         bool
	Duration       time.Duration
}
