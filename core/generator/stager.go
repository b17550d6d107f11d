package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/tristendillon/stager/core/config"
	"github.com/tristendillon/stager/core/dependency"
	"github.com/tristendillon/stager/core/logger"
	"github.com/tristendillon/stager/core/models"
	"github.com/tristendillon/stager/core/modulemap"
	"github.com/tristendillon/stager/core/resolver"
)

// Stager runs closure, materialization and module map generation, strictly
// one after the other.
type Stager struct {
	cfg      *config.Config
	resolver *resolver.Resolver
	builder  *dependency.ClosureBuilder
	now      func() time.Time
}

// Result carries everything a stage run produced.
type Result struct {
	Closure     *models.Closure
	Materialize *dependency.MaterializeResult
	ModuleMap   *models.ModuleMap
	Cycles      [][]string
	Summary     models.Summary
}

func NewStager(cfg *config.Config) *Stager {
	res := resolver.New(cfg.RawDir, cfg.Extension, cfg.RootEntry)
	return &Stager{
		cfg:      cfg,
		resolver: res,
		builder:  dependency.NewClosureBuilder(res),
		now:      time.Now,
	}
}

// WithClock overrides the timestamp source for the module map.
func (s *Stager) WithClock(now func() time.Time) *Stager {
	s.now = now
	return s
}

// Closure computes the dependency closure of the configured entry without
// writing anything.
func (s *Stager) Closure() (*models.Closure, error) {
	entry, err := s.resolver.ResolveEntry(s.cfg.Entry.Repo, s.cfg.Entry.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid entry: %w", err)
	}

	closure, err := s.builder.Build(entry)
	if err != nil {
		return nil, err
	}
	return closure, nil
}

// SourceTrees lists the repositories available in raw storage.
func (s *Stager) SourceTrees() ([]models.SourceTree, error) {
	return s.resolver.SourceTrees()
}

// Cycles lists the import cycles seen by the last Closure call.
func (s *Stager) Cycles() [][]string {
	return s.builder.Graph().DetectCycles()
}

// AffectedBy returns closure files that transitively import path, as seen by
// the last Closure call.
func (s *Stager) AffectedBy(path string) []string {
	return s.builder.Graph().GetAffectedFiles(path)
}

// InClosure reports whether path was part of the last computed closure.
func (s *Stager) InClosure(path string) bool {
	return s.builder.Graph().HasNode(path)
}

// Run executes the whole pipeline. ctx is only checked between phases; a
// phase, once started, runs to completion.
func (s *Stager) Run(ctx context.Context, dryRun bool) (*Result, error) {
	start := time.Now()

	if err := s.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	closure, err := s.Closure()
	if err != nil {
		return nil, fmt.Errorf("failed to build closure: %w", err)
	}
	result := &Result{Closure: closure, Cycles: s.Cycles()}
	logger.Info("Resolved %d files across %d repositories", len(closure.Files), len(closure.Repos()))

	if dryRun {
		result.Summary = s.summarize(result, start, true)
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("stage cancelled before materialization: %w", err)
	}

	materializer := dependency.NewMaterializer(s.cfg.DestDir, s.cfg.Extension, s.cfg.RawDir)
	mat, err := materializer.Materialize(closure)
	if err != nil {
		return nil, fmt.Errorf("failed to materialize closure: %w", err)
	}
	result.Materialize = mat

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("stage cancelled before module map generation: %w", err)
	}

	mapPath := s.cfg.ModuleMapPath()
	mm, err := modulemap.Generate(s.cfg.DestDir, s.cfg.Owner, s.cfg.Extension, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to generate module map: %w", err)
	}
	if err := modulemap.Write(mm, mapPath, s.cfg.ModuleMap.Format); err != nil {
		return nil, err
	}
	result.ModuleMap = mm

	result.Summary = s.summarize(result, start, false)
	return result, nil
}

func (s *Stager) summarize(r *Result, start time.Time, dryRun bool) models.Summary {
	sum := models.Summary{
		Entry:          s.cfg.Entry.Repo + "/" + s.cfg.Entry.Path,
		FilesFound:     len(r.Closure.Files),
		Repos:          r.Closure.Repos(),
		MissingImports: len(r.Closure.Missing),
		MissingRepos:   r.Closure.MissingRepos(),
		ReadErrors:     len(r.Closure.ReadErrors),
		DryRun:         dryRun,
		Duration:       time.Since(start),
	}
	if r.Materialize != nil {
		sum.FilesCopied = len(r.Materialize.Copied)
		sum.FilesSkipped = len(r.Materialize.Skipped)
		sum.BytesCopied = r.Materialize.BytesCopied()
	}
	if r.ModuleMap != nil {
		sum.MapEntries = len(r.ModuleMap.Modules)
		sum.MapPath = s.cfg.ModuleMapPath()
	}
	return sum
}
