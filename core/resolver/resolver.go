package resolver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tristendillon/stager/core/logger"
	"github.com/tristendillon/stager/core/models"
)

var ErrPathEscapes = errors.New("import path escapes its repository")

// Resolver maps import strings onto files under the raw-storage root.
//
// Candidates are tried suffixed first, then extensionless. That order is a
// policy for trees that store scripts both ways; if both exist with different
// content the suffixed one wins and the resolution is flagged Ambiguous.
type Resolver struct {
	root      string
	ext       string
	rootEntry string
}

func New(root, ext, rootEntry string) *Resolver {
	return &Resolver{
		root:      root,
		ext:       ext,
		rootEntry: rootEntry,
	}
}

func (r *Resolver) Root() string { return r.root }

func (r *Resolver) Extension() string { return r.ext }

// Resolve turns one raw import string into a Resolution. It never returns
// an error: failures are carried in the Resolution status.
func (r *Resolver) Resolve(raw string) models.Resolution {
	res := models.Resolution{Import: raw}

	ip, err := models.ParseImportPath(raw)
	if err != nil {
		res.Status = models.NotFound
		res.Err = err
		return res
	}

	repoDir := filepath.Join(r.root, ip.Repo)
	if !isDir(repoDir) {
		res.Status = models.RepoMissing
		res.Err = fmt.Errorf("repository %s is not present under %s", ip.Repo, r.root)
		return res
	}

	internal := ip.Internal
	if internal == "" {
		internal = r.rootEntry
	}

	rel, err := cleanInternal(internal)
	if err != nil {
		res.Status = models.NotFound
		res.Err = fmt.Errorf("%w: %s", err, raw)
		return res
	}

	res.Candidates = r.candidates(repoDir, rel)
	for i, candidate := range res.Candidates {
		if !isFile(candidate) {
			continue
		}

		if i == 0 && len(res.Candidates) > 1 && isFile(res.Candidates[1]) {
			res.Ambiguous = true
			logger.Debug("Both %s and %s exist, using the suffixed file", res.Candidates[0], res.Candidates[1])
		}

		res.Status = models.Resolved
		res.File = &models.ResolvedFile{
			Path:     candidate,
			Repo:     ip.Repo,
			Internal: filepath.ToSlash(rel),
			Import:   raw,
		}
		return res
	}

	res.Status = models.NotFound
	res.Err = fmt.Errorf("no file for %s (tried %s)", raw, strings.Join(res.Candidates, ", "))
	return res
}

// ResolveEntry resolves the entry script given as a repository and a path
// relative to it. The entry must exist; unlike imports it is never guessed.
func (r *Resolver) ResolveEntry(repo, path string) (models.ResolvedFile, error) {
	rel, err := cleanInternal(filepath.ToSlash(path))
	if err != nil {
		return models.ResolvedFile{}, fmt.Errorf("%w: %s", err, path)
	}

	abs := filepath.Join(r.root, repo, rel)
	return models.ResolvedFile{
		Path:     abs,
		Repo:     repo,
		Internal: filepath.ToSlash(rel),
	}, nil
}

// SourceTrees lists the repositories present under the raw-storage root,
// sorted by name. Hidden directories are skipped.
func (r *Resolver) SourceTrees() ([]models.SourceTree, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.root, err)
	}

	var trees []models.SourceTree
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		trees = append(trees, models.SourceTree{Name: e.Name(), Dir: filepath.Join(r.root, e.Name())})
	}
	return trees, nil
}

func (r *Resolver) candidates(repoDir, rel string) []string {
	base := filepath.Join(repoDir, rel)
	if r.ext == "" {
		return []string{base}
	}
	return []string{base + r.ext, base}
}

// cleanInternal normalizes an internal path and rejects anything that would
// leave the repository directory.
func cleanInternal(internal string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(internal))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", ErrPathEscapes
	}
	return cleaned, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
