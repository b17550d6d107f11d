package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/tristendillon/stager/core/logger"
)

var ErrInvalidRepo = errors.New("repository must be written as owner/name")

type (
	// RepoRef names one remotely hosted script repository.
	RepoRef struct {
		Owner string
		Name  string
	}

	// Result is the outcome of fetching one repository.
	Result struct {
		Repo   RepoRef
		Dir    string
		Commit string
		Cloned bool
		Err    error
	}

	// GitFetcher clones or pulls script repositories into the raw-storage root.
	GitFetcher struct {
		baseURL string
		rawDir  string
		auth    transport.AuthMethod
	}
)

// ParseRepoRef accepts "owner/name" or "users/owner/name".
func ParseRepoRef(s string) (RepoRef, error) {
	s = strings.Trim(strings.TrimPrefix(strings.TrimSpace(s), "users/"), "/")
	owner, name, ok := strings.Cut(s, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return RepoRef{}, fmt.Errorf("%w: %q", ErrInvalidRepo, s)
	}
	return RepoRef{Owner: owner, Name: name}, nil
}

func (r RepoRef) String() string {
	return r.Owner + "/" + r.Name
}

func NewGitFetcher(baseURL, rawDir string) *GitFetcher {
	f := &GitFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		rawDir:  rawDir,
	}
	f.auth = authFromEnv()
	return f
}

// RemoteURL is where a repository is cloned from.
func (f *GitFetcher) RemoteURL(repo RepoRef) string {
	return fmt.Sprintf("%s/users/%s/%s", f.baseURL, repo.Owner, repo.Name)
}

// RepoDir is the working copy location; only the repository name is used,
// matching how imports are resolved.
func (f *GitFetcher) RepoDir(repo RepoRef) string {
	return filepath.Join(f.rawDir, repo.Name)
}

// Fetch clones repo, or pulls it when a working copy already exists.
func (f *GitFetcher) Fetch(ctx context.Context, repo RepoRef) Result {
	result := Result{Repo: repo, Dir: f.RepoDir(repo)}

	r, err := git.PlainOpen(result.Dir)
	switch {
	case errors.Is(err, git.ErrRepositoryNotExists):
		if _, statErr := os.Stat(result.Dir); statErr == nil {
			result.Err = fmt.Errorf("%s exists but is not a git working copy", result.Dir)
			return result
		}
		r, err = f.clone(ctx, repo, result.Dir)
		if err != nil {
			result.Err = err
			return result
		}
		result.Cloned = true
	case err != nil:
		result.Err = fmt.Errorf("failed to open %s: %w", result.Dir, err)
		return result
	default:
		if err := f.pull(ctx, r); err != nil {
			result.Err = err
			return result
		}
	}

	head, err := r.Head()
	if err != nil {
		result.Err = fmt.Errorf("failed to get HEAD: %w", err)
		return result
	}
	result.Commit = head.Hash().String()
	return result
}

// FetchAll fetches every repository and keeps going past failures.
func (f *GitFetcher) FetchAll(ctx context.Context, repos []RepoRef) []Result {
	results := make([]Result, 0, len(repos))
	for _, repo := range repos {
		if ctx.Err() != nil {
			results = append(results, Result{Repo: repo, Dir: f.RepoDir(repo), Err: ctx.Err()})
			continue
		}

		res := f.Fetch(ctx, repo)
		if res.Err != nil {
			logger.Warn("Failed to fetch %s: %v", repo, res.Err)
		} else {
			logger.Info("Fetched %s at %s", repo, shortHash(res.Commit))
		}
		results = append(results, res)
	}
	return results
}

func (f *GitFetcher) clone(ctx context.Context, repo RepoRef, dest string) (*git.Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create parent directory: %w", err)
	}

	logger.Debug("Cloning %s into %s", f.RemoteURL(repo), dest)
	r, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
		URL:  f.RemoteURL(repo),
		Auth: f.auth,
	})
	if err != nil {
		// Clean up failed attempt (best-effort)
		_ = os.RemoveAll(dest)
		return nil, fmt.Errorf("failed to clone %s: %w", repo, err)
	}
	return r, nil
}

func (f *GitFetcher) pull(ctx context.Context, r *git.Repository) error {
	wt, err := r.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}

	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName: "origin",
		Auth:       f.auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to pull: %w", err)
	}
	return nil
}

// authFromEnv picks HTTP basic auth from the usual token variables. No auth
// is fine for public repositories.
func authFromEnv() transport.AuthMethod {
	if token := os.Getenv("STAGER_GIT_TOKEN"); token != "" {
		user := os.Getenv("STAGER_GIT_USER")
		if user == "" {
			user = "git"
		}
		return &http.BasicAuth{Username: user, Password: token}
	}

	if token := os.Getenv("GIT_TOKEN"); token != "" {
		return &http.BasicAuth{Username: "git", Password: token}
	}

	return nil
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
