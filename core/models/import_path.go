package models

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ImportPrefix is the namespace every script import string starts with.
const ImportPrefix = "users/"

var ErrInvalidImport = errors.New("invalid import path")

// ImportPath is a parsed "users/<owner>/<repo>[:<internal>]" import string.
type ImportPath struct {
	Raw      string // Literal as found in source: "users/alice/repoA:util/helpers"
	Owner    string // "alice"
	Repo     string // Last segment of the repo segment: "repoA"
	Internal string // Path inside the repository, "" for the repository root entry
}

// ParseImportPath splits a raw import string into owner, repository and
// internal path. The repository name is the last segment of everything
// between the prefix and the first colon.
func ParseImportPath(raw string) (ImportPath, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(raw), ImportPrefix)
	if !ok {
		return ImportPath{}, fmt.Errorf("%w: %q does not start with %q", ErrInvalidImport, raw, ImportPrefix)
	}

	repoSegment, internal, _ := strings.Cut(rest, ":")
	repoSegment = strings.Trim(repoSegment, "/")

	segments := strings.Split(repoSegment, "/")
	if len(segments) < 2 || segments[0] == "" || segments[len(segments)-1] == "" {
		return ImportPath{}, fmt.Errorf("%w: %q needs an owner and a repository", ErrInvalidImport, raw)
	}

	return ImportPath{
		Raw:      raw,
		Owner:    segments[0],
		Repo:     segments[len(segments)-1],
		Internal: strings.Trim(internal, "/"),
	}, nil
}

// Key renders the fully qualified logical import path for the given
// namespace owner with the canonical extension stripped.
func (ip ImportPath) Key(owner, ext string) string {
	return LogicalPath(owner, ip.Repo, ip.Internal, ext)
}

func (ip ImportPath) String() string {
	return ip.Raw
}

// LogicalPath builds "users/<owner>/<repo>:<internal>" with ext trimmed from
// the internal path.
func LogicalPath(owner, repo, internal, ext string) string {
	internal = strings.TrimSuffix(path.Clean("/"+internal)[1:], ext)
	return fmt.Sprintf("%s%s/%s:%s", ImportPrefix, owner, repo, internal)
}
