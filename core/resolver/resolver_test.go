package resolver_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tristendillon/stager/core/models"
	"github.com/tristendillon/stager/core/resolver"
	"github.com/tristendillon/stager/core/testutil"
)

func newResolver(t *testing.T, files map[string]string) (*resolver.Resolver, string) {
	t.Helper()

	root := t.TempDir()
	testutil.WriteTree(t, root, files)
	return resolver.New(root, ".js", "index"), root
}

func TestResolve_SuffixedCandidate(t *testing.T) {
	t.Parallel()

	r, root := newResolver(t, map[string]string{"repoA/util/helpers.js": "x"})

	res := r.Resolve("users/alice/repoA:util/helpers")

	require.True(t, res.OK())
	assert.Equal(t, models.Resolved, res.Status)
	assert.Equal(t, filepath.Join(root, "repoA", "util", "helpers.js"), res.File.Path)
	assert.Equal(t, "repoA", res.File.Repo)
	assert.Equal(t, "util/helpers", res.File.Internal)
	assert.Equal(t, "users/alice/repoA:util/helpers", res.File.Import)
	assert.False(t, res.Ambiguous)
}

func TestResolve_ExtensionlessCandidate(t *testing.T) {
	t.Parallel()

	r, root := newResolver(t, map[string]string{"repoB/lib": "x"})

	res := r.Resolve("users/alice/repoB:lib")

	require.True(t, res.OK())
	assert.Equal(t, filepath.Join(root, "repoB", "lib"), res.File.Path)
}

func TestResolve_ImportAlreadySuffixed(t *testing.T) {
	t.Parallel()

	r, root := newResolver(t, map[string]string{"repoB/lib.js": "x"})

	res := r.Resolve("users/alice/repoB:lib.js")

	require.True(t, res.OK())
	assert.Equal(t, filepath.Join(root, "repoB", "lib.js"), res.File.Path)
}

func TestResolve_BothCandidatesPreferSuffixed(t *testing.T) {
	t.Parallel()

	r, root := newResolver(t, map[string]string{
		"repoB/lib.js": "suffixed",
		"repoB/lib":    "bare",
	})

	res := r.Resolve("users/alice/repoB:lib")

	require.True(t, res.OK())
	assert.Equal(t, filepath.Join(root, "repoB", "lib.js"), res.File.Path)
	assert.True(t, res.Ambiguous)
}

func TestResolve_DirectoryIsNotACandidate(t *testing.T) {
	t.Parallel()

	r, _ := newResolver(t, map[string]string{"repoA/util/inner.js": "x"})

	res := r.Resolve("users/alice/repoA:util")

	assert.Equal(t, models.NotFound, res.Status)
	assert.Nil(t, res.File)
	assert.Len(t, res.Candidates, 2)
}

func TestResolve_RepoMissing(t *testing.T) {
	t.Parallel()

	r, _ := newResolver(t, map[string]string{"repoA/main.js": "x"})

	res := r.Resolve("users/alice/repoZ:x")

	assert.Equal(t, models.RepoMissing, res.Status)
	assert.False(t, res.OK())
	require.Error(t, res.Err)
}

func TestResolve_NotFound(t *testing.T) {
	t.Parallel()

	r, _ := newResolver(t, map[string]string{"repoA/main.js": "x"})

	res := r.Resolve("users/alice/repoA:gone")

	assert.Equal(t, models.NotFound, res.Status)
	require.Error(t, res.Err)
}

func TestResolve_RootEntry(t *testing.T) {
	t.Parallel()

	r, root := newResolver(t, map[string]string{"repoA/index.js": "x"})

	res := r.Resolve("users/alice/repoA")

	require.True(t, res.OK())
	assert.Equal(t, filepath.Join(root, "repoA", "index.js"), res.File.Path)
	assert.Equal(t, "index", res.File.Internal)
}

func TestResolve_PathEscape(t *testing.T) {
	t.Parallel()

	r, root := newResolver(t, map[string]string{
		"repoA/main.js": "x",
		"secret.js":     "x",
	})
	require.FileExists(t, filepath.Join(root, "secret.js"))

	res := r.Resolve("users/alice/repoA:../secret")

	assert.Equal(t, models.NotFound, res.Status)
	require.ErrorIs(t, res.Err, resolver.ErrPathEscapes)
}

func TestResolve_MalformedImport(t *testing.T) {
	t.Parallel()

	r, _ := newResolver(t, nil)

	res := r.Resolve("users/alice")

	assert.Equal(t, models.NotFound, res.Status)
	require.ErrorIs(t, res.Err, models.ErrInvalidImport)
}

func TestResolve_NoExtension(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"repoA/main": "x"})
	r := resolver.New(root, "", "index")

	res := r.Resolve("users/alice/repoA:main")

	require.True(t, res.OK())
	assert.Equal(t, []string{filepath.Join(root, "repoA", "main")}, res.Candidates)
}

func TestResolveEntry(t *testing.T) {
	t.Parallel()

	r, root := newResolver(t, map[string]string{"repoA/main.js": "x"})

	entry, err := r.ResolveEntry("repoA", "main.js")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "repoA", "main.js"), entry.Path)
	assert.Equal(t, "main.js", entry.Internal)
	assert.Empty(t, entry.Import)

	_, err = r.ResolveEntry("repoA", "../../etc/passwd")
	require.ErrorIs(t, err, resolver.ErrPathEscapes)
}

func TestResolve_SymlinkToFile(t *testing.T) {
	t.Parallel()

	r, root := newResolver(t, map[string]string{"repoA/real.js": "x"})
	if err := os.Symlink(filepath.Join(root, "repoA", "real.js"), filepath.Join(root, "repoA", "link.js")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	res := r.Resolve("users/alice/repoA:link")

	require.True(t, res.OK())
	assert.Equal(t, filepath.Join(root, "repoA", "link.js"), res.File.Path)
}

func TestSourceTrees(t *testing.T) {
	t.Parallel()

	r, root := newResolver(t, map[string]string{
		"repoB/lib.js":   "",
		"repoA/main.js":  "",
		".cache/x":       "",
		"loose-file.txt": "",
	})

	trees, err := r.SourceTrees()

	require.NoError(t, err)
	assert.Equal(t, root, r.Root())
	assert.Equal(t, ".js", r.Extension())
	assert.Equal(t, []models.SourceTree{
		{Name: "repoA", Dir: filepath.Join(root, "repoA")},
		{Name: "repoB", Dir: filepath.Join(root, "repoB")},
	}, trees)
}
