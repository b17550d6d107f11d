package walker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tristendillon/stager/core/testutil"
	"github.com/tristendillon/stager/core/walker"
)

func TestWalk(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"repoB/lib.js":          "cc",
		"repoA/main.js":         "a",
		"repoA/util/helpers.js": "bb",
		"repoA/.DS_Store":       "",
		".git/config":           "",
		"module_map.json":       "{}",
		"repoA/skip/me.js":      "",
	})

	files, err := walker.NewTreeWalker("skip").Walk(root)

	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "repoA/main.js", files[0].RelPath)
	assert.Equal(t, "repoA/util/helpers.js", files[1].RelPath)
	assert.Equal(t, "repoB/lib.js", files[2].RelPath)
	assert.Equal(t, "repoB", files[2].Repo)
	assert.Equal(t, int64(2), files[2].Size)
}

func TestWalk_MissingRoot(t *testing.T) {
	t.Parallel()

	_, err := walker.NewTreeWalker().Walk("/definitely/not/here")

	require.Error(t, err)
}
