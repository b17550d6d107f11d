package modulemap_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tristendillon/stager/core/models"
	"github.com/tristendillon/stager/core/modulemap"
	"github.com/tristendillon/stager/core/testutil"
)

var fixedTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func stagedTree(t *testing.T) string {
	t.Helper()

	dest := t.TempDir()
	testutil.WriteTree(t, dest, map[string]string{
		"repoA/main.js":         "a",
		"repoA/util/helpers.js": "b",
		"repoB/lib.js":          "c",
		"module_map.json":       "{}",
		"repoA/.git/HEAD":       "ref",
	})
	return dest
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	dest := stagedTree(t)

	mm, err := modulemap.Generate(dest, "alice", ".js", fixedTime)

	require.NoError(t, err)
	assert.Equal(t, "alice", mm.Owner)
	assert.Equal(t, fixedTime, mm.GeneratedAt)
	assert.Equal(t, map[string]string{
		"users/alice/repoA:main":         "repoA/main.js",
		"users/alice/repoA:util/helpers": "repoA/util/helpers.js",
		"users/alice/repoB:lib":          "repoB/lib.js",
	}, mm.Modules)
}

func TestGenerate_EmptyTree(t *testing.T) {
	t.Parallel()

	mm, err := modulemap.Generate(t.TempDir(), "alice", ".js", fixedTime)

	require.NoError(t, err)
	assert.Empty(t, mm.Modules)
}

func TestGenerate_MissingRoot(t *testing.T) {
	t.Parallel()

	_, err := modulemap.Generate(filepath.Join(t.TempDir(), "nope"), "alice", ".js", fixedTime)

	require.Error(t, err)
}

func TestMarshal_JSONIsDeterministic(t *testing.T) {
	t.Parallel()

	mm := models.NewModuleMap("alice", fixedTime)
	mm.Modules["users/alice/repoB:lib"] = "repoB/lib.js"
	mm.Modules["users/alice/repoA:main"] = "repoA/main.js"

	data, err := modulemap.Marshal(mm, modulemap.FormatJSON)

	require.NoError(t, err)
	assert.Equal(t, `{
  "generated_at": "2025-03-01T12:00:00Z",
  "owner": "alice",
  "modules": {
    "users/alice/repoA:main": "repoA/main.js",
    "users/alice/repoB:lib": "repoB/lib.js"
  }
}
`, string(data))
	require.NoError(t, modulemap.Validate(data))
}

func TestMarshal_UnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := modulemap.Marshal(models.NewModuleMap("alice", fixedTime), "toml")

	require.ErrorIs(t, err, modulemap.ErrUnknownFormat)
}

func TestWriteLoad(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct{ format, file string }{
		{modulemap.FormatJSON, "module_map.json"},
		{modulemap.FormatYAML, "module_map.yaml"},
	} {
		tc := tc
		t.Run(tc.format, func(t *testing.T) {
			t.Parallel()

			mm := models.NewModuleMap("alice", fixedTime)
			mm.Modules["users/alice/repoA:main"] = "repoA/main.js"
			path := filepath.Join(t.TempDir(), tc.file)

			require.NoError(t, modulemap.Write(mm, path, tc.format))
			loaded, err := modulemap.Load(path)

			require.NoError(t, err)
			assert.Equal(t, mm.Owner, loaded.Owner)
			assert.Equal(t, mm.Modules, loaded.Modules)
			assert.True(t, mm.GeneratedAt.Equal(loaded.GeneratedAt))
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"missing owner": `{"generated_at":"2025-03-01T12:00:00Z","modules":{}}`,
		"bad key":       `{"generated_at":"2025-03-01T12:00:00Z","owner":"alice","modules":{"repoA/main":"repoA/main.js"}}`,
		"absolute path": `{"generated_at":"2025-03-01T12:00:00Z","owner":"alice","modules":{"users/alice/repoA:main":"/etc/main.js"}}`,
		"extra field":   `{"generated_at":"2025-03-01T12:00:00Z","owner":"alice","modules":{},"x":1}`,
	}
	for name, doc := range tests {
		doc := doc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			require.ErrorIs(t, modulemap.Validate([]byte(doc)), modulemap.ErrSchemaViolation)
		})
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	dest := stagedTree(t)
	mm, err := modulemap.Generate(dest, "alice", ".js", fixedTime)
	require.NoError(t, err)

	assert.Empty(t, modulemap.Verify(mm, dest))

	require.NoError(t, os.Remove(filepath.Join(dest, "repoB", "lib.js")))
	mm.Modules["users/alice/evil:x"] = "../outside.js"

	errs := modulemap.Verify(mm, dest)

	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[1], modulemap.ErrMissingModule)
}
