package scanner_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tristendillon/stager/core/scanner"
)

func TestScan_QuoteStyles(t *testing.T) {
	t.Parallel()

	src := `
var a = require('users/alice/repoA:util/helpers');
var b = require("users/alice/repoB:lib");
var c = require ( 'users/bob/tools' ) ;
`
	imports := scanner.Scan([]byte(src))

	assert.Equal(t, []string{
		"users/alice/repoA:util/helpers",
		"users/alice/repoB:lib",
		"users/bob/tools",
	}, imports)
}

func TestScan_Deduplicates(t *testing.T) {
	t.Parallel()

	src := `require('users/alice/repoA:x'); require("users/alice/repoA:x");`

	assert.Equal(t, []string{"users/alice/repoA:x"}, scanner.Scan([]byte(src)))
}

func TestScan_IgnoresNonMatching(t *testing.T) {
	t.Parallel()

	src := `
var ee = require('ee');
var dyn = require(path);
var concat = require('users/' + name);
var mixed = require('users/alice/repoA:x");
var other = myrequire('users/alice/repoA:y');
`
	assert.Empty(t, scanner.Scan([]byte(src)))
}

func TestScan_MatchesInsideComments(t *testing.T) {
	t.Parallel()

	src := `// var old = require('users/alice/repoA:old');`

	assert.Equal(t, []string{"users/alice/repoA:old"}, scanner.Scan([]byte(src)))
}

func TestScan_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, scanner.Scan(nil))
}

func TestScanFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "main.js")
	require.NoError(t, os.WriteFile(path, []byte(`require('users/alice/repoB:lib')`), 0o644))

	imports, err := scanner.ScanFile(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"users/alice/repoB:lib"}, imports)
}

func TestScanFile_Binary(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "blob.js")
	require.NoError(t, os.WriteFile(path, []byte("require('users/a/b:c')\x00\x01"), 0o644))

	imports, err := scanner.ScanFile(path)

	require.ErrorIs(t, err, scanner.ErrBinaryFile)
	assert.Empty(t, imports)
}

func TestScanFile_Missing(t *testing.T) {
	t.Parallel()

	_, err := scanner.ScanFile(filepath.Join(t.TempDir(), "nope.js"))

	require.ErrorIs(t, err, os.ErrNotExist)
}
