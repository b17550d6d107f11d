package models_test

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tristendillon/stager/core/logger"
	"github.com/tristendillon/stager/core/models"
)

func TestBuildClosureTree(t *testing.T) {
	closure := &models.Closure{Files: []models.ResolvedFile{
		{Repo: "repoA", Internal: "main.js", Depth: 0},
		{Repo: "repoA", Internal: "util/helpers", Depth: 1},
		{Repo: "repoB", Internal: "lib", Depth: 2},
	}}

	tree := models.BuildClosureTree(closure)

	require.Contains(t, tree.Root.Children, "repoA")
	util := tree.Root.Children["repoA"].Children["util"]
	require.NotNil(t, util)
	assert.Nil(t, util.File)
	require.NotNil(t, util.Children["helpers"].File)
	assert.Equal(t, 3, util.Children["helpers"].Depth)

	var buf bytes.Buffer
	logger.SetColor(false)
	logger.SetWriterForAll(&buf)
	t.Cleanup(func() { logger.SetWriterForAll(os.Stdout) })

	tree.PrintTree(logger.INFO)

	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		_, msg, _ := strings.Cut(line, "INFO  ")
		lines = append(lines, msg)
	}
	assert.Equal(t, []string{
		"repoA/",
		"  main.js (depth 0)",
		"  util/",
		"    helpers (depth 1)",
		"repoB/",
		"  lib (depth 2)",
	}, lines)

	tree.Reset()
	assert.Empty(t, tree.Root.Children)
}
