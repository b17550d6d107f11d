package template_engine_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tristendillon/stager/core/config"
	"github.com/tristendillon/stager/core/template_engine"
)

func TestGenerateFolder_Init(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	engine := template_engine.NewTemplateEngine()

	written, err := engine.GenerateFolder(template_engine.TEMPLATES.INIT, dir, template_engine.InitData{
		Owner:     "alice",
		EntryRepo: "repoA",
		EntryPath: "main.js",
		Repos:     []string{"alice/repoA", "alice/repoB"},
		Now:       time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, config.FileName),
		filepath.Join(dir, ".gitignore"),
	}, written)

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.Owner)
	assert.Equal(t, config.Entry{Repo: "repoA", Path: "main.js"}, cfg.Entry)
	assert.Equal(t, filepath.Join(dir, "raw"), cfg.RawDir)
	assert.Equal(t, filepath.Join(dir, "staging"), cfg.DestDir)
	assert.Equal(t, []string{"alice/repoA", "alice/repoB"}, cfg.Fetch.Repos)
	require.NoError(t, cfg.Validate())

	ignore, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, "/staging/\n", string(ignore))
}

func TestGenerateFolder_EmptyRepos(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := template_engine.NewTemplateEngine().GenerateFolder(template_engine.TEMPLATES.INIT, dir, template_engine.InitData{})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, config.FileName))
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	fetch, ok := doc["fetch"].(map[string]interface{})
	require.True(t, ok)
	assert.Empty(t, fetch["repos"])
}

func TestGenerateFolder_RefusesOverwrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	existing := filepath.Join(dir, config.FileName)
	require.NoError(t, os.WriteFile(existing, []byte("owner: me\n"), 0o644))

	engine := template_engine.NewTemplateEngine()
	_, err := engine.GenerateFolder(template_engine.TEMPLATES.INIT, dir, template_engine.InitData{Owner: "alice"})

	require.ErrorIs(t, err, template_engine.ErrExists)
	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "owner: me\n", string(data))
	assert.NoFileExists(t, filepath.Join(dir, ".gitignore"))

	engine.SetOverwrite(true)
	_, err = engine.GenerateFolder(template_engine.TEMPLATES.INIT, dir, template_engine.InitData{Owner: "alice"})
	require.NoError(t, err)
}

func TestGenerateFile_RejectsDirectoryRef(t *testing.T) {
	t.Parallel()

	err := template_engine.NewTemplateEngine().GenerateFile(template_engine.TEMPLATES.INIT, filepath.Join(t.TempDir(), "x"), nil)

	require.Error(t, err)
}

func TestListTemplates(t *testing.T) {
	t.Parallel()

	templates, err := template_engine.NewTemplateEngine().ListTemplates(template_engine.TEMPLATES.INIT)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"init/.gitignore.tmpl", "init/stager.yaml.tmpl"}, templates)
}
