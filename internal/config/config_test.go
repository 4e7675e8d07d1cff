package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	tmp := t.TempDir()

	cfg, err := Initialize(tmp)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(tmp, WorkspaceDir), cfg.WorkspacePath())
	assert.Equal(t, tmp, cfg.Root())
	assert.DirExists(t, cfg.BackupsPath())
	assert.FileExists(t, filepath.Join(cfg.WorkspacePath(), ConfigFile))

	_, err = Initialize(tmp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestFindRootFrom(t *testing.T) {
	tmp := t.TempDir()
	_, err := Initialize(tmp)
	require.NoError(t, err)

	nested := filepath.Join(tmp, "teams", "deep")
	require.NoError(t, os.MkdirAll(nested, 0755))

	workspace, err := FindRootFrom(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmp, WorkspaceDir), workspace)

	_, err = FindRootFrom(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a gitops-migrate workspace")
}

func TestLoadFrom_RoundTrip(t *testing.T) {
	tmp := t.TempDir()
	cfg, err := Initialize(tmp)
	require.NoError(t, err)

	cfg.Schema = "team-schema.json"
	require.NoError(t, cfg.Save())

	loaded, err := LoadFrom(tmp)
	require.NoError(t, err)
	assert.Equal(t, CatalogFile, loaded.Catalog)
	assert.Equal(t, "team-schema.json", loaded.Schema)
	assert.Equal(t, cfg.WorkspacePath(), loaded.WorkspacePath())
}

func TestPathResolution(t *testing.T) {
	tmp := t.TempDir()
	cfg, err := Initialize(tmp)
	require.NoError(t, err)

	workspace := cfg.WorkspacePath()
	assert.Equal(t, filepath.Join(workspace, JournalFile), cfg.JournalPath())
	assert.Equal(t, filepath.Join(workspace, CatalogFile), cfg.CatalogPath())
	assert.Empty(t, cfg.SchemaPath())

	cfg.Catalog = ""
	assert.Equal(t, filepath.Join(workspace, CatalogFile), cfg.CatalogPath(),
		"unset catalog falls back to the default location")

	cfg.Catalog = "/abs/catalog.toml"
	assert.Equal(t, "/abs/catalog.toml", cfg.CatalogPath())

	cfg.Schema = "schema.json"
	assert.Equal(t, filepath.Join(workspace, "schema.json"), cfg.SchemaPath())
}
