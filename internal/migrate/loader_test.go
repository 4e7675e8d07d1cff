package migrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCatalog_FieldMove(t *testing.T) {
	catalog := `
[[migration]]
id = "test-migration"
from_version = "4.73.0"
to_version = "4.74.0"
description = "Test migration"

[[migration.transformations]]
type = "field_move"
source_pattern = "lib/**/*.yml"
target_pattern = "teams/**/*.yml"
match_strategy = "path_reference"
target_location = "software.packages"
fields = ["self_service", "categories"]
`

	migrations, err := ParseCatalog([]byte(catalog))
	require.NoError(t, err)
	require.Len(t, migrations, 1)

	m := migrations[0]
	assert.Equal(t, "test-migration", m.ID)
	assert.Equal(t, Version{4, 73, 0}, m.FromVersion)
	assert.Equal(t, Version{4, 74, 0}, m.ToVersion)
	require.Len(t, m.Transformations, 1)

	move, ok := m.Transformations[0].(FieldMove)
	require.True(t, ok, "expected FieldMove, got %T", m.Transformations[0])
	assert.Equal(t, "lib/**/*.yml", move.SourcePattern)
	assert.Equal(t, "teams/**/*.yml", move.TargetPattern)
	assert.Equal(t, MatchPathReference, move.Strategy.Kind)
	assert.Equal(t, "software.packages", move.TargetLocation)
	assert.Equal(t, []string{"self_service", "categories"}, move.Fields)
}

func TestParseCatalog_FieldRename(t *testing.T) {
	catalog := `
[[migration]]
id = "rename-test"
from_version = "4.29.0"
to_version = "4.30.0"
description = "Rename test"

[[migration.transformations]]
type = "field_rename"
pattern = "teams/**/*.yml"
old_path = "enable_disk_encryption"
new_path = "macos_settings.enable_disk_encryption"
`

	migrations, err := ParseCatalog([]byte(catalog))
	require.NoError(t, err)
	require.Len(t, migrations, 1)

	rename, ok := migrations[0].Transformations[0].(FieldRename)
	require.True(t, ok, "expected FieldRename, got %T", migrations[0].Transformations[0])
	assert.Equal(t, "teams/**/*.yml", rename.Pattern)
	assert.Equal(t, "enable_disk_encryption", rename.OldPath)
	assert.Equal(t, "macos_settings.enable_disk_encryption", rename.NewPath)
}

func TestParseCatalog_FieldDelete(t *testing.T) {
	catalog := `
[[migration]]
id = "delete-test"
from_version = "4.50.0"
to_version = "4.51.0"
description = "Delete deprecated fields"

[[migration.transformations]]
type = "field_delete"
pattern = "**/*.yml"
fields = ["deprecated_field"]
reason = "Field no longer supported"
`

	migrations, err := ParseCatalog([]byte(catalog))
	require.NoError(t, err)
	require.Len(t, migrations, 1)

	del, ok := migrations[0].Transformations[0].(FieldDelete)
	require.True(t, ok, "expected FieldDelete, got %T", migrations[0].Transformations[0])
	assert.Equal(t, "**/*.yml", del.Pattern)
	assert.Equal(t, []string{"deprecated_field"}, del.Fields)
	assert.Equal(t, "Field no longer supported", del.Reason)
}

func TestParseCatalog_Restructure(t *testing.T) {
	catalog := `
[[migration]]
id = "restructure-test"
from_version = "4.60.0"
to_version = "4.61.0"
description = "Needs custom logic"

[[migration.transformations]]
type = "restructure"
name = "split-team-settings"
description = "Split team settings into per-platform files"
`

	migrations, err := ParseCatalog([]byte(catalog))
	require.NoError(t, err)

	r, ok := migrations[0].Transformations[0].(Restructure)
	require.True(t, ok)
	assert.Equal(t, "split-team-settings", r.Name)
}

// A single malformed entry rejects the whole catalog.
func TestParseCatalog_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		catalog string
		errLike string
	}{
		{
			name: "invalid from_version",
			catalog: `
[[migration]]
id = "bad"
from_version = "not-a-version"
to_version = "4.74.0"
description = "d"
`,
			errLike: "invalid from_version",
		},
		{
			name: "unknown match strategy",
			catalog: `
[[migration]]
id = "bad"
from_version = "4.73.0"
to_version = "4.74.0"
description = "d"

[[migration.transformations]]
type = "field_move"
source_pattern = "lib/**/*.yml"
target_pattern = "teams/**/*.yml"
match_strategy = "by_vibes"
target_location = "software.packages"
fields = ["f"]
`,
			errLike: "unknown match strategy",
		},
		{
			name: "unknown transformation type",
			catalog: `
[[migration]]
id = "bad"
from_version = "4.73.0"
to_version = "4.74.0"
description = "d"

[[migration.transformations]]
type = "field_teleport"
`,
			errLike: "unknown transformation type",
		},
		{
			name:    "not toml",
			catalog: "[[migration]\nid=",
			errLike: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			migrations, err := ParseCatalog([]byte(tt.catalog))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errLike)
			assert.Nil(t, migrations)
		})
	}
}

func TestParseCatalog_CustomStrategyPassthrough(t *testing.T) {
	catalog := `
[[migration]]
id = "custom"
from_version = "4.73.0"
to_version = "4.74.0"
description = "d"

[[migration.transformations]]
type = "field_move"
source_pattern = "lib/**/*.yml"
target_pattern = "teams/**/*.yml"
match_strategy = "custom:label-matching"
target_location = "software.packages"
fields = ["f"]
`

	migrations, err := ParseCatalog([]byte(catalog))
	require.NoError(t, err)

	move := migrations[0].Transformations[0].(FieldMove)
	assert.Equal(t, MatchCustom, move.Strategy.Kind)
	assert.Equal(t, "label-matching", move.Strategy.Name)
	assert.Equal(t, "custom:label-matching", move.Strategy.String())
}

func TestParseCatalog_Starter(t *testing.T) {
	migrations, err := ParseCatalog([]byte(StarterCatalog))
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, "macos-settings-consolidation", migrations[0].ID)
	assert.Equal(t, Version{Major: 4, Minor: 30}, migrations[0].ToVersion)

	assert.Equal(t, "team-software-packages", migrations[1].ID)
	move := migrations[1].Transformations[0].(FieldMove)
	assert.Equal(t, MatchPathReference, move.Strategy.Kind)
	assert.Len(t, move.Fields, 4)
}

func TestLoadCatalog_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "migrations.toml")
	content := `
[[migration]]
id = "from-disk"
from_version = "4.73.0"
to_version = "4.74.0"
description = "d"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	migrations, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, migrations, 1)
	assert.Equal(t, "from-disk", migrations[0].ID)

	_, err = LoadCatalog(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}
