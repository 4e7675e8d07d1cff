package migrate

// StarterCatalog is the catalog seeded into a fresh workspace. It
// carries the known schema transitions: the 4.30 disk-encryption key
// consolidation and the 4.74 move of per-package flags into team
// files.
const StarterCatalog = `# Migration catalog.
#
# Each [[migration]] moves a configuration tree from from_version to
# to_version through declarative transformations:
#   field_move    - move fields from referenced files into the referencing
#                   file under target_location
#   field_rename  - rename a dot-path within matching files
#   field_delete  - drop deprecated fields from matching files

[[migration]]
id = "macos-settings-consolidation"
from_version = "4.29.0"
to_version = "4.30.0"
description = "Consolidate disk encryption under macos_settings"

[[migration.transformations]]
type = "field_rename"
pattern = "teams/**/*.yml"
old_path = "enable_disk_encryption"
new_path = "macos_settings.enable_disk_encryption"

[[migration]]
id = "team-software-packages"
from_version = "4.73.0"
to_version = "4.74.0"
description = "Consolidate package flags under each team's software.packages"

[[migration.transformations]]
type = "field_move"
source_pattern = "lib/**/*.yml"
target_pattern = "teams/**/*.yml"
match_strategy = "path_reference"
target_location = "software.packages"
fields = ["self_service", "categories", "labels_include_any", "labels_exclude_any"]
`
