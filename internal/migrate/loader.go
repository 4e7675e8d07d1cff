package migrate

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
)

// catalogTOML mirrors the on-disk migration catalog.
type catalogTOML struct {
	Migration []migrationTOML `toml:"migration"`
}

type migrationTOML struct {
	ID              string               `toml:"id"`
	FromVersion     string               `toml:"from_version"`
	ToVersion       string               `toml:"to_version"`
	Description     string               `toml:"description"`
	Transformations []transformationTOML `toml:"transformations"`
}

// transformationTOML is the flattened form of every transformation
// type; Type selects which fields are meaningful.
type transformationTOML struct {
	Type string `toml:"type"`

	// field_move
	SourcePattern  string   `toml:"source_pattern"`
	TargetPattern  string   `toml:"target_pattern"`
	MatchStrategy  string   `toml:"match_strategy"`
	TargetLocation string   `toml:"target_location"`
	Fields         []string `toml:"fields"`

	// field_rename and field_delete
	Pattern string `toml:"pattern"`
	OldPath string `toml:"old_path"`
	NewPath string `toml:"new_path"`
	Reason  string `toml:"reason"`

	// restructure
	Name        string `toml:"name"`
	Description string `toml:"description"`
}

// LoadCatalog reads a migration catalog from a TOML file. Any
// malformed entry fails the whole load; a partial catalog is never
// returned.
func LoadCatalog(path string) ([]Migration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses migration catalog TOML content.
func ParseCatalog(data []byte) ([]Migration, error) {
	var catalog catalogTOML
	if err := toml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse migration catalog: %w", err)
	}

	migrations := make([]Migration, 0, len(catalog.Migration))
	for _, m := range catalog.Migration {
		migration, err := migrationFromTOML(m)
		if err != nil {
			return nil, fmt.Errorf("migration %q: %w", m.ID, err)
		}
		migrations = append(migrations, migration)
	}
	return migrations, nil
}

func migrationFromTOML(m migrationTOML) (Migration, error) {
	from, ok := ParseVersion(m.FromVersion)
	if !ok {
		return Migration{}, fmt.Errorf("invalid from_version %q", m.FromVersion)
	}

	to, ok := ParseVersion(m.ToVersion)
	if !ok {
		return Migration{}, fmt.Errorf("invalid to_version %q", m.ToVersion)
	}

	transformations := make([]Transformation, 0, len(m.Transformations))
	for i, t := range m.Transformations {
		transformation, err := transformationFromTOML(t)
		if err != nil {
			return Migration{}, fmt.Errorf("transformation %d: %w", i, err)
		}
		transformations = append(transformations, transformation)
	}

	return Migration{
		ID:              m.ID,
		FromVersion:     from,
		ToVersion:       to,
		Description:     m.Description,
		Transformations: transformations,
	}, nil
}

func transformationFromTOML(t transformationTOML) (Transformation, error) {
	switch t.Type {
	case "field_move":
		strategy, err := ParseMatchStrategy(t.MatchStrategy)
		if err != nil {
			return nil, err
		}
		if t.SourcePattern == "" || t.TargetPattern == "" {
			return nil, fmt.Errorf("field_move requires source_pattern and target_pattern")
		}
		if t.TargetLocation == "" {
			return nil, fmt.Errorf("field_move requires target_location")
		}
		if err := validatePattern(t.SourcePattern); err != nil {
			return nil, err
		}
		if err := validatePattern(t.TargetPattern); err != nil {
			return nil, err
		}
		return FieldMove{
			SourcePattern:  t.SourcePattern,
			TargetPattern:  t.TargetPattern,
			Fields:         t.Fields,
			Strategy:       strategy,
			TargetLocation: t.TargetLocation,
		}, nil

	case "field_rename":
		if t.Pattern == "" || t.OldPath == "" || t.NewPath == "" {
			return nil, fmt.Errorf("field_rename requires pattern, old_path, and new_path")
		}
		if err := validatePattern(t.Pattern); err != nil {
			return nil, err
		}
		return FieldRename{
			Pattern: t.Pattern,
			OldPath: t.OldPath,
			NewPath: t.NewPath,
		}, nil

	case "field_delete":
		if t.Pattern == "" {
			return nil, fmt.Errorf("field_delete requires pattern")
		}
		if err := validatePattern(t.Pattern); err != nil {
			return nil, err
		}
		return FieldDelete{
			Pattern: t.Pattern,
			Fields:  t.Fields,
			Reason:  t.Reason,
		}, nil

	case "restructure":
		if t.Name == "" {
			return nil, fmt.Errorf("restructure requires name")
		}
		return Restructure{
			Name:        t.Name,
			Description: t.Description,
		}, nil

	default:
		return nil, fmt.Errorf("unknown transformation type %q", t.Type)
	}
}

// validatePattern rejects malformed glob patterns at load time, so a
// broken catalog entry cannot degrade into "matches nothing" later.
func validatePattern(pattern string) error {
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid file pattern %q", pattern)
	}
	return nil
}
