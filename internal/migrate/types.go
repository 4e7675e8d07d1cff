package migrate

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/headmin/gitops-migrate/internal/document"
)

// Migration is a named, versioned bundle of transformations moving
// documents from one schema version to the next. Migrations are loaded
// once from the catalog and never mutated afterwards.
type Migration struct {
	ID              string
	FromVersion     Version
	ToVersion       Version
	Description     string
	Transformations []Transformation
}

// Transformation is a single declarative edit rule inside a Migration.
// The set of implementations is closed: FieldMove, FieldRename,
// FieldDelete, and Restructure. The engine switches over these
// exhaustively, so adding a variant means teaching the engine about it.
type Transformation interface {
	transformation()
}

// FieldMove relocates named fields out of documents matched by
// SourcePattern into a nested location inside documents matched by
// TargetPattern. Strategy determines how source and target files are
// paired.
type FieldMove struct {
	SourcePattern  string
	TargetPattern  string
	Fields         []string
	Strategy       MatchStrategy
	TargetLocation string
}

// FieldRename renames a dotted field path within documents matching
// Pattern.
type FieldRename struct {
	Pattern string
	OldPath string
	NewPath string
}

// FieldDelete removes named fields from documents matching Pattern.
// Reason is an optional deprecation note shown in plan output.
type FieldDelete struct {
	Pattern string
	Fields  []string
	Reason  string
}

// Restructure names a migration whose logic cannot be expressed
// declaratively. Entries without a matching implementation are
// surfaced as unimplemented, never silently skipped.
type Restructure struct {
	Name        string
	Description string
}

func (FieldMove) transformation()   {}
func (FieldRename) transformation() {}
func (FieldDelete) transformation() {}
func (Restructure) transformation() {}

// MatchKind identifies how FieldMove pairs source and target files.
type MatchKind string

const (
	// MatchPathReference pairs a target with the files it references
	// through path fields.
	MatchPathReference MatchKind = "path_reference"
	// MatchFileName pairs files by name pattern.
	MatchFileName MatchKind = "filename"
	// MatchCustom is an opaque strategy tag the generic engine does
	// not know how to execute.
	MatchCustom MatchKind = "custom"
)

// MatchStrategy is a MatchKind plus, for custom strategies, the
// strategy name.
type MatchStrategy struct {
	Kind MatchKind
	Name string
}

// ParseMatchStrategy maps a catalog strategy string to a MatchStrategy.
// "custom:<name>" is accepted as an explicit passthrough; any other
// unknown string is an error so a typo cannot degrade into a no-op.
func ParseMatchStrategy(s string) (MatchStrategy, error) {
	switch {
	case s == string(MatchPathReference):
		return MatchStrategy{Kind: MatchPathReference}, nil
	case s == string(MatchFileName):
		return MatchStrategy{Kind: MatchFileName}, nil
	case strings.HasPrefix(s, "custom:"):
		name := strings.TrimPrefix(s, "custom:")
		if name == "" {
			return MatchStrategy{}, fmt.Errorf("custom match strategy has no name")
		}
		return MatchStrategy{Kind: MatchCustom, Name: name}, nil
	default:
		return MatchStrategy{}, fmt.Errorf("unknown match strategy %q", s)
	}
}

func (m MatchStrategy) String() string {
	if m.Kind == MatchCustom {
		return "custom:" + m.Name
	}
	return string(m.Kind)
}

// MigrationPlan is the side-effect-free description of what an
// execution would do. Construction only reads files; a plan can be
// shown, discarded, or executed unchanged.
type MigrationPlan struct {
	// Root is the absolute path of the tree the plan was built for.
	// Paths in reports are shown relative to it.
	Root string

	Migrations    []Migration
	AffectedFiles []string
	Steps         []MigrationStep

	// EstimatedChanges is the total change count over all steps.
	EstimatedChanges int

	// Skipped records references that could not be resolved during
	// discovery. A bad reference skips only the files behind it, not
	// the whole plan.
	Skipped []SkippedRef

	// Unimplemented lists Restructure transformations with no
	// implementation. They contribute no steps; callers must surface
	// them and refuse to treat the run as a full success.
	Unimplemented []string
}

// MigrationStep is the unit of execution: an ordered list of changes
// applied to a single file.
type MigrationStep struct {
	Description string
	File        string
	Changes     []FileChange
}

// SkippedRef is a file reference that discovery gave up on, with the
// reason.
type SkippedRef struct {
	File   string
	Reason string
}

// FileChange is one concrete edit to a document tree. The set of
// implementations is closed: AddField, RemoveField, RenameField, and
// ModifyValue.
type FileChange interface {
	fileChange()

	// Describe renders the change for plan listings.
	Describe() string
}

// AddField inserts a value at a dotted path, creating intermediate
// mappings as needed.
type AddField struct {
	Path  string
	Value *yaml.Node
}

// RemoveField deletes the field at a dotted path.
type RemoveField struct {
	Path string
}

// RenameField moves the value at OldPath to NewPath.
type RenameField struct {
	OldPath string
	NewPath string
}

// ModifyValue replaces the value at a dotted path. OldValue is kept
// for display only.
type ModifyValue struct {
	Path     string
	OldValue *yaml.Node
	NewValue *yaml.Node
}

func (AddField) fileChange()    {}
func (RemoveField) fileChange() {}
func (RenameField) fileChange() {}
func (ModifyValue) fileChange() {}

func (c AddField) Describe() string {
	return fmt.Sprintf("add %s: %s", c.Path, document.Format(c.Value))
}

func (c RemoveField) Describe() string {
	return fmt.Sprintf("remove %s", c.Path)
}

func (c RenameField) Describe() string {
	return fmt.Sprintf("rename %s -> %s", c.OldPath, c.NewPath)
}

func (c ModifyValue) Describe() string {
	return fmt.Sprintf("modify %s: %s -> %s",
		c.Path, document.Format(c.OldValue), document.Format(c.NewValue))
}

// DetectionResult is the outcome of one version-detection pass.
// Version is nil when no fingerprint matched at all.
type DetectionResult struct {
	Version    *Version
	Confidence float64
	Indicators []string
}
