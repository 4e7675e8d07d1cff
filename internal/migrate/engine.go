package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/headmin/gitops-migrate/internal/backup"
	"github.com/headmin/gitops-migrate/internal/diff"
	"github.com/headmin/gitops-migrate/internal/document"
)

// Engine builds and executes migration plans. It is not safe for
// concurrent use; plan and execute run synchronously on the calling
// goroutine so the order of file reads and writes stays auditable.
type Engine struct {
	migrations []Migration
	resolver   *Resolver
}

// NewEngine returns an Engine with no migrations loaded.
func NewEngine() *Engine {
	return &Engine{resolver: NewResolver()}
}

// LoadMigrations replaces the engine's migration list.
func (e *Engine) LoadMigrations(migrations []Migration) {
	e.migrations = migrations
}

// LoadCatalogFile loads the migration catalog from a TOML file.
func (e *Engine) LoadCatalogFile(path string) error {
	migrations, err := LoadCatalog(path)
	if err != nil {
		return err
	}
	e.migrations = migrations
	return nil
}

// Migrations returns the loaded catalog in declaration order.
func (e *Engine) Migrations() []Migration {
	return e.migrations
}

// LatestVersion returns the highest to_version in the catalog, or the
// newest known layout version when the catalog is empty.
func (e *Engine) LatestVersion() Version {
	if len(e.migrations) == 0 {
		return versionNewLayout
	}
	latest := e.migrations[0].ToVersion
	for _, m := range e.migrations[1:] {
		if latest.Less(m.ToVersion) {
			latest = m.ToVersion
		}
	}
	return latest
}

// Plan selects the migrations applicable between from and to, scans
// the tree under root for document files, and expands every
// transformation into concrete per-file steps. Planning only reads;
// nothing is mutated until Execute.
func (e *Engine) Plan(root string, from, to Version) (*MigrationPlan, error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	applicable := e.migrationsBetween(from, to)
	if len(applicable) == 0 {
		return nil, fmt.Errorf("no migration path found from %s to %s", from, to)
	}

	affected, err := findDocumentFiles(rootAbs)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	plan := &MigrationPlan{
		Root:          rootAbs,
		Migrations:    applicable,
		AffectedFiles: affected,
	}

	if err := e.generateSteps(plan); err != nil {
		return nil, err
	}

	for _, step := range plan.Steps {
		plan.EstimatedChanges += len(step.Changes)
	}

	// Reference discovery can reach files outside the scanned tree;
	// anything a step touches must be in the backup set too.
	seen := make(map[string]bool, len(plan.AffectedFiles))
	for _, f := range plan.AffectedFiles {
		seen[f] = true
	}
	for _, step := range plan.Steps {
		if !seen[step.File] {
			seen[step.File] = true
			plan.AffectedFiles = append(plan.AffectedFiles, step.File)
		}
	}

	// One unreadable file can surface through several
	// transformations; report it once.
	plan.Skipped = dedupSkips(plan.Skipped)

	return plan, nil
}

// migrationsBetween selects migrations whose window fits inside
// [from, to], keeping catalog order. Catalog authors declare
// migrations in dependency order; selection never re-sorts them.
func (e *Engine) migrationsBetween(from, to Version) []Migration {
	var applicable []Migration
	for _, m := range e.migrations {
		if m.FromVersion.Compare(from) >= 0 && m.ToVersion.Compare(to) <= 0 {
			applicable = append(applicable, m)
		}
	}
	return applicable
}

func (e *Engine) generateSteps(plan *MigrationPlan) error {
	for _, migration := range plan.Migrations {
		for _, transformation := range migration.Transformations {
			switch t := transformation.(type) {
			case FieldMove:
				if err := e.expandFieldMove(plan, t); err != nil {
					return fmt.Errorf("migration %q: %w", migration.ID, err)
				}
			case FieldRename:
				e.expandFieldRename(plan, t)
			case FieldDelete:
				e.expandFieldDelete(plan, t)
			case Restructure:
				plan.Unimplemented = append(plan.Unimplemented,
					fmt.Sprintf("%s (%s)", t.Name, t.Description))
			default:
				return fmt.Errorf("unhandled transformation type %T", transformation)
			}
		}
	}
	return nil
}

// expandFieldMove pairs each target-pattern file with the
// source-pattern files it references, and moves the named fields from
// source to target. A field absent from a source is nothing to
// migrate, not an error.
func (e *Engine) expandFieldMove(plan *MigrationPlan, t FieldMove) error {
	if t.Strategy.Kind != MatchPathReference {
		return fmt.Errorf("field_move match strategy %q is not implemented", t.Strategy)
	}

	for _, target := range plan.AffectedFiles {
		if !matchesPattern(plan.Root, target, t.TargetPattern) {
			continue
		}

		refs, skips := e.resolver.FindReferencedFiles(target)
		plan.Skipped = append(plan.Skipped, skips...)

		for _, source := range refs {
			if !matchesPattern(plan.Root, source, t.SourcePattern) {
				continue
			}

			doc, err := e.resolver.LoadFile(source)
			if err != nil {
				// Recorded as skipped during discovery.
				continue
			}

			var sourceChanges, targetChanges []FileChange
			for _, field := range t.Fields {
				value := doc.Get(field)
				if value == nil {
					continue
				}
				sourceChanges = append(sourceChanges, RemoveField{Path: field})
				targetChanges = append(targetChanges, AddField{
					Path:  t.TargetLocation + "." + field,
					Value: document.CloneNode(value),
				})
			}

			if len(sourceChanges) > 0 {
				plan.Steps = append(plan.Steps, MigrationStep{
					Description: fmt.Sprintf("Remove migrated fields from %s", relPath(plan.Root, source)),
					File:        source,
					Changes:     sourceChanges,
				})
			}
			if len(targetChanges) > 0 {
				plan.Steps = append(plan.Steps, MigrationStep{
					Description: fmt.Sprintf("Add migrated fields to %s", relPath(plan.Root, target)),
					File:        target,
					Changes:     targetChanges,
				})
			}
		}
	}
	return nil
}

func (e *Engine) expandFieldRename(plan *MigrationPlan, t FieldRename) {
	for _, file := range plan.AffectedFiles {
		if !matchesPattern(plan.Root, file, t.Pattern) {
			continue
		}

		doc, err := e.resolver.LoadFile(file)
		if err != nil {
			plan.Skipped = append(plan.Skipped, SkippedRef{File: file, Reason: err.Error()})
			continue
		}
		if doc.Get(t.OldPath) == nil {
			continue
		}

		plan.Steps = append(plan.Steps, MigrationStep{
			Description: fmt.Sprintf("Rename fields in %s", relPath(plan.Root, file)),
			File:        file,
			Changes:     []FileChange{RenameField{OldPath: t.OldPath, NewPath: t.NewPath}},
		})
	}
}

func (e *Engine) expandFieldDelete(plan *MigrationPlan, t FieldDelete) {
	for _, file := range plan.AffectedFiles {
		if !matchesPattern(plan.Root, file, t.Pattern) {
			continue
		}

		doc, err := e.resolver.LoadFile(file)
		if err != nil {
			plan.Skipped = append(plan.Skipped, SkippedRef{File: file, Reason: err.Error()})
			continue
		}

		var changes []FileChange
		for _, field := range t.Fields {
			if doc.Get(field) != nil {
				changes = append(changes, RemoveField{Path: field})
			}
		}
		if len(changes) == 0 {
			continue
		}

		description := fmt.Sprintf("Delete deprecated fields in %s", relPath(plan.Root, file))
		if t.Reason != "" {
			description += fmt.Sprintf(" (%s)", t.Reason)
		}
		plan.Steps = append(plan.Steps, MigrationStep{
			Description: description,
			File:        file,
			Changes:     changes,
		})
	}
}

// ExecuteOptions configures plan execution.
type ExecuteOptions struct {
	// DryRun previews every change without taking a backup or
	// touching disk.
	DryRun bool

	// BackupDir is where the pre-mutation snapshot is written.
	// Defaults to the plan root.
	BackupDir string
}

// ExecuteResult is the outcome of executing a plan.
type ExecuteResult struct {
	Diffs        diff.Set
	Backup       *backup.Backup
	FilesWritten int
}

// ExecuteProgress is called after each step with its diff.
type ExecuteProgress func(step, total int, description string, d diff.FileDiff)

// Execute applies a plan. Unless DryRun is set, every affected file is
// backed up before the first write; a backup failure aborts with
// nothing modified. Steps run in order and are not rolled back
// individually: on a mid-plan error the partial result is returned
// alongside the error and the backup stays on disk, so the caller can
// inspect and then restore.
//
// Dry runs produce the same diffs a real run would: each step reads
// earlier steps' output from an in-memory overlay instead of disk.
func (e *Engine) Execute(plan *MigrationPlan, opts ExecuteOptions, progress ExecuteProgress) (*ExecuteResult, error) {
	if progress == nil {
		progress = func(int, int, string, diff.FileDiff) {}
	}

	result := &ExecuteResult{}

	if !opts.DryRun {
		baseDir := opts.BackupDir
		if baseDir == "" {
			baseDir = plan.Root
		}
		b, err := backup.Create(plan.AffectedFiles, baseDir)
		if err != nil {
			return nil, fmt.Errorf("backup failed, nothing was modified: %w", err)
		}
		result.Backup = b
	}

	overlay := make(map[string]string)
	written := make(map[string]bool)

	for i, step := range plan.Steps {
		original, ok := overlay[step.File]
		if !ok {
			content, err := os.ReadFile(step.File)
			if err != nil && !os.IsNotExist(err) {
				return result, fmt.Errorf("failed to read %s: %w", step.File, err)
			}
			original = string(content)
		}

		doc, err := document.Parse([]byte(original))
		if err != nil {
			return result, fmt.Errorf("failed to parse %s: %w", step.File, err)
		}

		if err := applyChanges(doc, step.Changes); err != nil {
			return result, fmt.Errorf("step %q: %w", step.Description, err)
		}

		serialized, err := doc.Marshal()
		if err != nil {
			return result, fmt.Errorf("failed to serialize %s: %w", step.File, err)
		}
		updated := string(serialized)

		d := diff.NewFileDiff(relPath(plan.Root, step.File), original, updated)
		result.Diffs.Add(d)
		overlay[step.File] = updated

		if !opts.DryRun {
			if err := os.WriteFile(step.File, serialized, 0644); err != nil {
				return result, fmt.Errorf("failed to write %s (backup retained at %s): %w",
					step.File, result.Backup.Dir, err)
			}
			if !written[step.File] {
				written[step.File] = true
				result.FilesWritten++
			}
		}

		progress(i+1, len(plan.Steps), step.Description, d)
	}

	return result, nil
}

// applyChanges applies a step's changes to an in-memory document.
func applyChanges(doc *document.Document, changes []FileChange) error {
	for _, change := range changes {
		switch c := change.(type) {
		case AddField:
			if err := doc.Set(c.Path, document.CloneNode(c.Value)); err != nil {
				return err
			}
		case RemoveField:
			if err := doc.Remove(c.Path); err != nil {
				return err
			}
		case RenameField:
			// Read before mutating so overlapping paths cannot see a
			// half-applied rename.
			value := doc.Get(c.OldPath)
			if value == nil {
				continue
			}
			if err := doc.Set(c.NewPath, value); err != nil {
				return err
			}
			if err := doc.Remove(c.OldPath); err != nil {
				return err
			}
		case ModifyValue:
			if err := doc.Set(c.Path, document.CloneNode(c.NewValue)); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unhandled change type %T", change)
		}
	}
	return nil
}

// TouchedFiles returns the distinct files the plan's steps modify, in
// first-touch order.
func (p *MigrationPlan) TouchedFiles() []string {
	seen := make(map[string]bool)
	var files []string
	for _, step := range p.Steps {
		if !seen[step.File] {
			seen[step.File] = true
			files = append(files, step.File)
		}
	}
	return files
}

// CommitMessage renders the change-set message a version-control
// wrapper records for this plan.
func (p *MigrationPlan) CommitMessage() string {
	ids := make([]string, len(p.Migrations))
	for i, m := range p.Migrations {
		ids[i] = m.ID
	}
	return fmt.Sprintf("Migrate configuration: %s (%d file(s))",
		strings.Join(ids, ", "), len(p.TouchedFiles()))
}

// skipDirs are dependency and build-output directories that never hold
// configuration documents.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"target":       true,
	"dist":         true,
	"build":        true,
}

// findDocumentFiles walks root collecting document files, skipping
// hidden directories, dependency/build directories, and old migration
// backups.
func findDocumentFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name] ||
				strings.HasPrefix(name, backup.DirPrefix)) {
				return filepath.SkipDir
			}
			return nil
		}
		if ext := filepath.Ext(path); ext == ".yml" || ext == ".yaml" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// matchesPattern matches a file against a catalog glob using its
// root-relative slash path. "**" spans zero or more segments, so
// "**/*.yml" also matches a root-level file.
func matchesPattern(root, file, pattern string) bool {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		rel = file
	}
	ok, err := doublestar.Match(pattern, filepath.ToSlash(rel))
	return err == nil && ok
}

// relPath renders a file path relative to the plan root for display.
func relPath(root, file string) string {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return file
	}
	return filepath.ToSlash(rel)
}

func dedupSkips(skips []SkippedRef) []SkippedRef {
	seen := make(map[SkippedRef]bool, len(skips))
	var out []SkippedRef
	for _, s := range skips {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
