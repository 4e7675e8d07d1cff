// Package backup snapshots files before a migration mutates them and
// restores them on demand. Snapshots are held both in memory, for the
// running process, and on disk under a timestamped directory, so a
// later process (or a human) can recover after a crash.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	// ManifestName is the index file written into every backup
	// directory.
	ManifestName = "manifest.toml"

	// DirPrefix names backup directories; tree walkers use it to
	// keep old backups out of migration scans.
	DirPrefix = "migration-backup-"

	filesDir = "files"
)

// Backup is a point-in-time snapshot of a set of files.
type Backup struct {
	Timestamp time.Time
	Dir       string

	// Files maps each original path to its snapshotted content. This
	// in-memory copy is authoritative for Restore.
	Files map[string]string
}

type manifestTOML struct {
	CreatedAt time.Time      `toml:"created_at"`
	Files     []manifestFile `toml:"file"`
}

type manifestFile struct {
	Path   string `toml:"path"`
	Stored string `toml:"stored"`
}

// Create snapshots every existing file in files into a new timestamped
// directory under baseDir. Files that do not exist yet are simply
// absent from the snapshot. Any read or write failure aborts the whole
// backup and removes the partial directory; a half-taken backup is
// worse than none because it would restore incompletely.
func Create(files []string, baseDir string) (*Backup, error) {
	timestamp := time.Now()
	dir, err := newBackupDir(baseDir, timestamp)
	if err != nil {
		return nil, err
	}

	b := &Backup{
		Timestamp: timestamp,
		Dir:       dir,
		Files:     make(map[string]string),
	}

	manifest := manifestTOML{CreatedAt: timestamp}
	for i, file := range files {
		content, err := os.ReadFile(file)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			os.RemoveAll(dir)
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}

		stored := filepath.Join(filesDir, fmt.Sprintf("%04d-%s", i+1, filepath.Base(file)))
		target := filepath.Join(dir, stored)
		if err := os.WriteFile(target, content, 0644); err != nil {
			os.RemoveAll(dir)
			return nil, fmt.Errorf("failed to write backup copy: %w", err)
		}

		b.Files[file] = string(content)
		manifest.Files = append(manifest.Files, manifestFile{Path: file, Stored: stored})
	}

	data, err := toml.Marshal(manifest)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to marshal backup manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), data, 0644); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to write backup manifest: %w", err)
	}

	return b, nil
}

// newBackupDir creates a unique timestamped backup directory with a
// files/ subdirectory.
func newBackupDir(baseDir string, timestamp time.Time) (string, error) {
	base := filepath.Join(baseDir, DirPrefix+timestamp.Format("20060102-150405"))

	dir := base
	for n := 2; ; n++ {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			break
		}
		dir = fmt.Sprintf("%s-%d", base, n)
	}

	if err := os.MkdirAll(filepath.Join(dir, filesDir), 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}
	return dir, nil
}

// Open loads an existing backup directory so its files can be restored
// by a process that did not create it.
func Open(dir string) (*Backup, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("failed to read backup manifest: %w", err)
	}

	var manifest manifestTOML
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse backup manifest: %w", err)
	}

	b := &Backup{
		Timestamp: manifest.CreatedAt,
		Dir:       dir,
		Files:     make(map[string]string),
	}
	for _, f := range manifest.Files {
		content, err := os.ReadFile(filepath.Join(dir, f.Stored))
		if err != nil {
			return nil, fmt.Errorf("failed to read backup copy for %s: %w", f.Path, err)
		}
		b.Files[f.Path] = string(content)
	}
	return b, nil
}

// Restore writes every snapshotted file back to its original path,
// overwriting current content unconditionally.
func (b *Backup) Restore() error {
	for path, content := range b.Files {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to restore %s: %w", path, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to restore %s: %w", path, err)
		}
	}
	return nil
}

// Delete removes the on-disk backup directory. The in-memory snapshot
// stays usable for Restore within this process.
func (b *Backup) Delete() error {
	if _, err := os.Stat(b.Dir); os.IsNotExist(err) {
		return nil
	}
	if err := os.RemoveAll(b.Dir); err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}
	return nil
}

// FileCount returns the number of snapshotted files.
func (b *Backup) FileCount() int {
	return len(b.Files)
}

// SizeBytes returns the total snapshot size.
func (b *Backup) SizeBytes() int {
	total := 0
	for _, content := range b.Files {
		total += len(content)
	}
	return total
}

// List returns the backup directories under baseDir, newest first by
// name. The timestamped naming makes lexical order chronological.
func List(baseDir string) ([]string, error) {
	entries, err := os.ReadDir(baseDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), DirPrefix) {
			dirs = append(dirs, filepath.Join(baseDir, e.Name()))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	return dirs, nil
}
