// Package config manages the .gitops-migrate workspace directory. The
// workspace anchors a configuration tree: it holds the migration
// catalog, the run journal, and the default backup location.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	WorkspaceDir = ".gitops-migrate"
	ConfigFile   = "config"
	JournalFile  = "journal.db"
	BackupsDir   = "backups"
	CatalogFile  = "catalog.toml"
)

// Config is the workspace configuration.
type Config struct {
	// Catalog is the migration catalog location, relative to the
	// workspace directory unless absolute.
	Catalog string `toml:"catalog"`

	// Schema optionally points at a JSON Schema for the lint command.
	Schema string `toml:"schema,omitempty"`

	path string // path to the .gitops-migrate directory
}

// FindRoot finds the workspace directory by walking up from the
// current directory.
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return FindRootFrom(dir)
}

// FindRootFrom walks up from dir looking for a workspace directory.
func FindRootFrom(dir string) (string, error) {
	for {
		workspace := filepath.Join(dir, WorkspaceDir)
		if info, err := os.Stat(workspace); err == nil && info.IsDir() {
			return workspace, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not a gitops-migrate workspace (or any parent up to root)")
		}
		dir = parent
	}
}

// Load loads the configuration, locating the workspace from the
// current directory.
func Load() (*Config, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return LoadFrom(dir)
}

// LoadFrom loads the configuration, locating the workspace from dir.
func LoadFrom(dir string) (*Config, error) {
	workspace, err := FindRootFrom(dir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(workspace, ConfigFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.path = workspace
	return &cfg, nil
}

// Save writes the configuration to disk.
func (c *Config) Save() error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(c.path, ConfigFile), data, 0644)
}

// WorkspacePath returns the path to the .gitops-migrate directory.
func (c *Config) WorkspacePath() string {
	return c.path
}

// Root returns the configuration tree root, the directory holding the
// workspace.
func (c *Config) Root() string {
	return filepath.Dir(c.path)
}

// JournalPath returns the path to the run journal database.
func (c *Config) JournalPath() string {
	return filepath.Join(c.path, JournalFile)
}

// BackupsPath returns the directory backups are written under.
func (c *Config) BackupsPath() string {
	return filepath.Join(c.path, BackupsDir)
}

// CatalogPath returns the resolved migration catalog path.
func (c *Config) CatalogPath() string {
	if c.Catalog == "" {
		return filepath.Join(c.path, CatalogFile)
	}
	if filepath.IsAbs(c.Catalog) {
		return c.Catalog
	}
	return filepath.Join(c.path, c.Catalog)
}

// SchemaPath returns the resolved lint schema path, or "" when unset.
func (c *Config) SchemaPath() string {
	if c.Schema == "" {
		return ""
	}
	if filepath.IsAbs(c.Schema) {
		return c.Schema
	}
	return filepath.Join(c.path, c.Schema)
}

// Initialize creates a workspace directory under dir.
func Initialize(dir string) (*Config, error) {
	workspace := filepath.Join(dir, WorkspaceDir)

	if _, err := os.Stat(workspace); err == nil {
		return nil, fmt.Errorf("workspace already exists at %s", workspace)
	}

	if err := os.MkdirAll(workspace, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(workspace, BackupsDir), 0755); err != nil {
		os.RemoveAll(workspace)
		return nil, fmt.Errorf("failed to create backups directory: %w", err)
	}

	cfg := &Config{
		Catalog: CatalogFile,
		path:    workspace,
	}

	if err := cfg.Save(); err != nil {
		os.RemoveAll(workspace)
		return nil, err
	}

	return cfg, nil
}
