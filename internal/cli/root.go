// Package cli implements the command-line interface for gitops-migrate.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/headmin/gitops-migrate/internal/config"
	"github.com/headmin/gitops-migrate/internal/journal"
	"github.com/headmin/gitops-migrate/internal/migrate"
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config  *config.Config
	Journal *journal.Journal
}

// Close releases resources held by cmdContext
func (c *cmdContext) Close() {
	if c.Journal != nil {
		c.Journal.Close()
	}
}

// initContext locates the workspace and opens the run journal
func initContext() *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	j, err := journal.Open(cfg.JournalPath())
	if err != nil {
		exitError("failed to open journal: %v", err)
	}
	if err := j.Initialize(); err != nil {
		j.Close()
		exitError("failed to initialize journal: %v", err)
	}

	return &cmdContext{Config: cfg, Journal: j}
}

// loadEngine loads the migration catalog into a fresh engine. An
// explicit catalog path wins over the workspace catalog, so a catalog
// can be tried out without editing the workspace config.
func loadEngine(catalogPath string) *migrate.Engine {
	if catalogPath == "" {
		cfg, err := config.Load()
		if err != nil {
			exitError("%v, pass --catalog or run 'gitops-migrate init'", err)
		}
		catalogPath = cfg.CatalogPath()
	}

	engine := migrate.NewEngine()
	if err := engine.LoadCatalogFile(catalogPath); err != nil {
		exitError("%v", err)
	}
	return engine
}

// migrationRoot returns the tree root argument, defaulting to the
// current directory.
func migrationRoot(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// parseVersionFlag parses a version flag value, exiting on bad input.
func parseVersionFlag(name, value string) migrate.Version {
	v, ok := migrate.ParseVersion(value)
	if !ok {
		exitError("invalid --%s version %q (expected major.minor[.patch])", name, value)
	}
	return v
}

var rootCmd = &cobra.Command{
	Use:   "gitops-migrate",
	Short: "Schema migrations for configuration repositories",
	Long: `gitops-migrate moves a tree of YAML configuration documents from one
schema version to another. It detects the current version from structural
fingerprints, plans the edits a declarative catalog prescribes, and applies
them with a backup, a diff, and a journaled record of every run.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(catalogCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// shortID returns first 8 characters of an ID
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
