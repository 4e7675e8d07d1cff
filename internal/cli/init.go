package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/headmin/gitops-migrate/internal/config"
	"github.com/headmin/gitops-migrate/internal/journal"
	"github.com/headmin/gitops-migrate/internal/migrate"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a gitops-migrate workspace",
	Long: `Initialize a gitops-migrate workspace in the current directory.
This creates a .gitops-migrate directory holding the migration catalog,
the run journal, and backups taken before files are migrated.`,
	Run: runInit,
}

var initCatalog string

func init() {
	initCmd.Flags().StringVar(&initCatalog, "catalog", "", "Seed the workspace with an existing catalog file")
}

func runInit(cmd *cobra.Command, args []string) {
	// Check if already initialized
	if root, err := config.FindRoot(); err == nil {
		exitError("gitops-migrate workspace already exists at %s", root)
	}

	dir, err := os.Getwd()
	if err != nil {
		exitError("%v", err)
	}

	// Validate the catalog before any directory is created, so a typo
	// in --catalog cannot leave a half-set-up workspace behind.
	catalogData := []byte(migrate.StarterCatalog)
	if initCatalog != "" {
		catalogData, err = os.ReadFile(initCatalog)
		if err != nil {
			exitError("failed to read catalog: %v", err)
		}
	}
	migrations, err := migrate.ParseCatalog(catalogData)
	if err != nil {
		exitError("%v", err)
	}

	fmt.Printf("Initializing gitops-migrate workspace...\n")

	cfg, err := config.Initialize(dir)
	if err != nil {
		exitError("%v", err)
	}

	if err := os.WriteFile(cfg.CatalogPath(), catalogData, 0644); err != nil {
		exitError("failed to write catalog: %v", err)
	}
	fmt.Printf("Seeded catalog with %d migration(s)\n", len(migrations))

	j, err := journal.Open(cfg.JournalPath())
	if err != nil {
		exitError("failed to open journal: %v", err)
	}
	defer j.Close()
	if err := j.Initialize(); err != nil {
		exitError("failed to initialize journal: %v", err)
	}

	fmt.Printf("\nInitialized gitops-migrate workspace in %s/\n", config.WorkspaceDir)
	fmt.Printf("Run 'gitops-migrate detect .' to find your current schema version.\n")
}
