package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/headmin/gitops-migrate/internal/backup"
	"github.com/headmin/gitops-migrate/internal/config"
)

var restoreCmd = &cobra.Command{
	Use:   "restore [backup-dir]",
	Short: "Restore files from a migration backup",
	Long: `Restore every file recorded in a backup directory to its original
location, overwriting whatever a migration wrote there. Without an
argument, lists the backups in the workspace.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRestore,
}

func runRestore(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		listBackups()
		return
	}

	b, err := backup.Open(args[0])
	if err != nil {
		exitError("%v", err)
	}

	if err := b.Restore(); err != nil {
		exitError("%v", err)
	}

	fmt.Printf("Restored %d file(s) from %s\n", b.FileCount(), args[0])
}

// listBackups shows the backups under the workspace backups directory,
// newest first.
func listBackups() {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	dirs, err := backup.List(cfg.BackupsPath())
	if err != nil {
		exitError("%v", err)
	}
	if len(dirs) == 0 {
		fmt.Println("No backups")
		return
	}

	for _, dir := range dirs {
		b, err := backup.Open(dir)
		if err != nil {
			fmt.Printf("%s (unreadable: %v)\n", dir, err)
			continue
		}
		fmt.Printf("%s  %s  %d file(s), %d bytes\n",
			dir, b.Timestamp.Format("Mon Jan 2 15:04:05 2006"), b.FileCount(), b.SizeBytes())
	}
}
