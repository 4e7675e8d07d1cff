package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/headmin/gitops-migrate/internal/migrate"
)

var diffCmd = &cobra.Command{
	Use:   "diff [root]",
	Short: "Show the changes a migration would make",
	Long: `Preview the exact file edits of a migration as diffs, without modifying
anything. The default output is a unified patch; --side-by-side renders
old and new content in two columns.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runDiff,
}

var (
	diffFrom       string
	diffTo         string
	diffCatalog    string
	diffStat       bool
	diffSideBySide bool
	diffWidth      int
)

func init() {
	diffCmd.Flags().StringVar(&diffFrom, "from", "", "Source schema version (default: detected)")
	diffCmd.Flags().StringVar(&diffTo, "to", "", "Target schema version (default: latest in catalog)")
	diffCmd.Flags().StringVar(&diffCatalog, "catalog", "", "Path to the migration catalog (default: workspace catalog)")
	diffCmd.Flags().BoolVar(&diffStat, "stat", false, "Show diffstat instead of full diff")
	diffCmd.Flags().BoolVar(&diffSideBySide, "side-by-side", false, "Show old and new content in two columns")
	diffCmd.Flags().IntVar(&diffWidth, "width", 120, "Total width of side-by-side output")
}

func runDiff(cmd *cobra.Command, args []string) {
	engine := loadEngine(diffCatalog)
	root := migrationRoot(args)
	from, to := resolveWindow(engine, root, diffFrom, diffTo)

	if !from.Less(to) {
		fmt.Printf("Already at schema version %s, nothing to migrate\n", from)
		return
	}

	plan, err := engine.Plan(root, from, to)
	if err != nil {
		exitError("%v", err)
	}

	result, err := engine.Execute(plan, migrate.ExecuteOptions{DryRun: true}, nil)
	if err != nil {
		exitError("%v", err)
	}

	if result.Diffs.TotalFiles() == 0 {
		fmt.Println("No changes")
		return
	}

	if !diffStat {
		if diffSideBySide {
			result.Diffs.WriteSideBySide(os.Stdout, diffWidth)
		} else {
			result.Diffs.WriteUnified(os.Stdout)
		}
	}
	result.Diffs.WriteSummary(os.Stdout)
}
