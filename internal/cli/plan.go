package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/headmin/gitops-migrate/internal/migrate"
)

var planCmd = &cobra.Command{
	Use:   "plan [root]",
	Short: "Show what a migration would change",
	Long: `Build a migration plan for the tree at root (default: the current
directory) without modifying anything. The plan lists every file edit the
catalog prescribes between the two schema versions.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runPlan,
}

var (
	planFrom    string
	planTo      string
	planCatalog string
	planVerbose bool
)

func init() {
	planCmd.Flags().StringVar(&planFrom, "from", "", "Source schema version (default: detected)")
	planCmd.Flags().StringVar(&planTo, "to", "", "Target schema version (default: latest in catalog)")
	planCmd.Flags().StringVar(&planCatalog, "catalog", "", "Path to the migration catalog (default: workspace catalog)")
	planCmd.Flags().BoolVarP(&planVerbose, "verbose", "v", false, "List every change inside each step")
}

func runPlan(cmd *cobra.Command, args []string) {
	engine := loadEngine(planCatalog)
	root := migrationRoot(args)
	from, to := resolveWindow(engine, root, planFrom, planTo)

	if !from.Less(to) {
		fmt.Printf("Already at schema version %s, nothing to migrate\n", from)
		return
	}

	plan, err := engine.Plan(root, from, to)
	if err != nil {
		exitError("%v", err)
	}

	printPlan(plan, planVerbose)

	if len(plan.Unimplemented) > 0 {
		os.Exit(1)
	}
}

// resolveWindow turns the --from/--to flags into a concrete migration
// window, detecting the tree's current version when --from is omitted
// and falling back to the catalog's latest version when --to is.
func resolveWindow(engine *migrate.Engine, root, fromFlag, toFlag string) (migrate.Version, migrate.Version) {
	var from migrate.Version
	if fromFlag != "" {
		from = parseVersionFlag("from", fromFlag)
	} else {
		result, err := migrate.DetectTree(root)
		if err != nil {
			exitError("%v", err)
		}
		if result.Version == nil {
			exitError("could not detect the schema version under %s, pass --from", root)
		}
		from = *result.Version
		fmt.Printf("Detected schema version %s (%.0f%% confidence)\n", from, result.Confidence*100)
	}

	to := engine.LatestVersion()
	if toFlag != "" {
		to = parseVersionFlag("to", toFlag)
	}
	return from, to
}

// printPlan renders a plan: the migration window, each step, and any
// skipped references or unimplemented transformations.
func printPlan(plan *migrate.MigrationPlan, verbose bool) {
	bold := color.New(color.Bold)
	yellow := color.New(color.FgYellow)
	dim := color.New(color.Faint)

	fmt.Printf("Migration plan for %s\n\n", bold.Sprint(plan.Root))
	for _, m := range plan.Migrations {
		fmt.Printf("  %s: %s -> %s", bold.Sprint(m.ID), m.FromVersion, m.ToVersion)
		if m.Description != "" {
			fmt.Printf("  %s", dim.Sprint(m.Description))
		}
		fmt.Println()
	}

	if len(plan.Steps) == 0 {
		if len(plan.Unimplemented) == 0 {
			fmt.Println("\nNothing to do, the tree already matches the target layout")
		}
	} else {
		fmt.Println()
		for i, step := range plan.Steps {
			fmt.Printf("  %2d. %s\n", i+1, step.Description)
			if verbose {
				for _, change := range step.Changes {
					dim.Printf("      - %s\n", change.Describe())
				}
			}
		}
		fmt.Printf("\n%d step(s), %d change(s) across %d file(s)\n",
			len(plan.Steps), plan.EstimatedChanges, len(plan.TouchedFiles()))
	}

	if len(plan.Skipped) > 0 {
		fmt.Println()
		for _, skip := range plan.Skipped {
			yellow.Printf("Warning: skipped %s: %s\n", skip.File, skip.Reason)
		}
	}
	if len(plan.Unimplemented) > 0 {
		fmt.Println()
		for _, name := range plan.Unimplemented {
			yellow.Printf("Warning: no implementation for %s; these changes must be made by hand\n", name)
		}
	}
}
