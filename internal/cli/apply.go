package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/headmin/gitops-migrate/internal/diff"
	"github.com/headmin/gitops-migrate/internal/journal"
	"github.com/headmin/gitops-migrate/internal/migrate"
	"github.com/headmin/gitops-migrate/internal/vcs"
)

var applyCmd = &cobra.Command{
	Use:   "apply [root]",
	Short: "Apply a migration to the tree",
	Long: `Apply the catalog migrations between two schema versions to the tree at
root (default: the current directory). Affected files are backed up first
and every run is recorded in the workspace journal. --dry-run previews the
changes without touching disk, and --branch wraps a real run in a git
branch and commit so the migration arrives as a reviewable change.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runApply,
}

var (
	applyFrom    string
	applyTo      string
	applyCatalog string
	applyDryRun  bool
	applyBranch  bool
)

func init() {
	applyCmd.Flags().StringVar(&applyFrom, "from", "", "Source schema version (default: detected)")
	applyCmd.Flags().StringVar(&applyTo, "to", "", "Target schema version (default: latest in catalog)")
	applyCmd.Flags().StringVar(&applyCatalog, "catalog", "", "Path to the migration catalog (default: workspace catalog)")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Preview the changes without modifying any file")
	applyCmd.Flags().BoolVar(&applyBranch, "branch", false, "Create a git branch and commit the applied changes")
}

func runApply(cmd *cobra.Command, args []string) {
	if applyBranch && applyDryRun {
		exitError("cannot use --branch with --dry-run")
	}

	c := initContext()
	defer c.Close()

	engine := loadEngine(applyCatalog)
	root := migrationRoot(args)
	from, to := resolveWindow(engine, root, applyFrom, applyTo)

	if !from.Less(to) {
		fmt.Printf("Already at schema version %s, nothing to migrate\n", from)
		return
	}

	plan, err := engine.Plan(root, from, to)
	if err != nil {
		exitError("%v", err)
	}

	printPlan(plan, false)

	if len(plan.Steps) == 0 {
		if len(plan.Unimplemented) > 0 {
			os.Exit(1)
		}
		return
	}

	var git *vcs.Git
	if applyBranch {
		git = vcs.New(plan.Root)
		if !git.IsRepo() {
			exitError("%s is not a git repository", plan.Root)
		}
		// The migration commit stages everything, so unrelated edits
		// must not be sitting in the tree when it runs.
		clean, err := git.IsClean()
		if err != nil {
			exitError("%v", err)
		}
		if !clean {
			exitError("the git working tree has uncommitted changes, commit or stash them first")
		}
		branch := vcs.BranchName(from.String(), to.String())
		if err := git.CreateBranch(branch); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("\nSwitched to new branch %q\n", branch)
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	progress := func(step, total int, description string, d diff.FileDiff) {
		cyan.Printf("[%d/%d] ", step, total)
		fmt.Printf("%s (+%d -%d)\n", description, d.Insertions, d.Deletions)
	}

	opts := migrate.ExecuteOptions{DryRun: applyDryRun, BackupDir: c.Config.BackupsPath()}
	result, execErr := engine.Execute(plan, opts, progress)

	recordRun(c.Journal, plan, from, to, result, execErr)

	if execErr != nil {
		if result != nil && result.Backup != nil {
			fmt.Fprintf(os.Stderr, "Backup retained at %s; run 'gitops-migrate restore %s' to roll back\n",
				result.Backup.Dir, result.Backup.Dir)
		}
		exitError("%v", execErr)
	}

	if applyDryRun && result.Diffs.TotalFiles() > 0 {
		fmt.Println()
		result.Diffs.WriteUnified(os.Stdout)
	}
	result.Diffs.WriteSummary(os.Stdout)

	if applyDryRun {
		fmt.Println("\nDry run, no files were modified. Run again without --dry-run to apply.")
	} else if result.Backup != nil && result.Backup.FileCount() > 0 {
		fmt.Printf("\nBackup of %d file(s) at %s\n", result.Backup.FileCount(), result.Backup.Dir)
		fmt.Printf("Run 'gitops-migrate restore %s' to roll back.\n", result.Backup.Dir)
	}

	if git != nil {
		if err := git.Commit(plan.CommitMessage()); err != nil {
			exitError("changes were applied but not committed: %v", err)
		}
		fmt.Printf("\nCommitted: %s\n", plan.CommitMessage())
	}

	if len(plan.Unimplemented) > 0 {
		color.New(color.FgYellow).Printf("\n%d transformation(s) could not be applied automatically\n",
			len(plan.Unimplemented))
		os.Exit(1)
	}
}

// recordRun appends this execution to the journal. Journal trouble is
// reported but never turns a finished migration into a failure.
func recordRun(j *journal.Journal, plan *migrate.MigrationPlan, from, to migrate.Version, result *migrate.ExecuteResult, execErr error) {
	run := &journal.Run{
		Root:        plan.Root,
		FromVersion: from.String(),
		ToVersion:   to.String(),
		DryRun:      applyDryRun,
		Steps:       len(plan.Steps),
		Status:      journal.StatusApplied,
	}
	if applyDryRun {
		run.Status = journal.StatusPreview
	}
	if result != nil {
		run.FilesChanged = result.FilesWritten
		if applyDryRun {
			run.FilesChanged = len(plan.TouchedFiles())
		}
		run.Insertions = result.Diffs.TotalInsertions()
		run.Deletions = result.Diffs.TotalDeletions()
		if result.Backup != nil {
			run.BackupDir = result.Backup.Dir
		}
	}
	if execErr != nil {
		run.Status = journal.StatusFailed
		run.Error = execErr.Error()
	}

	if err := j.RecordRun(run); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not record the run in the journal: %v\n", err)
	}
}
