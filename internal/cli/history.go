package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/headmin/gitops-migrate/internal/journal"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past migration runs",
	Long:  `Display the journal of migration runs recorded for this workspace.`,
	Run:   runHistory,
}

var (
	historyOneline bool
	historyLimit   int
)

func init() {
	historyCmd.Flags().BoolVar(&historyOneline, "oneline", false, "Show each run on a single line")
	historyCmd.Flags().IntVarP(&historyLimit, "n", "n", 0, "Limit the number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	runs, err := c.Journal.ListRuns(historyLimit)
	if err != nil {
		exitError("failed to read journal: %v", err)
	}

	if len(runs) == 0 {
		fmt.Println("No migration runs yet")
		return
	}

	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	red := color.New(color.FgRed)

	for _, run := range runs {
		if historyOneline {
			yellow.Printf("%s ", shortID(run.ID))
			switch run.Status {
			case journal.StatusPreview:
				cyan.Print("[preview] ")
			case journal.StatusFailed:
				red.Print("[failed] ")
			}
			fmt.Printf("%s -> %s, %d file(s) +%d -%d\n",
				run.FromVersion, run.ToVersion, run.FilesChanged, run.Insertions, run.Deletions)
			continue
		}

		yellow.Printf("run %s", run.ID)
		switch run.Status {
		case journal.StatusPreview:
			cyan.Print(" [preview]")
		case journal.StatusFailed:
			red.Print(" [failed]")
		}
		fmt.Println()
		fmt.Printf("Date:   %s\n", run.StartedAt.Format("Mon Jan 2 15:04:05 2006"))
		fmt.Printf("\n    %s -> %s under %s\n", run.FromVersion, run.ToVersion, run.Root)
		fmt.Printf("    (%d step(s), %d file(s) changed, +%d -%d)\n",
			run.Steps, run.FilesChanged, run.Insertions, run.Deletions)
		if run.BackupDir != "" {
			fmt.Printf("    backup: %s\n", run.BackupDir)
		}
		if run.Error != "" {
			red.Printf("    error: %s\n", run.Error)
		}
		fmt.Println()
	}
}
