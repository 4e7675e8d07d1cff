package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/headmin/gitops-migrate/internal/config"
	"github.com/headmin/gitops-migrate/internal/lint"
)

var lintCmd = &cobra.Command{
	Use:   "lint <file>...",
	Short: "Check documents for structural problems",
	Long: `Check configuration documents for structural problems: a non-mapping
root, keys the current schema no longer allows at top level, and path
references to files that do not exist. With a JSON Schema configured,
each document is validated against it as well.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runLint,
}

var lintSchema string

func init() {
	lintCmd.Flags().StringVar(&lintSchema, "schema", "", "JSON Schema to validate documents against")
}

func runLint(cmd *cobra.Command, args []string) {
	linter := lint.New()

	// The workspace config can carry a schema; the flag wins, and
	// running outside a workspace just means no schema validation.
	schemaPath := lintSchema
	if schemaPath == "" {
		if cfg, err := config.Load(); err == nil {
			schemaPath = cfg.SchemaPath()
		}
	}
	if schemaPath != "" {
		if err := linter.LoadSchema(schemaPath); err != nil {
			exitError("%v", err)
		}
	}

	var report lint.Report
	for _, path := range args {
		report.Merge(linter.LintFile(path))
	}

	if report.TotalIssues() == 0 {
		fmt.Printf("%d file(s) checked, no issues\n", len(args))
		return
	}

	printFindings(report)

	fmt.Printf("\n%d issue(s) in %d file(s) checked\n", report.TotalIssues(), len(args))
	if report.HasErrors() {
		os.Exit(1)
	}
}

// printFindings renders findings grouped by severity, errors first.
func printFindings(report lint.Report) {
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	dim := color.New(color.Faint)

	printGroup := func(findings []lint.Finding, label *color.Color, severity string) {
		for _, f := range findings {
			fmt.Printf("%s: ", f.File)
			label.Printf("%s: ", severity)
			fmt.Printf("%s ", f.Message)
			dim.Printf("(%s)\n", f.Rule)
			if f.Help != "" {
				dim.Printf("  help: %s\n", f.Help)
			}
		}
	}

	printGroup(report.Errors, red, "error")
	printGroup(report.Warnings, yellow, "warning")
	printGroup(report.Infos, cyan, "info")
}
