package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the migrations in the catalog",
	Long:  `List every migration the catalog defines, in declaration order.`,
	Run:   runCatalog,
}

var catalogPath string

func init() {
	catalogCmd.Flags().StringVar(&catalogPath, "catalog", "", "Path to the migration catalog (default: workspace catalog)")
}

func runCatalog(cmd *cobra.Command, args []string) {
	engine := loadEngine(catalogPath)

	migrations := engine.Migrations()
	if len(migrations) == 0 {
		fmt.Println("The catalog is empty")
		return
	}

	bold := color.New(color.Bold)
	dim := color.New(color.Faint)

	for _, m := range migrations {
		fmt.Printf("%s  %s -> %s  (%d transformation(s))\n",
			bold.Sprint(m.ID), m.FromVersion, m.ToVersion, len(m.Transformations))
		if m.Description != "" {
			dim.Printf("    %s\n", m.Description)
		}
	}
	fmt.Printf("\nLatest version: %s\n", engine.LatestVersion())
}
