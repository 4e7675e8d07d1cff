package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/headmin/gitops-migrate/internal/document"
	"github.com/headmin/gitops-migrate/internal/migrate"
)

var detectCmd = &cobra.Command{
	Use:   "detect <file-or-dir>",
	Short: "Detect the schema version of a document or tree",
	Long: `Detect the schema version of a single document, or of a whole tree by
scoring every document under a directory. Documents carry no version
field, so detection works from structural fingerprints and reports its
confidence alongside the answer.`,
	Args: cobra.ExactArgs(1),
	Run:  runDetect,
}

func runDetect(cmd *cobra.Command, args []string) {
	path := args[0]

	info, err := os.Stat(path)
	if err != nil {
		exitError("%v", err)
	}

	var result migrate.DetectionResult
	if info.IsDir() {
		result, err = migrate.DetectTree(path)
		if err != nil {
			exitError("%v", err)
		}
	} else {
		content, err := os.ReadFile(path)
		if err != nil {
			exitError("failed to read %s: %v", path, err)
		}
		doc, err := document.Parse(content)
		if err != nil {
			exitError("failed to parse %s: %v", path, err)
		}
		result = migrate.DetectDocument(doc)
	}

	printDetection(path, result)
}

// printDetection renders a detection result with the fingerprints that
// produced it.
func printDetection(path string, result migrate.DetectionResult) {
	bold := color.New(color.Bold)
	dim := color.New(color.Faint)

	switch {
	case len(result.Indicators) == 0:
		fmt.Printf("%s: no known schema fingerprints found\n", path)
		return
	case result.Confident():
		fmt.Printf("%s: schema version %s (%.0f%% confidence)\n",
			path, bold.Sprint(result.Version), result.Confidence*100)
	default:
		fmt.Printf("%s: schema version is ambiguous (best signals scored %.0f%%)\n",
			path, result.Confidence*100)
	}

	for _, indicator := range result.Indicators {
		dim.Printf("  - %s\n", indicator)
	}
}
