// Command gitops-migrate migrates configuration repositories between
// schema versions.
package main

import (
	"os"

	"github.com/headmin/gitops-migrate/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
