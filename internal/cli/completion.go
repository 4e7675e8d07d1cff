package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "completion [bash|zsh|fish]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for gitops-migrate.

To load completions:

Bash:
  $ source <(gitops-migrate completion bash)
  # Or add to ~/.bashrc:
  $ echo 'source <(gitops-migrate completion bash)' >> ~/.bashrc

Zsh:
  $ source <(gitops-migrate completion zsh)
  # Or add to ~/.zshrc:
  $ echo 'source <(gitops-migrate completion zsh)' >> ~/.zshrc

Fish:
  $ gitops-migrate completion fish | source
  # Or add to config:
  $ gitops-migrate completion fish > ~/.config/fish/completions/gitops-migrate.fish
`,
		ValidArgs:             []string{"bash", "zsh", "fish"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		DisableFlagsInUseLine: true,
		Run: func(cmd *cobra.Command, args []string) {
			switch args[0] {
			case "bash":
				rootCmd.GenBashCompletion(os.Stdout)
			case "zsh":
				rootCmd.GenZshCompletion(os.Stdout)
			case "fish":
				rootCmd.GenFishCompletion(os.Stdout, true)
			}
		},
	})
}
