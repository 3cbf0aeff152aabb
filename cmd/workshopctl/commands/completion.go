package commands

import (
	"os"

	"github.com/spf13/cobra"
)

// Completion returns the completion command for shell autocompletion.
func Completion() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for workshopctl.

To load completions:

Bash:
  $ source <(workshopctl completion bash)
  # To load completions for each session, execute once:
  # Linux:
  $ workshopctl completion bash > /etc/bash_completion.d/workshopctl
  # macOS:
  $ workshopctl completion bash > $(brew --prefix)/etc/bash_completion.d/workshopctl

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc
  # To load completions for each session, execute once:
  $ workshopctl completion zsh > "${fpath[1]}/_workshopctl"
  # You will need to start a new shell for this setup to take effect.

Fish:
  $ workshopctl completion fish | source
  # To load completions for each session, execute once:
  $ workshopctl completion fish > ~/.config/fish/completions/workshopctl.fish

PowerShell:
  PS> workshopctl completion powershell | Out-String | Invoke-Expression
  # To load completions for every new session, run:
  PS> workshopctl completion powershell > workshopctl.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
	return cmd
}
