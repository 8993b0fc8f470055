package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for qrraster.

To load completions:

Bash:
  $ source <(qrraster completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ qrraster completion bash > /etc/bash_completion.d/qrraster
  # macOS:
  $ qrraster completion bash > $(brew --prefix)/etc/bash_completion.d/qrraster

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ qrraster completion zsh > "${fpath[1]}/_qrraster"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ qrraster completion fish | source

  # To load completions for each session, execute once:
  $ qrraster completion fish > ~/.config/fish/completions/qrraster.fish

PowerShell:
  PS> qrraster completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> qrraster completion powershell > qrraster.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := c.Stdout
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(w, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(w)
			case "fish":
				return cmd.Root().GenFishCompletion(w, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(w)
			}
			return nil
		},
	}

	return cmd
}
