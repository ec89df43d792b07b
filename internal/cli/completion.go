package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/chunksplit/pkg/config"
)

var completionShells = map[string]func(cmd *cobra.Command) error{
	"bash": func(cmd *cobra.Command) error { return cmd.Root().GenBashCompletionV2(cmd.OutOrStdout(), true) },
	"zsh":  func(cmd *cobra.Command) error { return cmd.Root().GenZshCompletion(cmd.OutOrStdout()) },
	"fish": func(cmd *cobra.Command) error { return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true) },
	"powershell": func(cmd *cobra.Command) error {
		return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
	},
}

// completionCommand prints a completion script for the given shell.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Print a completion script for chunksplit. Config arguments of build,
explain and graph complete to .toml, .yaml, .yml and .json files.`,
		Example: `  source <(chunksplit completion bash)
  chunksplit completion zsh > "${fpath[1]}/_chunksplit"
  chunksplit completion fish > ~/.config/fish/completions/chunksplit.fish`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return completionShells[args[0]](cmd)
		},
	}
}

// completeConfigFile restricts the first positional argument to config files.
func completeConfigFile(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return config.Extensions(), cobra.ShellCompDirectiveFilterFileExt
}
