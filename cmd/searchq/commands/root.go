package commands

import (
	"github.com/spf13/cobra"
)

// AddPersistentFlags registers flags shared by every command on root
func AddPersistentFlags(root *cobra.Command) {
	root.PersistentFlags().CountP("verbose", "v", "Increase log verbosity (repeat for more detail: -v, -vv, -vvv)")
	root.PersistentFlags().Bool("log-json", false, "Write logs to stderr as JSON")
	root.PersistentFlags().StringVar(&dbPathFlag, "db-path", "", "Match index database path (overrides database.path)")
}

// Commands returns every top-level command
func Commands() []*cobra.Command {
	return []*cobra.Command{
		AmCmd,
		CheckCmd,
		CompleteCmd,
		DbCmd,
		LspCmd,
		McpCmd,
		RepoCmd,
		ServerCmd,
		URLCmd,
		VersionCmd,
	}
}
