package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/searchq/cmd/searchq/commands"
	"github.com/teranos/searchq/errors"
	"github.com/teranos/searchq/logger"
)

var rootCmd = &cobra.Command{
	Use:   "searchq",
	Short: "searchq - search query completion and diagnostics",
	Long: `searchq - completion, diagnostics and hover for Sourcegraph-style search queries.

Suggestions cover filter names, static filter values, predicates and, from a
local SQLite index, repositories, files and symbols.

Available commands:
  complete - Suggest completions for a query
  check    - Report problems in a query
  repo     - Index repositories for dynamic suggestions
  lsp      - Run the language server (stdio or TCP)
  server   - Serve HTTP and LSP over WebSocket
  mcp      - Run an MCP server
  url      - Link a local file on Sourcegraph
  am       - Manage configuration
  db       - Manage the index database

Examples:
  searchq repo add .
  searchq complete 'repo:json'
  searchq check 'langg:go'
  searchq server`,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("log-json")
		// Long-running commands report startup at info level by default
		if verbosity == 0 && (cmd.Name() == "server" || cmd.Name() == "lsp") {
			verbosity = logger.VerbosityInfo
		}
		if err := logger.InitializeWithVerbosity(jsonLogs, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	commands.AddPersistentFlags(rootCmd)
	rootCmd.AddCommand(commands.Commands()...)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
		os.Exit(1)
	}
}
