package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/searchq/logger"
	"github.com/teranos/searchq/server"
)

// McpCmd exposes completion as MCP tools over stdio
var McpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP server exposing query completion tools",
	Long: `Run a Model Context Protocol server on stdin/stdout.

Tools:
  complete_search_query   completions for a query at a column
  diagnose_search_query   problems in a query`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, idx, err := openIndex(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		return server.NewMCPServer(newService(cfg, idx), logger.Named("mcp")).ServeStdio()
	},
}
