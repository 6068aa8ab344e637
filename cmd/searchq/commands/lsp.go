package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/searchq/logger"
	"github.com/teranos/searchq/server"
)

// LspCmd runs the language server over stdio or TCP
var LspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Run the search query language server",
	Long: `Run the search query language server.

By default the server speaks LSP over stdio, for editors that spawn it.
With --tcp it listens on an address and serves every connecting client.
Logs go to stderr.

Examples:
  searchq lsp                     # stdio
  searchq lsp --tcp :4389         # TCP`,
	Args: cobra.NoArgs,
	RunE: runLsp,
}

var (
	lspTCPAddr string
	lspDebug   bool
)

func init() {
	LspCmd.Flags().StringVar(&lspTCPAddr, "tcp", "", "Listen on this TCP address instead of stdio")
	LspCmd.Flags().BoolVar(&lspDebug, "debug", false, "Log every JSON-RPC message")
}

func runLsp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, idx, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	handler := server.NewGLSPHandler(cmd.Context(), newService(cfg, idx), cfg.Server.MaxDocuments, logger.Named("glsp"))
	if lspTCPAddr != "" {
		logger.Infow("Language server listening", "address", lspTCPAddr)
		return server.ServeTCP(handler, lspTCPAddr, lspDebug)
	}
	return server.ServeStdio(handler, lspDebug)
}
