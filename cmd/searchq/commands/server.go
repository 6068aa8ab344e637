package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/searchq/am"
	"github.com/teranos/searchq/logger"
	"github.com/teranos/searchq/server"
	"github.com/teranos/searchq/version"
)

// ServerCmd serves the HTTP API and LSP over WebSocket
var ServerCmd = &cobra.Command{
	Use:     "server",
	Aliases: []string{"serve"},
	Short:   "Start the completion server",
	Long: `Start the completion server.

Routes:
  /lsp              LSP over WebSocket
  /api/completions  GET ?q=<query>&column=<n>
  /api/diagnostics  GET ?q=<query>
  /api/hover        GET ?q=<query>&column=<n>
  /health           index statistics and server state

Completion options, allowed origins and the rate limit are reloaded when the
active am.toml changes. Port and database changes need a restart.`,
	Args: cobra.NoArgs,
	RunE: runServer,
}

var (
	serverPort    int
	serverNoWatch bool
)

func init() {
	ServerCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Port to listen on (default: server.port)")
	ServerCmd.Flags().BoolVar(&serverNoWatch, "no-watch", false, "Disable config hot reload")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, idx, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	port := cfg.GetServerPort()
	if serverPort != 0 {
		port = serverPort
	}

	srv := server.New(newService(cfg, idx), idx, cfg, logger.Logger)
	if path := am.ActiveConfigPath(); path != "" && !serverNoWatch {
		srv.WatchConfig(path)
	}

	printStartupBanner(cfg, port)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, port); err != nil {
		return err
	}
	pterm.Info.Println("Server stopped")
	return nil
}

func printStartupBanner(cfg *am.Config, port int) {
	pterm.DefaultHeader.WithFullWidth().Printf("searchq %s", version.Get().Short())
	pterm.Info.Printf("Database:   %s\n", cfg.GetDatabasePath())
	pterm.Info.Printf("Port:       %d (falls back to the next free port)\n", port)
	pterm.Info.Printf("Dot-com:    %t  Globbing: %t\n", cfg.Completion.SourcegraphDotCom, cfg.Completion.Globbing)
	if path := am.ActiveConfigPath(); path != "" {
		pterm.Info.Printf("Config:     %s\n", path)
	}
	pterm.Println()
}
