package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/searchq/db"
	"github.com/teranos/searchq/errors"
	"github.com/teranos/searchq/logger"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the match index database",
	Long: `Manage the SQLite database backing dynamic completions.

Examples:
  searchq db migrate      # apply pending migrations
  searchq db status       # list applied and pending migrations
  searchq db stats        # count repositories, files and symbols`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	Args:  cobra.NoArgs,
	RunE:  runDbMigrate,
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	Args:  cobra.NoArgs,
	RunE:  runDbStatus,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runDbStats,
}

func init() {
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbStatusCmd)
	DbCmd.AddCommand(dbStatsCmd)
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := cfg.GetDatabasePath()
	database, err := db.Open(path, logger.Named("db"))
	if err != nil {
		return errors.Wrapf(err, "failed to open database at %s", path)
	}
	defer database.Close()

	if err := db.Migrate(database, logger.Named("db")); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is up to date\n", path)
	return nil
}

func runDbStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := cfg.GetDatabasePath()
	database, err := db.Open(path, logger.Named("db"))
	if err != nil {
		return errors.Wrapf(err, "failed to open database at %s", path)
	}
	defer database.Close()

	status, err := db.Validate(database)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Database: %s\n", path)
	for _, m := range status.Applied {
		fmt.Fprintf(out, "  applied  %s\n", m)
	}
	for _, m := range status.Pending {
		fmt.Fprintf(out, "  pending  %s\n", m)
	}
	if len(status.Pending) > 0 {
		fmt.Fprintln(out, pterm.Warning.Sprint("Run 'searchq db migrate' to apply pending migrations"))
	}
	return nil
}

func runDbStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, idx, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	stats, err := idx.Stats(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Database Path: %s\n", cfg.GetDatabasePath())
	fmt.Fprintf(out, "Repositories:  %d\n", stats.Repositories)
	fmt.Fprintf(out, "Files:         %d\n", stats.Files)
	fmt.Fprintf(out, "Symbols:       %d\n", stats.Symbols)
	return nil
}
