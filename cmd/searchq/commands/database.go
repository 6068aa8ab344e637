package commands

import (
	"database/sql"

	"github.com/teranos/searchq/am"
	"github.com/teranos/searchq/completion"
	"github.com/teranos/searchq/db"
	"github.com/teranos/searchq/errors"
	"github.com/teranos/searchq/logger"
	"github.com/teranos/searchq/lsp"
	"github.com/teranos/searchq/storage"
)

// dbPathFlag overrides database.path for every command that opens the index
var dbPathFlag string

// loadConfig loads the configuration cascade and applies --db-path
func loadConfig() (*am.Config, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	if dbPathFlag != "" {
		copied := *cfg
		copied.Database.Path = dbPathFlag
		cfg = &copied
	}
	return cfg, nil
}

// openIndex opens and migrates the match index at the configured path
func openIndex(cfg *am.Config) (*sql.DB, *storage.MatchIndex, error) {
	path := cfg.GetDatabasePath()
	database, err := db.OpenWithMigrations(path, logger.Named("db"))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open database at %s", path)
	}

	idx, err := storage.NewMatchIndex(database, logger.Named("index"))
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	return database, idx, nil
}

// newService builds the language service over idx with the configured
// completion options and fetch deadline. A nil idx yields static suggestions
// only.
func newService(cfg *am.Config, idx completion.Fetcher) *lsp.Service {
	if idx != nil {
		idx = completion.WithTimeout(idx, cfg.Completion.FetchTimeout())
	}
	return lsp.NewService(idx, cfg.Completion.Options(), logger.Named("lsp"))
}
