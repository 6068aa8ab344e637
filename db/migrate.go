package db

import (
	"database/sql"
	"embed"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/searchq/errors"
)

//go:embed sqlite/migrations/*.sql
var migrations embed.FS

// migrationFiles lists embedded migrations in apply order
func migrationFiles() ([]string, error) {
	entries, err := migrations.ReadDir("sqlite/migrations")
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func versionOf(filename string) string {
	return strings.Split(filename, "_")[0]
}

// Migrate runs all pending migrations.
// If logger is provided, logs migration progress; otherwise operates silently.
func Migrate(db *sql.DB, logger *zap.SugaredLogger) error {
	files, err := migrationFiles()
	if err != nil {
		return err
	}

	for _, filename := range files {
		version := versionOf(filename)

		// schema_migrations is created by 000
		var exists bool
		err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", version).Scan(&exists)
		if err != nil {
			if version != "000" {
				return errors.Newf("schema_migrations table missing, but migration is not 000: %s", filename)
			}
		} else if exists {
			if logger != nil {
				logger.Debugw("Skipping migration (already applied)", "migration", filename)
			}
			continue
		}

		sqlBytes, err := migrations.ReadFile(filepath.Join("sqlite/migrations", filename))
		if err != nil {
			return errors.Wrapf(err, "read %s", filename)
		}

		if logger != nil {
			logger.Infow("Applying migration", "migration", filename, "version", version)
		}

		tx, err := db.Begin()
		if err != nil {
			return errors.Wrapf(err, "begin tx for %s", filename)
		}
		if _, err := tx.Exec(string(sqlBytes)); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "execute %s", filename)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "record %s", filename)
		}
		if err := tx.Commit(); err != nil {
			return errors.Wrapf(err, "commit %s", filename)
		}
	}

	if logger != nil {
		logger.Infow("Migrations complete", "total_migrations", len(files))
	}
	return nil
}

// Status reports which embedded migrations have and have not been applied
type Status struct {
	Applied []string
	Pending []string
}

// Validate compares the database against the embedded migrations without
// changing anything.
func Validate(db *sql.DB) (*Status, error) {
	files, err := migrationFiles()
	if err != nil {
		return nil, err
	}

	applied := map[string]bool{}
	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				return nil, errors.Wrap(err, "scan schema_migrations")
			}
			applied[v] = true
		}
		if err := rows.Err(); err != nil {
			return nil, errors.Wrap(err, "read schema_migrations")
		}
	}
	// A missing schema_migrations table leaves every migration pending

	status := &Status{}
	for _, f := range files {
		if applied[versionOf(f)] {
			status.Applied = append(status.Applied, f)
		} else {
			status.Pending = append(status.Pending, f)
		}
	}
	return status, nil
}

// RequireCurrent fails when migrations are pending
func RequireCurrent(db *sql.DB) error {
	status, err := Validate(db)
	if err != nil {
		return err
	}
	if len(status.Pending) > 0 {
		return errors.WithHint(
			errors.Newf("%d pending migrations: %s", len(status.Pending), strings.Join(status.Pending, ", ")),
			"run 'searchq db migrate' first")
	}
	return nil
}
