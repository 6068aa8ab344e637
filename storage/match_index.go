// Package storage keeps the repositories, file paths and symbols that
// dynamic completion draws from.
package storage

import (
	"context"
	"database/sql"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/teranos/searchq/completion"
	"github.com/teranos/searchq/db"
	"github.com/teranos/searchq/errors"
	"github.com/teranos/searchq/filter"
)

const (
	// DefaultMatchLimit applies when a fetch does not set its own limit
	DefaultMatchLimit = 50
	// MaxMatchLimit caps any single fetch, including glob candidate scans
	MaxMatchLimit = 1000
)

// Repository is an indexed repository
type Repository struct {
	ID            int64  `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"` // e.g. github.com/sourcegraph/jsonrpc2
	RemoteURL     string `json:"remote_url" yaml:"remote_url"`
	DefaultBranch string `json:"default_branch" yaml:"default_branch"`
}

// Stats summarizes the index contents
type Stats struct {
	Repositories int `json:"repositories"`
	Files        int `json:"files"`
	Symbols      int `json:"symbols"`
}

// MatchIndex answers completion fetches from SQLite. It holds no state of
// its own; database/sql pooling makes it safe for concurrent use.
type MatchIndex struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

var _ completion.Fetcher = (*MatchIndex)(nil)

// NewMatchIndex validates that the schema is migrated and returns an index.
func NewMatchIndex(conn *sql.DB, logger *zap.SugaredLogger) (*MatchIndex, error) {
	var tableName string
	err := conn.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='repositories'
	`).Scan(&tableName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.WithHint(errors.New("repositories table not found"),
			"run 'searchq db migrate' first")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to validate schema")
	}

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &MatchIndex{db: conn, logger: logger}, nil
}

// AddRepository inserts or updates a repository by name and returns its id
func (idx *MatchIndex) AddRepository(ctx context.Context, repo Repository) (int64, error) {
	if repo.Name == "" {
		return 0, errors.NewInvalidRequestError("repository name is empty")
	}
	_, err := idx.db.ExecContext(ctx, `
		INSERT INTO repositories (name, remote_url, default_branch)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			remote_url = excluded.remote_url,
			default_branch = excluded.default_branch,
			indexed_at = CURRENT_TIMESTAMP
	`, repo.Name, repo.RemoteURL, repo.DefaultBranch)
	if err != nil {
		return 0, errors.Wrapf(err, "upsert repository %s", repo.Name)
	}

	var id int64
	if err := idx.db.QueryRowContext(ctx, "SELECT id FROM repositories WHERE name = ?", repo.Name).Scan(&id); err != nil {
		return 0, errors.Wrapf(err, "look up repository %s", repo.Name)
	}
	return id, nil
}

// ReplaceFiles swaps the file list of a repository in one transaction.
// Symbols of removed files go with them.
func (idx *MatchIndex) ReplaceFiles(ctx context.Context, repoID int64, paths []string) error {
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin file replace")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE repository_id = ?", repoID); err != nil {
		return errors.Wrap(err, "clear files")
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO files (repository_id, path) VALUES (?, ?)")
	if err != nil {
		return errors.Wrap(err, "prepare file insert")
	}
	defer stmt.Close()

	for _, p := range paths {
		if _, err := stmt.ExecContext(ctx, repoID, p); err != nil {
			return errors.Wrapf(err, "insert file %s", p)
		}
	}
	return errors.Wrap(tx.Commit(), "commit files")
}

// AddSymbol records a symbol defined in an indexed file
func (idx *MatchIndex) AddSymbol(ctx context.Context, repoID int64, path string, sym completion.Symbol) error {
	res, err := idx.db.ExecContext(ctx, `
		INSERT INTO symbols (file_id, name, kind, container_name)
		SELECT id, ?, ?, ? FROM files WHERE repository_id = ? AND path = ?
	`, sym.Name, sym.Kind, sym.ContainerName, repoID, path)
	if err != nil {
		return errors.Wrapf(err, "insert symbol %s", sym.Name)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFoundError("file %s is not indexed", path)
	}
	return nil
}

// RemoveRepository deletes a repository and everything indexed under it
func (idx *MatchIndex) RemoveRepository(ctx context.Context, name string) error {
	res, err := idx.db.ExecContext(ctx, "DELETE FROM repositories WHERE name = ?", name)
	if err != nil {
		return errors.Wrapf(err, "delete repository %s", name)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFoundError("repository %s is not indexed", name)
	}
	return nil
}

// Repositories lists indexed repositories by name
func (idx *MatchIndex) Repositories(ctx context.Context) ([]Repository, error) {
	rows, err := idx.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(remote_url, ''), COALESCE(default_branch, '')
		FROM repositories ORDER BY name
	`)
	if err != nil {
		return nil, errors.Wrap(err, "query repositories")
	}
	defer rows.Close()

	var repos []Repository
	for rows.Next() {
		var r Repository
		if err := rows.Scan(&r.ID, &r.Name, &r.RemoteURL, &r.DefaultBranch); err != nil {
			return nil, errors.Wrap(err, "scan repository")
		}
		repos = append(repos, r)
	}
	return repos, errors.Wrap(rows.Err(), "read repositories")
}

// Stats counts indexed rows
func (idx *MatchIndex) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := idx.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM repositories),
			(SELECT COUNT(*) FROM files),
			(SELECT COUNT(*) FROM symbols)
	`).Scan(&s.Repositories, &s.Files, &s.Symbols)
	if err != nil {
		return Stats{}, errors.Wrap(err, "count index rows")
	}
	return s, nil
}

// Fetch implements completion.Fetcher. The value is matched case-insensitively
// as a substring, prefix matches first; with req.Glob set and a glob value it
// is matched with doublestar instead.
func (idx *MatchIndex) Fetch(ctx context.Context, req completion.FetchRequest) ([]completion.SearchMatch, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultMatchLimit
	}
	if limit > MaxMatchLimit {
		limit = MaxMatchLimit
	}

	m := matcher{value: normalizeValue(req.Value)}
	if req.Glob && isGlob(m.value) {
		if doublestar.ValidatePattern(m.value) {
			m.glob = true
		} else {
			idx.logger.Debugw("Invalid glob, falling back to substring match", "value", m.value)
		}
	}

	var (
		matches []completion.SearchMatch
		err     error
	)
	switch req.Kind {
	case filter.SuggestRepo:
		matches, err = idx.fetchRepos(ctx, m, limit)
	case filter.SuggestPath:
		matches, err = idx.fetchPaths(ctx, m, limit)
	case filter.SuggestAny:
		matches, err = idx.fetchAny(ctx, m, limit)
	default:
		return nil, nil
	}
	if err != nil {
		if db.IsDatabaseClosed(err) {
			return nil, errors.Wrap(errors.Mark(err, errors.ErrServiceUnavailable), "match index closed")
		}
		return nil, err
	}

	idx.logger.Debugw("Fetched matches",
		"kind", req.Kind,
		"value", req.Value,
		"glob", m.glob,
		"count", len(matches),
	)
	return matches, nil
}

func (idx *MatchIndex) fetchAny(ctx context.Context, m matcher, limit int) ([]completion.SearchMatch, error) {
	repos, err := idx.fetchRepos(ctx, m, limit)
	if err != nil {
		return nil, err
	}
	matches := repos

	if remaining := limit - len(matches); remaining > 0 {
		paths, err := idx.fetchPaths(ctx, m, remaining)
		if err != nil {
			return nil, err
		}
		matches = append(matches, paths...)
	}
	if remaining := limit - len(matches); remaining > 0 && !m.glob {
		symbols, err := idx.fetchSymbols(ctx, m, remaining)
		if err != nil {
			return nil, err
		}
		matches = append(matches, symbols...)
	}
	return matches, nil
}

func (idx *MatchIndex) fetchRepos(ctx context.Context, m matcher, limit int) ([]completion.SearchMatch, error) {
	query := `SELECT name FROM repositories `
	rows, err := idx.queryMatching(ctx, query, "name", m, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query repositories")
	}
	defer rows.Close()

	var matches []completion.SearchMatch
	for rows.Next() && len(matches) < limit {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "scan repository")
		}
		if m.glob && !m.matchGlob(name) {
			continue
		}
		matches = append(matches, completion.SearchMatch{Type: completion.RepoMatch, Repository: name})
	}
	return matches, errors.Wrap(rows.Err(), "read repositories")
}

func (idx *MatchIndex) fetchPaths(ctx context.Context, m matcher, limit int) ([]completion.SearchMatch, error) {
	query := `SELECT r.name, f.path FROM files f JOIN repositories r ON r.id = f.repository_id `
	rows, err := idx.queryMatching(ctx, query, "f.path", m, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query files")
	}
	defer rows.Close()

	var matches []completion.SearchMatch
	for rows.Next() && len(matches) < limit {
		var repo, path string
		if err := rows.Scan(&repo, &path); err != nil {
			return nil, errors.Wrap(err, "scan file")
		}
		if m.glob && !m.matchGlob(path) {
			continue
		}
		matches = append(matches, completion.SearchMatch{Type: completion.PathMatch, Repository: repo, Path: path})
	}
	return matches, errors.Wrap(rows.Err(), "read files")
}

func (idx *MatchIndex) fetchSymbols(ctx context.Context, m matcher, limit int) ([]completion.SearchMatch, error) {
	query := `
		SELECT r.name, f.path, s.name, s.kind, s.container_name
		FROM symbols s
		JOIN files f ON f.id = s.file_id
		JOIN repositories r ON r.id = f.repository_id `
	rows, err := idx.queryMatching(ctx, query, "s.name", m, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query symbols")
	}
	defer rows.Close()

	var matches []completion.SearchMatch
	for rows.Next() {
		var repo, path string
		var sym completion.Symbol
		if err := rows.Scan(&repo, &path, &sym.Name, &sym.Kind, &sym.ContainerName); err != nil {
			return nil, errors.Wrap(err, "scan symbol")
		}
		matches = append(matches, completion.SearchMatch{
			Type:       completion.SymbolMatch,
			Repository: repo,
			Path:       path,
			Symbols:    []completion.Symbol{sym},
		})
	}
	return matches, errors.Wrap(rows.Err(), "read symbols")
}

// queryMatching appends the match condition and ordering for column. Glob
// matches are filtered by the caller, so they scan up to MaxMatchLimit rows.
func (idx *MatchIndex) queryMatching(ctx context.Context, query, column string, m matcher, limit int) (*sql.Rows, error) {
	if m.glob {
		return idx.db.QueryContext(ctx, query+"ORDER BY "+column+" LIMIT ?", MaxMatchLimit)
	}
	pattern := escapeLike(m.value)
	return idx.db.QueryContext(ctx,
		query+`WHERE `+column+` LIKE ? ESCAPE '\'
		ORDER BY (`+column+` LIKE ? ESCAPE '\') DESC, length(`+column+`), `+column+`
		LIMIT ?`,
		"%"+pattern+"%", pattern+"%", limit)
}
