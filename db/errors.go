package db

import (
	"strings"

	"github.com/teranos/searchq/errors"
)

// ErrDatabaseClosed is returned when the index is queried during shutdown,
// after the connection was closed under an in-flight completion request.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed reports whether err is ErrDatabaseClosed or a driver error
// saying the same thing.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}

	errMsg := err.Error()
	return strings.Contains(errMsg, "database is closed") ||
		strings.Contains(errMsg, "sql: database is closed")
}
