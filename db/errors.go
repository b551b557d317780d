package db

import (
	"strings"

	"github.com/teranos/callsheet/errors"
)

// ErrDatabaseClosed is returned when the journal is written after Close.
// A run that is shutting down can still emit its final events.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed checks if an error indicates the database connection is closed.
// The sql package reports its own closed error that cannot be wrapped at the
// source, so the message is matched as a fallback.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}
