package store

import (
	"database/sql"
	"errors"
)

// ErrNotFound is returned when a lookup finds no matching row.
var ErrNotFound = errors.New("store: not found")

// ErrUnknownGroup is returned when a group name outside the required set
// (spec §3: admin, auto_legit, auto_suspect, legit, suspect) is requested.
var ErrUnknownGroup = errors.New("store: unknown group")

// isNoRows reports whether err is bun/database's no-rows-found error.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
