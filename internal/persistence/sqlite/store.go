// SPDX-License-Identifier: MIT

package sqlite

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a playlist or channel row does not exist.
var ErrNotFound = errors.New("not found")

// Store implements the playlistd storage contract against a SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// millis converts a time to the persisted unix-millisecond representation;
// the zero time maps to 0 ("never").
func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func fromNull(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
