package database

import (
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/noah-isme/bus-schedule/pkg/config"
)

// NewSQLite opens the in-memory or file-backed SQLite store.
//
// The pool is pinned to a single connection that is never recycled: every
// connection to ":memory:" is a distinct database, and the foreign key pragma
// is per connection.
func NewSQLite(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	path := cfg.Path
	if path == "" {
		path = config.MemoryPath
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
