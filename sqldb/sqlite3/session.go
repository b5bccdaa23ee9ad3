// Package sqlite3 registers the SQLite driver and provides a session store for it.
package sqlite3

import (
	"database/sql"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	_ "github.com/mattn/go-sqlite3"
)

const Driver = "sqlite3"

func NewSessionStore(db *sql.DB) (scs.Store, error) {

	for _, statement := range []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expiry REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry)`,
	} {
		if _, err := db.Exec(statement); err != nil {
			return nil, err
		}
	}

	return sqlite3store.New(db), nil
}
