// Package mysql registers the MySQL driver and provides a session store for it.
package mysql

import (
	"database/sql"
	"strings"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/v2"
	_ "github.com/go-sql-driver/mysql"
)

const Driver = "mysql"

func NewSessionStore(db *sql.DB) (scs.Store, error) {

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			token CHAR(43) PRIMARY KEY,
			data BLOB NOT NULL,
			expiry TIMESTAMP(6) NOT NULL
		)`)
	if err != nil {
		return nil, err
	}

	// MySQL has no CREATE INDEX IF NOT EXISTS
	_, err = db.Exec(`CREATE INDEX sessions_expiry_idx ON sessions (expiry)`)
	if err != nil && !strings.Contains(err.Error(), "Duplicate key name") {
		return nil, err
	}

	return mysqlstore.New(db), nil
}
