// Package sqldb implements the core database interfaces with database/sql.
//
// The schema works with SQLite and MySQL. Statements are prepared once when a store is created.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/wansing/pubflow/core"
	"github.com/wansing/pubflow/upload"
)

func mustPrepare(db *sql.DB, query string) *sql.Stmt {
	stmt, err := db.Prepare(query)
	if err != nil {
		panic(fmt.Errorf("preparing %s: %w", query, err))
	}
	return stmt
}

// schema creates the tables. The placeholder {{id}} is replaced by an auto-increment primary key definition.
func schema(db *sql.DB, driver string, statements ...string) error {
	var id = "id INTEGER PRIMARY KEY"
	if driver == "mysql" {
		id = "id INTEGER PRIMARY KEY AUTO_INCREMENT"
	}
	for _, statement := range statements {
		if _, err := db.Exec(strings.ReplaceAll(statement, "{{id}}", id)); err != nil {
			return err
		}
	}
	return nil
}

// escapeLike escapes s for use in a LIKE pattern with ESCAPE '!'.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

// Stores contains one store per core database interface, all backed by the same database.
type Stores struct {
	Access    *AccessDB
	Configs   *WorkflowDB
	Documents *DocumentDB
	Groups    *GroupDB
	Users     *UserDB
}

// New creates the tables if they don't exist and prepares the statements. The driver is "sqlite3" or "mysql".
func New(db *sql.DB, driver string) (*Stores, error) {

	var stores = &Stores{}
	var err error

	if stores.Access, err = NewAccessDB(db, driver); err != nil {
		return nil, err
	}
	if stores.Configs, err = NewWorkflowDB(db, driver); err != nil {
		return nil, err
	}
	if stores.Documents, err = NewDocumentDB(db, driver); err != nil {
		return nil, err
	}
	if stores.Groups, err = NewGroupDB(db, driver); err != nil {
		return nil, err
	}
	if stores.Users, err = NewUserDB(db, driver); err != nil {
		return nil, err
	}
	return stores, nil
}

// CoreDB returns a CoreDB which uses the stores. Attachments can be nil.
func (s *Stores) CoreDB(classes core.ClassRegistry, attachments upload.Store) *core.CoreDB {
	return &core.CoreDB{
		AccessDB:      s.Access,
		ClassRegistry: classes,
		ConfigDB:      s.Configs,
		DocumentDB:    s.Documents,
		GroupDB:       s.Groups,
		UserDB:        s.Users,
		Attachments:   attachments,
		Events:        core.NewBus(),
	}
}

func rollback(tx *sql.Tx, err error) error {
	_ = tx.Rollback()
	return err
}

// inTx runs f in a transaction.
func inTx(ctx context.Context, db *sql.DB, f func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		return rollback(tx, err)
	}
	return tx.Commit()
}
