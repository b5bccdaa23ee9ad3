package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wansing/pubflow/core"
)

type AccessDB struct {
	*sql.DB
	get    *sql.Stmt
	insert *sql.Stmt
	remove *sql.Stmt
}

func NewAccessDB(db *sql.DB, driver string) (*AccessDB, error) {

	err := schema(db, driver, `
		CREATE TABLE IF NOT EXISTS access (
			wiki varchar(64) NOT NULL,
			grp varchar(64) NOT NULL,
			permission int(11) NOT NULL,
			PRIMARY KEY (wiki, grp)
		)`)
	if err != nil {
		return nil, err
	}

	var accessDB = &AccessDB{}
	accessDB.DB = db
	accessDB.get = mustPrepare(db, "SELECT grp, permission FROM access WHERE wiki = ?")
	accessDB.insert = mustPrepare(db, "INSERT INTO access (wiki, grp, permission) VALUES (?, ?, ?)")
	accessDB.remove = mustPrepare(db, "DELETE FROM access WHERE wiki = ? AND grp = ?")
	return accessDB, nil
}

func (db *AccessDB) GetAccessRules(ctx context.Context, wiki string) (map[string]core.Level, error) {

	rows, err := db.get.QueryContext(ctx, wiki)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules = map[string]core.Level{}
	for rows.Next() {
		var group string
		var perm int
		if err = rows.Scan(&group, &perm); err != nil {
			return nil, err
		}
		rules[group] = core.Level(perm)
	}
	return rules, rows.Err()
}

// InsertAccessRule replaces an existing rule for the group.
func (db *AccessDB) InsertAccessRule(ctx context.Context, wiki, group string, level core.Level) error {

	if !level.Valid() {
		return fmt.Errorf("invalid level %d", level)
	}

	return inTx(ctx, db.DB, func(tx *sql.Tx) error {
		if _, err := tx.StmtContext(ctx, db.remove).ExecContext(ctx, wiki, group); err != nil {
			return err
		}
		_, err := tx.StmtContext(ctx, db.insert).ExecContext(ctx, wiki, group, int(level))
		return err
	})
}

func (db *AccessDB) RemoveAccessRule(ctx context.Context, wiki, group string) error {
	_, err := db.remove.ExecContext(ctx, wiki, group)
	return err
}
