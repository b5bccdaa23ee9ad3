package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/wansing/pubflow/core"
)

type group struct {
	id   int
	name string
}

func (g *group) ID() int {
	return g.id
}

func (g *group) Name() string {
	return g.name
}

type GroupDB struct {
	*sql.DB
	delete       *sql.Stmt
	getAll       *sql.Stmt
	getByName    *sql.Stmt
	getOf        *sql.Stmt
	getParents   *sql.Stmt
	insert       *sql.Stmt
	join         *sql.Stmt
	leave        *sql.Stmt
	leaveUsers   *sql.Stmt
	nest         *sql.Stmt
	unnestGroups *sql.Stmt
}

func NewGroupDB(db *sql.DB, driver string) (*GroupDB, error) {

	err := schema(db, driver, `
		CREATE TABLE IF NOT EXISTS grp (
			{{id}},
			name varchar(64) NOT NULL,
			UNIQUE(name)
		)`, `
		CREATE TABLE IF NOT EXISTS membership (
			grp int(11) NOT NULL,
			usr int(11) NOT NULL,
			PRIMARY KEY (grp, usr)
		)`, `
		CREATE TABLE IF NOT EXISTS grp_nesting (
			parent int(11) NOT NULL,
			child int(11) NOT NULL,
			PRIMARY KEY (parent, child)
		)`)
	if err != nil {
		return nil, err
	}

	var groupDB = &GroupDB{}
	groupDB.DB = db
	groupDB.delete = mustPrepare(db, "DELETE FROM grp WHERE id = ?")
	groupDB.getAll = mustPrepare(db, "SELECT id, name FROM grp ORDER BY name LIMIT ? OFFSET ?")
	groupDB.getByName = mustPrepare(db, "SELECT id FROM grp WHERE name = ? LIMIT 1")
	groupDB.getOf = mustPrepare(db, "SELECT grp.id, grp.name FROM grp, membership WHERE grp.id = membership.grp AND membership.usr = ? ORDER BY grp.id")
	groupDB.getParents = mustPrepare(db, "SELECT grp.id, grp.name FROM grp, grp_nesting WHERE grp.id = grp_nesting.parent AND grp_nesting.child = ? ORDER BY grp.id")
	groupDB.insert = mustPrepare(db, "INSERT INTO grp (name) VALUES (?)")
	groupDB.join = mustPrepare(db, "INSERT INTO membership (grp, usr) VALUES (?, ?)")
	groupDB.leave = mustPrepare(db, "DELETE FROM membership WHERE grp = ? AND usr = ?")
	groupDB.leaveUsers = mustPrepare(db, "DELETE FROM membership WHERE grp = ?")
	groupDB.nest = mustPrepare(db, "INSERT INTO grp_nesting (parent, child) VALUES (?, ?)")
	groupDB.unnestGroups = mustPrepare(db, "DELETE FROM grp_nesting WHERE parent = ? OR child = ?")
	return groupDB, nil
}

func (db *GroupDB) DeleteGroup(ctx context.Context, g core.DBGroup) error {
	return inTx(ctx, db.DB, func(tx *sql.Tx) error {
		if _, err := tx.StmtContext(ctx, db.leaveUsers).ExecContext(ctx, g.ID()); err != nil {
			return err
		}
		if _, err := tx.StmtContext(ctx, db.unnestGroups).ExecContext(ctx, g.ID(), g.ID()); err != nil {
			return err
		}
		_, err := tx.StmtContext(ctx, db.delete).ExecContext(ctx, g.ID())
		return err
	})
}

func (db *GroupDB) GetGroupByName(ctx context.Context, name string) (core.DBGroup, error) {
	var g = &group{
		name: name,
	}
	err := db.getByName.QueryRowContext(ctx, name).Scan(&g.id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", name, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (db *GroupDB) getMultiple(ctx context.Context, stmt *sql.Stmt, args ...interface{}) ([]core.DBGroup, error) {

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups = []core.DBGroup{}

	for rows.Next() {
		var g = &group{}
		err = rows.Scan(&g.id, &g.name)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}

	return groups, rows.Err()
}

func (db *GroupDB) GetAllGroups(ctx context.Context, limit, offset int) ([]core.DBGroup, error) {
	if limit <= 0 {
		limit = math.MaxInt32
	}
	return db.getMultiple(ctx, db.getAll, limit, offset)
}

func (db *GroupDB) GetGroupsOf(ctx context.Context, u core.DBUser) ([]core.DBGroup, error) {
	return db.getMultiple(ctx, db.getOf, u.ID())
}

func (db *GroupDB) GetParentGroups(ctx context.Context, g core.DBGroup) ([]core.DBGroup, error) {
	return db.getMultiple(ctx, db.getParents, g.ID())
}

func (db *GroupDB) InsertGroup(ctx context.Context, name string) (core.DBGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == core.AllUsers {
		return nil, fmt.Errorf("invalid group name: %q", name)
	}
	result, err := db.insert.ExecContext(ctx, name)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &group{
		id:   int(id),
		name: name,
	}, nil
}

func (db *GroupDB) Join(ctx context.Context, g core.DBGroup, u core.DBUser) error {
	_, err := db.join.ExecContext(ctx, g.ID(), u.ID())
	return err
}

func (db *GroupDB) Leave(ctx context.Context, g core.DBGroup, u core.DBUser) error {
	_, err := db.leave.ExecContext(ctx, g.ID(), u.ID())
	return err
}

func (db *GroupDB) Nest(ctx context.Context, parent, child core.DBGroup) error {
	if parent.ID() == child.ID() {
		return errors.New("can't nest a group into itself")
	}
	_, err := db.nest.ExecContext(ctx, parent.ID(), child.ID())
	return err
}
