package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wansing/pubflow/core"
)

// roles, in the order they are stored
const (
	contributor = "contributor"
	moderator   = "moderator"
	validator   = "validator"
)

// principal kinds
const (
	groupKind = "group"
	userKind  = "user"
)

// WorkflowDB implements core.ConfigDB.
type WorkflowDB struct {
	*sql.DB
	clear  *sql.Stmt
	delete *sql.Stmt
	get    *sql.Stmt
	getAll *sql.Stmt
	insert *sql.Stmt
	push   *sql.Stmt
	roles  *sql.Stmt
}

func NewWorkflowDB(db *sql.DB, driver string) (*WorkflowDB, error) {

	err := schema(db, driver, `
		CREATE TABLE IF NOT EXISTS workflow_config (
			name varchar(64) NOT NULL,
			draft_space varchar(255) NOT NULL,
			PRIMARY KEY (name)
		)`, `
		CREATE TABLE IF NOT EXISTS workflow_role (
			config varchar(64) NOT NULL,
			role varchar(16) NOT NULL,
			kind varchar(8) NOT NULL,
			name varchar(128) NOT NULL,
			position int(11) NOT NULL,
			PRIMARY KEY (config, role, position)
		)`)
	if err != nil {
		return nil, err
	}

	var workflowDB = &WorkflowDB{}
	workflowDB.DB = db
	workflowDB.clear = mustPrepare(db, "DELETE FROM workflow_role WHERE config = ?")
	workflowDB.delete = mustPrepare(db, "DELETE FROM workflow_config WHERE name = ?")
	workflowDB.get = mustPrepare(db, "SELECT draft_space FROM workflow_config WHERE name = ? LIMIT 1")
	workflowDB.getAll = mustPrepare(db, "SELECT name FROM workflow_config ORDER BY name")
	workflowDB.insert = mustPrepare(db, "INSERT INTO workflow_config (name, draft_space) VALUES (?, ?)")
	workflowDB.push = mustPrepare(db, "INSERT INTO workflow_role (config, role, kind, name, position) VALUES (?, ?, ?, ?, ?)")
	workflowDB.roles = mustPrepare(db, "SELECT role, kind, name FROM workflow_role WHERE config = ? ORDER BY role, position")
	return workflowDB, nil
}

func (db *WorkflowDB) DeleteConfig(ctx context.Context, name string) error {
	return inTx(ctx, db.DB, func(tx *sql.Tx) error {
		if _, err := tx.StmtContext(ctx, db.clear).ExecContext(ctx, name); err != nil {
			return err
		}
		_, err := tx.StmtContext(ctx, db.delete).ExecContext(ctx, name)
		return err
	})
}

func (db *WorkflowDB) GetConfig(ctx context.Context, name string) (*core.Config, error) {

	var draftSpace string
	err := db.get.QueryRowContext(ctx, name).Scan(&draftSpace)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("workflow config %s: %w", name, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var config = &core.Config{
		Name: name,
	}

	if draftSpace != "" {
		config.DraftSpace, err = core.ParseRef(draftSpace)
		if err != nil {
			return nil, fmt.Errorf("workflow config %s: %w", name, err)
		}
	}

	rows, err := db.roles.QueryContext(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var role, kind, principal string
		if err = rows.Scan(&role, &kind, &principal); err != nil {
			return nil, err
		}
		var p *core.Principals
		switch role {
		case contributor:
			p = &config.Contributors
		case moderator:
			p = &config.Moderators
		case validator:
			p = &config.Validators
		default:
			return nil, fmt.Errorf("workflow config %s: unknown role %q", name, role)
		}
		if kind == userKind {
			p.Users = append(p.Users, principal)
		} else {
			p.Groups = append(p.Groups, principal)
		}
	}

	return config, rows.Err()
}

func (db *WorkflowDB) GetAllConfigs(ctx context.Context) ([]*core.Config, error) {

	rows, err := db.getAll.QueryContext(ctx)
	if err != nil {
		return nil, err
	}

	var names []string
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			rows.Close()
			return nil, err
		}
		names = append(names, name)
	}
	rows.Close() // before the next query, a single connection would block otherwise
	if err = rows.Err(); err != nil {
		return nil, err
	}

	var all = make([]*core.Config, 0, len(names))
	for _, name := range names {
		config, err := db.GetConfig(ctx, name)
		if err != nil {
			return nil, err
		}
		all = append(all, config)
	}
	return all, nil
}

// SaveConfig inserts or replaces the config.
func (db *WorkflowDB) SaveConfig(ctx context.Context, config *core.Config) error {

	if config.Name == "" {
		return errors.New("workflow config name is empty")
	}

	var draftSpace string
	if !config.DraftSpace.IsZero() {
		draftSpace = config.DraftSpace.String()
	}

	return inTx(ctx, db.DB, func(tx *sql.Tx) error {

		if _, err := tx.StmtContext(ctx, db.clear).ExecContext(ctx, config.Name); err != nil {
			return err
		}
		if _, err := tx.StmtContext(ctx, db.delete).ExecContext(ctx, config.Name); err != nil {
			return err
		}
		if _, err := tx.StmtContext(ctx, db.insert).ExecContext(ctx, config.Name, draftSpace); err != nil {
			return err
		}

		var push = tx.StmtContext(ctx, db.push)
		for _, role := range []struct {
			name       string
			principals core.Principals
		}{
			{contributor, config.Contributors},
			{moderator, config.Moderators},
			{validator, config.Validators},
		} {
			var position = 0
			for _, g := range role.principals.Groups {
				if _, err := push.ExecContext(ctx, config.Name, role.name, groupKind, g, position); err != nil {
					return err
				}
				position++
			}
			for _, u := range role.principals.Users {
				if _, err := push.ExecContext(ctx, config.Name, role.name, userKind, u, position); err != nil {
					return err
				}
				position++
			}
		}
		return nil
	})
}
