package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wansing/pubflow/core"
)

// DocumentDB implements core.DocumentDB. Documents are identified by (wiki, fullname).
type DocumentDB struct {
	*sql.DB
	conflict     *sql.Stmt
	delete       *sql.Stmt
	deleteRights *sql.Stmt
	descendants  *sql.Stmt
	get          *sql.Stmt
	getRights    *sql.Stmt
	head         *sql.Stmt
	insert       *sql.Stmt
	insertRights *sql.Stmt
	rename       *sql.Stmt
	update       *sql.Stmt
}

func NewDocumentDB(db *sql.DB, driver string) (*DocumentDB, error) {

	err := schema(db, driver, `
		CREATE TABLE IF NOT EXISTS document (
			{{id}},
			wiki varchar(64) NOT NULL,
			fullname varchar(255) NOT NULL,
			class varchar(32) NOT NULL,
			content mediumtext NOT NULL,
			hidden bool NOT NULL,
			version int(11) NOT NULL,
			ts_changed int(11) NOT NULL,
			wf_config varchar(64) NOT NULL,
			wf_target varchar(255) NOT NULL,
			wf_status varchar(16) NOT NULL,
			wf_is_target bool NOT NULL,
			UNIQUE (wiki, fullname)
		)`, `
		CREATE TABLE IF NOT EXISTS rights (
			document int(11) NOT NULL,
			position int(11) NOT NULL,
			levels varchar(64) NOT NULL,
			grps text NOT NULL,
			usrs text NOT NULL,
			allow bool NOT NULL,
			PRIMARY KEY (document, position)
		)`)
	if err != nil {
		return nil, err
	}

	var documentDB = &DocumentDB{}
	documentDB.DB = db
	documentDB.conflict = mustPrepare(db, "SELECT COUNT(1) FROM document WHERE wiki = ? AND fullname = ?")
	documentDB.delete = mustPrepare(db, "DELETE FROM document WHERE id = ?")
	documentDB.deleteRights = mustPrepare(db, "DELETE FROM rights WHERE document = ?")
	documentDB.descendants = mustPrepare(db, "SELECT id, fullname FROM document WHERE wiki = ? AND (fullname = ? OR fullname LIKE ? ESCAPE '!')")
	documentDB.get = mustPrepare(db, "SELECT id, class, content, hidden, version, ts_changed, wf_config, wf_target, wf_status, wf_is_target FROM document WHERE wiki = ? AND fullname = ? LIMIT 1")
	documentDB.getRights = mustPrepare(db, "SELECT levels, grps, usrs, allow FROM rights WHERE document = ? ORDER BY position")
	documentDB.head = mustPrepare(db, "SELECT id, version FROM document WHERE wiki = ? AND fullname = ? LIMIT 1")
	documentDB.insert = mustPrepare(db, "INSERT INTO document (wiki, fullname, class, content, hidden, version, ts_changed, wf_config, wf_target, wf_status, wf_is_target) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	documentDB.insertRights = mustPrepare(db, "INSERT INTO rights (document, position, levels, grps, usrs, allow) VALUES (?, ?, ?, ?, ?, ?)")
	documentDB.rename = mustPrepare(db, "UPDATE document SET wiki = ?, fullname = ? WHERE id = ?")
	documentDB.update = mustPrepare(db, "UPDATE document SET class = ?, content = ?, hidden = ?, version = ?, ts_changed = ?, wf_config = ?, wf_target = ?, wf_status = ?, wf_is_target = ? WHERE id = ?")
	return documentDB, nil
}

// workflowColumns returns the values of wf_config, wf_target, wf_status and wf_is_target. An empty status means no workflow.
func workflowColumns(wf *core.Workflow) (string, string, string, bool) {
	if wf == nil {
		return "", "", "", false
	}
	var target string
	if !wf.Target.IsZero() {
		target = wf.Target.Canonical().String()
	}
	return wf.ConfigRef, target, string(wf.Status), wf.IsTarget
}

// FindDocuments returns the matching refs ordered by wiki and full name.
func (db *DocumentDB) FindDocuments(ctx context.Context, q core.Query) ([]core.Ref, error) {

	var conditions []string
	var args []interface{}

	if q.Wiki != "" {
		conditions = append(conditions, "wiki = ?")
		args = append(args, q.Wiki)
	}
	if !q.Below.IsZero() {
		conditions = append(conditions, "wiki = ?", "fullname LIKE ? ESCAPE '!'")
		args = append(args, q.Below.Wiki, escapeLike(q.Below.FullName())+".%")
	}
	if !q.Target.IsZero() {
		conditions = append(conditions, "wf_status != ''", "wf_target = ?")
		args = append(args, q.Target.Canonical().String())
	}
	if q.IsTarget != nil {
		conditions = append(conditions, "wf_status != ''", "wf_is_target = ?")
		args = append(args, *q.IsTarget)
	}

	var query = "SELECT wiki, fullname FROM document"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY wiki, fullname"
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []core.Ref
	for rows.Next() {
		var wiki, fullname string
		if err = rows.Scan(&wiki, &fullname); err != nil {
			return nil, err
		}
		result = append(result, core.NewRef(wiki, strings.Split(fullname, ".")...))
	}
	return result, rows.Err()
}

func (db *DocumentDB) LoadDocument(ctx context.Context, ref core.Ref) (*core.Document, error) {

	ref = ref.Canonical()

	var doc = &core.Document{
		Ref: ref,
	}
	var wfConfig, wfTarget, wfStatus string
	var wfIsTarget bool

	err := db.get.QueryRowContext(ctx, ref.Wiki, ref.FullName()).Scan(&doc.ID, &doc.Class, &doc.Content, &doc.Hidden, &doc.Version, &doc.TsChanged, &wfConfig, &wfTarget, &wfStatus, &wfIsTarget)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", ref, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if wfStatus != "" {
		doc.Workflow = &core.Workflow{
			ConfigRef: wfConfig,
			Status:    core.Status(wfStatus),
			IsTarget:  wfIsTarget,
		}
		if wfTarget != "" {
			doc.Workflow.Target, err = core.ParseRef(wfTarget)
			if err != nil {
				return nil, fmt.Errorf("document %s: workflow target: %w", ref, err)
			}
		}
	}

	rows, err := db.getRights.QueryContext(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var levels, groups, users string
		var r core.Rights
		if err = rows.Scan(&levels, &groups, &users, &r.Allow); err != nil {
			return nil, err
		}
		if r.Levels, err = core.ParseLevels(levels); err != nil {
			return nil, err
		}
		r.Groups = splitLines(groups)
		r.Users = splitLines(users)
		doc.Rights = append(doc.Rights, r)
	}

	return doc, rows.Err()
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func (db *DocumentDB) RemoveDocument(ctx context.Context, ref core.Ref) error {

	ref = ref.Canonical()

	return inTx(ctx, db.DB, func(tx *sql.Tx) error {
		var id, version int
		err := tx.StmtContext(ctx, db.head).QueryRowContext(ctx, ref.Wiki, ref.FullName()).Scan(&id, &version)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("document %s: %w", ref, core.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if _, err = tx.StmtContext(ctx, db.deleteRights).ExecContext(ctx, id); err != nil {
			return err
		}
		_, err = tx.StmtContext(ctx, db.delete).ExecContext(ctx, id)
		return err
	})
}

// RenameDocument moves the document and all documents below it.
func (db *DocumentDB) RenameDocument(ctx context.Context, from, to core.Ref) error {

	from, to = from.Canonical(), to.Canonical()

	return inTx(ctx, db.DB, func(tx *sql.Tx) error {

		type entry struct {
			id       int
			fullname string
		}

		rows, err := tx.StmtContext(ctx, db.descendants).QueryContext(ctx, from.Wiki, from.FullName(), escapeLike(from.FullName())+".%")
		if err != nil {
			return err
		}
		var entries []entry
		for rows.Next() {
			var e entry
			if err = rows.Scan(&e.id, &e.fullname); err != nil {
				rows.Close()
				return err
			}
			entries = append(entries, e)
		}
		rows.Close()
		if err = rows.Err(); err != nil {
			return err
		}

		if len(entries) == 0 {
			return fmt.Errorf("document %s: %w", from, core.ErrNotFound)
		}

		var conflict = tx.StmtContext(ctx, db.conflict)
		var rename = tx.StmtContext(ctx, db.rename)

		for _, e := range entries {
			var fullname = to.FullName() + strings.TrimPrefix(e.fullname, from.FullName())
			var count int
			if err = conflict.QueryRowContext(ctx, to.Wiki, fullname).Scan(&count); err != nil {
				return err
			}
			if count > 0 {
				return fmt.Errorf("document %s:%s: %w", to.Wiki, fullname, core.ErrExists)
			}
			if _, err = rename.ExecContext(ctx, to.Wiki, fullname, e.id); err != nil {
				return err
			}
		}
		return nil
	})
}

// StoreDocument replaces the document at doc.Ref and keeps its ID, or inserts a new one.
func (db *DocumentDB) StoreDocument(ctx context.Context, doc *core.Document) error {

	var ref = doc.Ref.Canonical()
	var wfConfig, wfTarget, wfStatus, wfIsTarget = workflowColumns(doc.Workflow)
	var now = time.Now().Unix()

	var id, version int

	err := inTx(ctx, db.DB, func(tx *sql.Tx) error {

		err := tx.StmtContext(ctx, db.head).QueryRowContext(ctx, ref.Wiki, ref.FullName()).Scan(&id, &version)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			version = 1
			result, err := tx.StmtContext(ctx, db.insert).ExecContext(ctx, ref.Wiki, ref.FullName(), doc.Class, doc.Content, doc.Hidden, version, now, wfConfig, wfTarget, wfStatus, wfIsTarget)
			if err != nil {
				return err
			}
			lastID, err := result.LastInsertId()
			if err != nil {
				return err
			}
			id = int(lastID)
		case err != nil:
			return err
		default:
			version++
			_, err = tx.StmtContext(ctx, db.update).ExecContext(ctx, doc.Class, doc.Content, doc.Hidden, version, now, wfConfig, wfTarget, wfStatus, wfIsTarget, id)
			if err != nil {
				return err
			}
			if _, err = tx.StmtContext(ctx, db.deleteRights).ExecContext(ctx, id); err != nil {
				return err
			}
		}

		var insertRights = tx.StmtContext(ctx, db.insertRights)
		for position, r := range doc.Rights {
			_, err = insertRights.ExecContext(ctx, id, position, core.FormatLevels(r.Levels), strings.Join(r.Groups, "\n"), strings.Join(r.Users, "\n"), r.Allow)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	doc.Ref = ref
	doc.ID = id
	doc.Version = version
	doc.TsChanged = now
	return nil
}
