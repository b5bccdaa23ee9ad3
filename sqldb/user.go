package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/wansing/pubflow/core"
	"golang.org/x/crypto/bcrypt"
)

func clean(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ToLower(name)
	return name
}

type user struct {
	id   int
	name string
}

func (u *user) ID() int {
	return u.id
}

func (u *user) Name() string {
	return u.name
}

type UserDB struct {
	*sql.DB
	delete      *sql.Stmt
	deleteMemb  *sql.Stmt
	getAll      *sql.Stmt
	get         *sql.Stmt
	getByName   *sql.Stmt
	insert      *sql.Stmt
	login       *sql.Stmt
	setPassword *sql.Stmt
}

func NewUserDB(db *sql.DB, driver string) (*UserDB, error) {

	err := schema(db, driver, `
		CREATE TABLE IF NOT EXISTS usr (
			{{id}},
			name varchar(128) NOT NULL,
			password varchar(60) NOT NULL,
			UNIQUE(name)
		)`)
	if err != nil {
		return nil, err
	}

	var userDB = &UserDB{}
	userDB.DB = db
	userDB.delete = mustPrepare(db, "DELETE FROM usr WHERE id = ?")
	userDB.deleteMemb = mustPrepare(db, "DELETE FROM membership WHERE usr = ?")
	userDB.get = mustPrepare(db, "SELECT name FROM usr WHERE id = ? LIMIT 1")
	userDB.getAll = mustPrepare(db, "SELECT id, name FROM usr ORDER BY name LIMIT ? OFFSET ?")
	userDB.getByName = mustPrepare(db, "SELECT id FROM usr WHERE name = ? LIMIT 1")
	userDB.insert = mustPrepare(db, "INSERT INTO usr (name, password) VALUES (?, '')") // empty password field is safe because no bcrypt hash equals it
	userDB.login = mustPrepare(db, "SELECT id, password FROM usr WHERE name = ?")
	userDB.setPassword = mustPrepare(db, "UPDATE usr SET password = ? WHERE id = ?")
	return userDB, nil
}

// DeleteUser removes the user and their memberships. The membership table is created by the GroupDB.
func (db *UserDB) DeleteUser(ctx context.Context, u core.DBUser) error {
	return inTx(ctx, db.DB, func(tx *sql.Tx) error {
		if _, err := tx.StmtContext(ctx, db.deleteMemb).ExecContext(ctx, u.ID()); err != nil {
			return err
		}
		_, err := tx.StmtContext(ctx, db.delete).ExecContext(ctx, u.ID())
		return err
	})
}

func (db *UserDB) GetUser(ctx context.Context, id int) (core.DBUser, error) {
	var u = &user{
		id: id,
	}
	err := db.get.QueryRowContext(ctx, id).Scan(&u.name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (db *UserDB) GetUserByName(ctx context.Context, name string) (core.DBUser, error) {
	var u = &user{
		name: clean(name),
	}
	err := db.getByName.QueryRowContext(ctx, u.name).Scan(&u.id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", name, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (db *UserDB) GetAllUsers(ctx context.Context, limit, offset int) ([]core.DBUser, error) {

	if limit <= 0 {
		limit = math.MaxInt32
	}

	var all = []core.DBUser{}

	rows, err := db.getAll.QueryContext(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var u = &user{}
		err = rows.Scan(&u.id, &u.name)
		if err != nil {
			return nil, err
		}
		all = append(all, u)
	}

	return all, rows.Err()
}

func (db *UserDB) InsertUser(ctx context.Context, name string) (core.DBUser, error) {
	name = clean(name)
	if name == "" {
		return nil, errors.New("user name is empty")
	}
	result, err := db.insert.ExecContext(ctx, name)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &user{
		id:   int(id),
		name: name,
	}, nil
}

func (db *UserDB) LoginUser(ctx context.Context, name, password string) (core.DBUser, error) {

	var u = &user{
		name: clean(name),
	}
	var hash string

	err := db.login.QueryRowContext(ctx, u.name).Scan(&u.id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrAuth // user not found
	}
	if err != nil {
		return nil, err
	}

	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, core.ErrAuth // wrong password
	}

	return u, nil
}

func (db *UserDB) SetPassword(ctx context.Context, u core.DBUser, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = db.setPassword.ExecContext(ctx, string(hash), u.ID())
	return err
}
