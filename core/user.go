package core

import (
	"context"
	"errors"
)

type DBUser interface {
	ID() int
	Name() string // can be email address
}

type UserDB interface {
	DeleteUser(ctx context.Context, u DBUser) error
	GetAllUsers(ctx context.Context, limit, offset int) ([]DBUser, error)
	GetUser(ctx context.Context, id int) (DBUser, error)
	GetUserByName(ctx context.Context, name string) (DBUser, error) // ErrNotFound if it does not exist
	InsertUser(ctx context.Context, name string) (DBUser, error)
	LoginUser(ctx context.Context, name, password string) (DBUser, error) // ErrAuth if the user does not exist or the password is wrong
	SetPassword(ctx context.Context, u DBUser, password string) error
}

var (
	ErrAuth          = errors.New("authentication failed")
	ErrEmptyPassword = errors.New("refusing to set empty password")
)

// SetPassword shadows UserDB.SetPassword.
func (c *CoreDB) SetPassword(ctx context.Context, u DBUser, password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	return c.UserDB.SetPassword(ctx, u, password)
}

// UserName returns the name of u, or the empty string for the public.
func UserName(u DBUser) string {
	if u == nil {
		return ""
	}
	return u.Name()
}
