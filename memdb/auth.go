package memdb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/wansing/pubflow/core"
	"golang.org/x/crypto/bcrypt"
)

type user struct {
	id   int
	name string
	hash []byte
}

func (u *user) ID() int {
	return u.id
}

func (u *user) Name() string {
	return u.name
}

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

func clean(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// users

func (db *DB) DeleteUser(ctx context.Context, u core.DBUser) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.users, u.ID())
	delete(db.memberships, u.ID())
	return nil
}

func (db *DB) GetAllUsers(ctx context.Context, limit, offset int) ([]core.DBUser, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var all = make([]*user, 0, len(db.users))
	for _, u := range db.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].name < all[j].name
	})
	var result = []core.DBUser{}
	for i := offset; i < len(all) && (limit <= 0 || len(result) < limit); i++ {
		result = append(result, all[i])
	}
	return result, nil
}

func (db *DB) GetUser(ctx context.Context, id int) (core.DBUser, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	u, ok := db.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	return u, nil
}

func (db *DB) GetUserByName(ctx context.Context, name string) (core.DBUser, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if u := db.userByName(clean(name)); u != nil {
		return u, nil
	}
	return nil, fmt.Errorf("user %s: %w", name, core.ErrNotFound)
}

// must be called with the lock held
func (db *DB) userByName(name string) *user {
	for _, u := range db.users {
		if u.name == name {
			return u
		}
	}
	return nil
}

func (db *DB) InsertUser(ctx context.Context, name string) (core.DBUser, error) {
	name = clean(name)
	if name == "" {
		return nil, errors.New("user name is empty")
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.userByName(name) != nil {
		return nil, fmt.Errorf("user %s already exists", name)
	}
	var u = &user{
		id:   db.newID(),
		name: name,
	}
	db.users[u.id] = u
	return u, nil
}

func (db *DB) LoginUser(ctx context.Context, name, password string) (core.DBUser, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var u = db.userByName(clean(name))
	if u == nil || u.hash == nil {
		return nil, core.ErrAuth
	}
	if bcrypt.CompareHashAndPassword(u.hash, []byte(password)) != nil {
		return nil, core.ErrAuth
	}
	return u, nil
}

func (db *DB) SetPassword(ctx context.Context, u core.DBUser, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	stored, ok := db.users[u.ID()]
	if !ok {
		return fmt.Errorf("user %d: %w", u.ID(), core.ErrNotFound)
	}
	stored.hash = hash
	return nil
}

// groups

func (db *DB) DeleteGroup(ctx context.Context, g core.DBGroup) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.groups, g.ID())
	delete(db.nesting, g.ID())
	for _, parents := range db.nesting {
		delete(parents, g.ID())
	}
	for _, groups := range db.memberships {
		delete(groups, g.ID())
	}
	return nil
}

func (db *DB) GetAllGroups(ctx context.Context, limit, offset int) ([]core.DBGroup, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var all = make([]*group, 0, len(db.groups))
	for _, g := range db.groups {
		all = append(all, g)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].name < all[j].name
	})
	var result = []core.DBGroup{}
	for i := offset; i < len(all) && (limit <= 0 || len(result) < limit); i++ {
		result = append(result, all[i])
	}
	return result, nil
}

func (db *DB) GetGroupByName(ctx context.Context, name string) (core.DBGroup, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, g := range db.groups {
		if g.name == name {
			return g, nil
		}
	}
	return nil, fmt.Errorf("group %s: %w", name, core.ErrNotFound)
}

func (db *DB) sortedGroups(ids map[int]struct{}) []core.DBGroup {
	var result = []core.DBGroup{}
	for id := range ids {
		if g, ok := db.groups[id]; ok {
			result = append(result, g)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID() < result[j].ID()
	})
	return result
}

func (db *DB) GetGroupsOf(ctx context.Context, u core.DBUser) ([]core.DBGroup, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.sortedGroups(db.memberships[u.ID()]), nil
}

func (db *DB) GetParentGroups(ctx context.Context, g core.DBGroup) ([]core.DBGroup, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.sortedGroups(db.nesting[g.ID()]), nil
}

func (db *DB) InsertGroup(ctx context.Context, name string) (core.DBGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == core.AllUsers {
		return nil, fmt.Errorf("invalid group name: %q", name)
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, g := range db.groups {
		if g.name == name {
			return nil, fmt.Errorf("group %s already exists", name)
		}
	}
	var g = &group{
		id:   db.newID(),
		name: name,
	}
	db.groups[g.id] = g
	return g, nil
}

func (db *DB) Join(ctx context.Context, g core.DBGroup, u core.DBUser) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.memberships[u.ID()] == nil {
		db.memberships[u.ID()] = make(map[int]struct{})
	}
	db.memberships[u.ID()][g.ID()] = struct{}{}
	return nil
}

func (db *DB) Leave(ctx context.Context, g core.DBGroup, u core.DBUser) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.memberships[u.ID()], g.ID())
	return nil
}

func (db *DB) Nest(ctx context.Context, parent, child core.DBGroup) error {
	if parent.ID() == child.ID() {
		return errors.New("can't nest a group into itself")
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.nesting[child.ID()] == nil {
		db.nesting[child.ID()] = make(map[int]struct{})
	}
	db.nesting[child.ID()][parent.ID()] = struct{}{}
	return nil
}

// access rules

func (db *DB) GetAccessRules(ctx context.Context, wiki string) (map[string]core.Level, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var rules = make(map[string]core.Level, len(db.access[wiki]))
	for group, level := range db.access[wiki] {
		rules[group] = level
	}
	return rules, nil
}

func (db *DB) InsertAccessRule(ctx context.Context, wiki, group string, level core.Level) error {
	if !level.Valid() {
		return fmt.Errorf("invalid level %d", level)
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.access[wiki] == nil {
		db.access[wiki] = make(map[string]core.Level)
	}
	db.access[wiki][group] = level
	return nil
}

func (db *DB) RemoveAccessRule(ctx context.Context, wiki, group string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.access[wiki], group)
	return nil
}
