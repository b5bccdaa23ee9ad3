// Package memdb implements the core database interfaces in memory.
//
// It is meant for tests and for trying things out. Nothing is persisted.
package memdb

import (
	"sync"

	"github.com/wansing/pubflow/core"
	"github.com/wansing/pubflow/upload"
)

type DB struct {
	mu     sync.RWMutex
	nextID int

	documents map[string]*core.Document // key: canonical ref string
	configs   map[string]*core.Config

	users       map[int]*user
	groups      map[int]*group
	memberships map[int]map[int]struct{}         // user id -> group ids
	nesting     map[int]map[int]struct{}         // child group id -> parent group ids
	access      map[string]map[string]core.Level // wiki -> group name -> level
}

func New() *DB {
	return &DB{
		documents:   make(map[string]*core.Document),
		configs:     make(map[string]*core.Config),
		users:       make(map[int]*user),
		groups:      make(map[int]*group),
		memberships: make(map[int]map[int]struct{}),
		nesting:     make(map[int]map[int]struct{}),
		access:      make(map[string]map[string]core.Level),
	}
}

// CoreDB returns a CoreDB which uses db for all its stores. Attachments can be nil.
func (db *DB) CoreDB(classes core.ClassRegistry, attachments upload.Store) *core.CoreDB {
	return &core.CoreDB{
		AccessDB:      db,
		ClassRegistry: classes,
		ConfigDB:      db,
		DocumentDB:    db,
		GroupDB:       db,
		UserDB:        db,
		Attachments:   attachments,
		Events:        core.NewBus(),
	}
}

// must be called with the write lock held
func (db *DB) newID() int {
	db.nextID++
	return db.nextID
}
