package memdb

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/wansing/pubflow/core"
)

func copyConfig(c *core.Config) *core.Config {
	var result = *c
	result.Contributors = core.Principals{}.Union(c.Contributors)
	result.Moderators = core.Principals{}.Union(c.Moderators)
	result.Validators = core.Principals{}.Union(c.Validators)
	return &result
}

func (db *DB) DeleteConfig(ctx context.Context, name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.configs, name)
	return nil
}

func (db *DB) GetAllConfigs(ctx context.Context) ([]*core.Config, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var all = make([]*core.Config, 0, len(db.configs))
	for _, c := range db.configs {
		all = append(all, copyConfig(c))
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Name < all[j].Name
	})
	return all, nil
}

func (db *DB) GetConfig(ctx context.Context, name string) (*core.Config, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	c, ok := db.configs[name]
	if !ok {
		return nil, fmt.Errorf("workflow config %s: %w", name, core.ErrNotFound)
	}
	return copyConfig(c), nil
}

func (db *DB) SaveConfig(ctx context.Context, config *core.Config) error {
	if config.Name == "" {
		return errors.New("workflow config has no name")
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.configs[config.Name] = copyConfig(config)
	return nil
}
