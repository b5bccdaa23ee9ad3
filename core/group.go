package core

import "context"

// AllUsers is the name of the group which contains every principal, including the public.
const AllUsers = "all users"

type DBGroup interface {
	ID() int
	Name() string
}

type GroupDB interface {
	DeleteGroup(ctx context.Context, g DBGroup) error
	GetAllGroups(ctx context.Context, limit, offset int) ([]DBGroup, error)
	GetGroupByName(ctx context.Context, name string) (DBGroup, error) // ErrNotFound if it does not exist
	GetGroupsOf(ctx context.Context, u DBUser) ([]DBGroup, error)     // direct memberships only
	GetParentGroups(ctx context.Context, g DBGroup) ([]DBGroup, error)
	InsertGroup(ctx context.Context, name string) (DBGroup, error)
	Join(ctx context.Context, g DBGroup, u DBUser) error
	Leave(ctx context.Context, g DBGroup, u DBUser) error
	Nest(ctx context.Context, parent, child DBGroup) error // makes child a member of parent
}

// GroupNamesOf returns the names of all groups the user is a member of, directly or through nested groups.
// It always contains AllUsers. The user can be nil.
func (c *CoreDB) GroupNamesOf(ctx context.Context, u DBUser) (map[string]struct{}, error) {

	var names = map[string]struct{}{
		AllUsers: {},
	}

	if u == nil {
		return names, nil
	}

	queue, err := c.GroupDB.GetGroupsOf(ctx, u)
	if err != nil {
		return nil, err
	}

	for len(queue) > 0 {
		var g = queue[0]
		queue = queue[1:]
		if _, seen := names[g.Name()]; seen {
			continue
		}
		names[g.Name()] = struct{}{}
		parents, err := c.GroupDB.GetParentGroups(ctx, g)
		if err != nil {
			return nil, err
		}
		queue = append(queue, parents...)
	}

	return names, nil
}

// IsMember returns whether the user is a member of the named group, directly or through nested groups.
func (c *CoreDB) IsMember(ctx context.Context, u DBUser, group string) (bool, error) {
	names, err := c.GroupNamesOf(ctx, u)
	if err != nil {
		return false, err
	}
	_, ok := names[group]
	return ok, nil
}
