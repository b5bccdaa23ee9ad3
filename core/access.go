package core

import "context"

// An AccessDB stores wiki-wide access rules.
type AccessDB interface {
	GetAccessRules(ctx context.Context, wiki string) (map[string]Level, error) // group name -> level
	InsertAccessRule(ctx context.Context, wiki, group string, level Level) error
	RemoveAccessRule(ctx context.Context, wiki, group string) error
}

// IsAdmin returns whether the user holds admin rights on the wiki.
func (c *CoreDB) IsAdmin(ctx context.Context, u DBUser, wiki string) (bool, error) {
	groups, err := c.GroupNamesOf(ctx, u)
	if err != nil {
		return false, err
	}
	return c.wikiRule(ctx, Admin, wiki, groups)
}

// HasAccess returns whether the user has the given access level on the document.
// If doc is nil, it checks the wiki rules only.
//
// Admins pass. A deny entry of the document which matches the user wins.
// If the document has allow entries for the level, the user must match one of them.
// Else the wiki rules decide.
func (c *CoreDB) HasAccess(ctx context.Context, level Level, u DBUser, wiki string, doc *Document) (bool, error) {

	groups, err := c.GroupNamesOf(ctx, u)
	if err != nil {
		return false, err
	}

	if doc != nil {
		wiki = doc.Ref.Wiki
	}

	if isAdmin, err := c.wikiRule(ctx, Admin, wiki, groups); err != nil || isAdmin {
		return isAdmin, err
	}

	if doc != nil {
		var hasAllowEntries = false
		var allowed = false
		for _, r := range doc.Rights {
			if !r.HasLevel(level) {
				continue
			}
			var matches = r.Matches(UserName(u), groups)
			if !r.Allow && matches {
				return false, nil
			}
			if r.Allow {
				hasAllowEntries = true
				allowed = allowed || matches
			}
		}
		if hasAllowEntries {
			return allowed, nil
		}
	}

	return c.wikiRule(ctx, level, wiki, groups)
}

func (c *CoreDB) wikiRule(ctx context.Context, required Level, wiki string, groups map[string]struct{}) (bool, error) {
	rules, err := c.AccessDB.GetAccessRules(ctx, wiki)
	if err != nil {
		return false, err
	}
	for group, level := range rules {
		if _, ok := groups[group]; ok && level >= required {
			return true, nil
		}
	}
	return false, nil
}
