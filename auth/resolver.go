package auth

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/wansing/pubflow/core"
)

type Resolver struct {
	db   *core.CoreDB
	wiki string // used if no document is given
	log  zerolog.Logger
}

func NewResolver(db *core.CoreDB, wiki string, log zerolog.Logger) *Resolver {
	return &Resolver{
		db:   db,
		wiki: wiki,
		log:  log.With().Str("component", "roles").Logger(),
	}
}

// CanContribute returns whether u is a contributor, moderator or validator of doc. If doc is nil, the wiki rules decide.
func (r *Resolver) CanContribute(ctx context.Context, u core.DBUser, doc *core.Document) bool {
	return r.can(ctx, "contribute", u, doc, func(c *core.Config) []core.Principals {
		return []core.Principals{c.Contributors, c.Moderators, c.Validators}
	})
}

// CanModerate returns whether u is a moderator or validator of doc.
func (r *Resolver) CanModerate(ctx context.Context, u core.DBUser, doc *core.Document) bool {
	return r.can(ctx, "moderate", u, doc, func(c *core.Config) []core.Principals {
		return []core.Principals{c.Moderators, c.Validators}
	})
}

// CanValidate returns whether u is a validator of doc.
func (r *Resolver) CanValidate(ctx context.Context, u core.DBUser, doc *core.Document) bool {
	return r.can(ctx, "validate", u, doc, func(c *core.Config) []core.Principals {
		return []core.Principals{c.Validators}
	})
}

func (r *Resolver) can(ctx context.Context, role string, u core.DBUser, doc *core.Document, roles func(*core.Config) []core.Principals) bool {

	var log = r.log.With().Str("role", role).Str("user", core.UserName(u)).Logger()

	var wiki = r.wiki
	if doc != nil {
		wiki = doc.Ref.Wiki
		log = log.With().Stringer("ref", doc.Ref).Logger()
	}

	isAdmin, err := r.db.IsAdmin(ctx, u, wiki)
	if err != nil {
		log.Warn().Err(err).Msg("checking admin rights")
		return false
	}
	if isAdmin {
		return true
	}

	var config *core.Config
	if wf := doc.GetWorkflow(); wf != nil {
		config, err = r.db.WorkflowConfig(ctx, wf.ConfigRef)
		if err != nil {
			log.Warn().Err(err).Str("config", wf.ConfigRef).Msg("loading workflow config")
			return false
		}
	}

	if config == nil {
		hasAccess, err := r.db.HasAccess(ctx, core.Edit, u, wiki, doc)
		if err != nil {
			log.Warn().Err(err).Msg("checking edit access")
			return false
		}
		return hasAccess
	}

	groups, err := r.db.GroupNamesOf(ctx, u)
	if err != nil {
		log.Warn().Err(err).Msg("resolving groups")
		return false
	}

	var username = core.UserName(u)
	for _, principals := range roles(config) {
		if Contains(principals, username, groups) {
			return true
		}
	}
	return false
}

// Contains returns whether the user or one of the groups is listed in p.
// An empty username never matches a user entry.
func Contains(p core.Principals, username string, groups map[string]struct{}) bool {
	return core.Rights{Users: p.Users, Groups: p.Groups}.Matches(username, groups)
}
