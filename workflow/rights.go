package workflow

import "github.com/wansing/pubflow/core"

var (
	viewEdit = []core.Level{core.View, core.Edit}
	viewOnly = []core.Level{core.View}
	editOnly = []core.Level{core.Edit}
)

// SetRights replaces all rights entries of doc by one entry. It does not save the document.
func SetRights(doc *core.Document, levels []core.Level, principals core.Principals, allow bool) {
	doc.Rights = nil
	AddRights(doc, levels, principals, allow)
}

// AddRights appends a rights entry to doc. It does not save the document.
func AddRights(doc *core.Document, levels []core.Level, principals core.Principals, allow bool) {
	doc.Rights = append(doc.Rights, core.Rights{
		Levels: append([]core.Level(nil), levels...),
		Groups: append([]string(nil), principals.Groups...),
		Users:  append([]string(nil), principals.Users...),
		Allow:  allow,
	})
}

func draftRights(doc *core.Document, config *core.Config) {
	SetRights(doc, viewEdit, config.AllRoles(), true)
}

func moderatingRights(doc *core.Document, config *core.Config) {
	SetRights(doc, viewEdit, config.Moderators.Union(config.Validators), true)
	AddRights(doc, viewOnly, config.Contributors, true)
}

func validatingRights(doc *core.Document, config *core.Config) {
	SetRights(doc, viewEdit, config.Validators, true)
	AddRights(doc, viewOnly, config.Moderators.Union(config.Contributors), true)
}

// the draft of a published document can be viewed, but not edited
func publishedDraftRights(doc *core.Document, config *core.Config) {
	SetRights(doc, viewOnly, config.AllRoles(), true)
	AddRights(doc, editOnly, config.AllRoles(), false)
}

// edit is revoked from all roles, view is left to the wiki rules
func publishedRights(doc *core.Document, config *core.Config) {
	SetRights(doc, editOnly, config.AllRoles(), false)
}
