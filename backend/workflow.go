package backend

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/pubflow/auth"
	"github.com/wansing/pubflow/core"
	"github.com/wansing/pubflow/workflow"
)

type role func(r *auth.Resolver, ctx context.Context, u core.DBUser, doc *core.Document) bool

var (
	contribute role = (*auth.Resolver).CanContribute
	moderate   role = (*auth.Resolver).CanModerate
	validate   role = (*auth.Resolver).CanValidate
)

// submitter is the role which may submit a draft for validation: moderators if it is in moderation, else contributors.
func submitter(r *auth.Resolver, ctx context.Context, u core.DBUser, doc *core.Document) bool {
	if wf := doc.GetWorkflow(); wf != nil && wf.Status == core.StatusModerating {
		return r.CanModerate(ctx, u, doc)
	}
	return r.CanContribute(ctx, u, doc)
}

// withConfig checks the role against the workflow configuration named in the form, for documents which don't take part in a workflow yet.
// The actions using it must check edit access on the document itself, because the probe has no rights.
func withConfig(check role, r *request) role {
	return func(resolver *auth.Resolver, ctx context.Context, u core.DBUser, doc *core.Document) bool {
		var probe = doc.Clone(doc.Ref)
		probe.SetWorkflow(&core.Workflow{
			ConfigRef: r.req.PostFormValue("config"),
		})
		return check(resolver, ctx, u, probe)
	}
}

// requireEdit checks edit access on the stored document at ref.
func (b *Backend) requireEdit(r *request, ref core.Ref) error {
	doc, err := b.db.LoadDocument(r.ctx, ref)
	if err != nil {
		return err
	}
	return b.require(r, core.Edit, ref.Wiki, doc)
}

type transition func(e *workflow.Engine, ctx context.Context, u core.DBUser, ref core.Ref) (bool, error)

type action struct {
	role func(r *request) role
	run  func(b *Backend, r *request, ref core.Ref) (core.Ref, bool, error)
}

func fixed(check role) func(*request) role {
	return func(*request) role {
		return check
	}
}

func simple(t transition) func(*Backend, *request, core.Ref) (core.Ref, bool, error) {
	return func(b *Backend, r *request, ref core.Ref) (core.Ref, bool, error) {
		ok, err := t(b.engine, r.ctx, r.user, ref)
		return core.Ref{}, ok, err
	}
}

var actions = map[string]action{
	"start": {
		role: func(r *request) role { return withConfig(contribute, r) },
		run: func(b *Backend, r *request, ref core.Ref) (core.Ref, bool, error) {
			if err := b.requireEdit(r, ref); err != nil {
				return core.Ref{}, false, err
			}
			target, err := b.parseRef(r.req.PostFormValue("target"))
			if err != nil {
				return core.Ref{}, false, err
			}
			ok, err := b.engine.StartWorkflow(r.ctx, r.user, ref, r.req.PostFormValue("config"), target)
			return target, ok, err
		},
	},
	"start-as-target": {
		role: func(r *request) role { return withConfig(validate, r) },
		run: func(b *Backend, r *request, ref core.Ref) (core.Ref, bool, error) {
			if err := b.requireEdit(r, ref); err != nil {
				return core.Ref{}, false, err
			}
			ok, err := b.engine.StartWorkflowAsTarget(r.ctx, r.user, ref, r.req.PostFormValue("config"), r.req.PostFormValue("children") == "true")
			return ref, ok, err
		},
	},
	"create-draft": {
		role: fixed(contribute),
		run: func(b *Backend, r *request, ref core.Ref) (core.Ref, bool, error) {
			draft, err := b.engine.CreateDraftDocument(r.ctx, r.user, ref)
			return draft, err == nil, err
		},
	},
	"submit-for-moderation": {fixed(contribute), simple((*workflow.Engine).SubmitForModeration)},
	"refuse-moderation":     {fixed(moderate), simple((*workflow.Engine).RefuseModeration)},
	"submit-for-validation": {fixed(submitter), simple((*workflow.Engine).SubmitForValidation)},
	"refuse-validation":     {fixed(validate), simple((*workflow.Engine).RefuseValidation)},
	"validate":              {fixed(validate), simple((*workflow.Engine).Validate)},
	"edit-draft":            {fixed(contribute), simple((*workflow.Engine).EditDraft)},
	"archive":               {fixed(validate), simple((*workflow.Engine).Archive)},
	"publish-from-archive":  {fixed(validate), simple((*workflow.Engine).PublishFromArchive)},
	"publish": {
		role: fixed(validate),
		run: func(b *Backend, r *request, ref core.Ref) (core.Ref, bool, error) {
			return b.engine.Publish(r.ctx, r.user, ref)
		},
	},
	"unpublish": {
		role: fixed(validate),
		run: func(b *Backend, r *request, ref core.Ref) (core.Ref, bool, error) {
			return b.engine.Unpublish(r.ctx, r.user, ref, r.req.PostFormValue("force") == "true")
		},
	},
	"unarchive": {
		role: fixed(validate),
		run: func(b *Backend, r *request, ref core.Ref) (core.Ref, bool, error) {
			return b.engine.Unarchive(r.ctx, r.user, ref, r.req.PostFormValue("force") == "true")
		},
	},
}

type actionResponse struct {
	OK  bool   `json:"ok"`
	Ref string `json:"ref,omitempty"` // target, or the draft after unpublishing
}

// workflowAction returns 200 with ok=false if the document is not in a state which allows the action.
func (b *Backend) workflowAction(w http.ResponseWriter, r *request, params httprouter.Params) error {

	a, ok := actions[params.ByName("action")]
	if !ok {
		return badRequest("unknown workflow action: %s", params.ByName("action"))
	}

	ref, err := b.parseRef(params.ByName("ref"))
	if err != nil {
		return err
	}

	doc, err := b.db.LoadDocument(r.ctx, ref)
	if err != nil {
		return err
	}

	if !a.role(r)(b.roles, r.ctx, r.user, doc) {
		return core.ErrUnauthorized
	}

	result, ok, err := a.run(b, r, ref)
	if err != nil {
		return err
	}

	var response = actionResponse{
		OK: ok,
	}
	if ok && !result.IsZero() {
		response.Ref = result.String()
	}
	return writeJSON(w, http.StatusOK, response)
}

type workflowResponse struct {
	Config   string `json:"config"`
	Target   string `json:"target,omitempty"`
	Status   string `json:"status"`
	IsTarget bool   `json:"is_target"`
}

type rolesResponse struct {
	Contribute bool `json:"contribute"`
	Moderate   bool `json:"moderate"`
	Validate   bool `json:"validate"`
}

type statusResponse struct {
	Ref      string            `json:"ref"`
	Workflow *workflowResponse `json:"workflow,omitempty"`
	Draft    string            `json:"draft,omitempty"` // for a published copy
	Roles    rolesResponse     `json:"roles"`
}

// status returns the workflow metadata of the document and the roles of the user.
func (b *Backend) status(w http.ResponseWriter, r *request, params httprouter.Params) error {

	doc, err := b.viewable(r, params)
	if err != nil {
		return err
	}

	var response = statusResponse{
		Ref: doc.Ref.String(),
		Roles: rolesResponse{
			Contribute: b.roles.CanContribute(r.ctx, r.user, doc),
			Moderate:   b.roles.CanModerate(r.ctx, r.user, doc),
			Validate:   b.roles.CanValidate(r.ctx, r.user, doc),
		},
	}

	if wf := doc.GetWorkflow(); wf != nil {
		response.Workflow = &workflowResponse{
			Config:   wf.ConfigRef,
			Status:   string(wf.Status),
			IsTarget: wf.IsTarget,
		}
		if !wf.Target.IsZero() {
			response.Workflow.Target = wf.Target.String()
		}
		if wf.IsTarget {
			draft, err := b.engine.GetDraftDocument(r.ctx, doc.Ref, "")
			if err != nil {
				return err
			}
			if draft != nil {
				response.Draft = draft.Ref.String()
			}
		}
	}

	return writeJSON(w, http.StatusOK, response)
}
