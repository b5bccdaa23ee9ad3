package backend

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/pubflow/config"
	"github.com/wansing/pubflow/core"
)

type configResponse struct {
	Name         string          `json:"name"`
	DraftSpace   string          `json:"draft_space,omitempty"`
	Contributors core.Principals `json:"contributors"`
	Moderators   core.Principals `json:"moderators"`
	Validators   core.Principals `json:"validators"`
}

func (b *Backend) requireAdmin(r *request) error {
	isAdmin, err := b.db.IsAdmin(r.ctx, r.user, b.wiki)
	if err != nil {
		return err
	}
	if !isAdmin {
		return core.ErrUnauthorized
	}
	return nil
}

func (b *Backend) getWorkflows(w http.ResponseWriter, r *request, params httprouter.Params) error {

	if err := b.requireAdmin(r); err != nil {
		return err
	}

	configs, err := b.db.GetAllConfigs(r.ctx)
	if err != nil {
		return err
	}

	var response = make([]configResponse, len(configs))
	for i, c := range configs {
		response[i] = configResponse{
			Name:         c.Name,
			Contributors: c.Contributors,
			Moderators:   c.Moderators,
			Validators:   c.Validators,
		}
		if !c.DraftSpace.IsZero() {
			response[i].DraftSpace = c.DraftSpace.String()
		}
	}
	return writeJSON(w, http.StatusOK, response)
}

// putWorkflows imports workflow configurations from a YAML request body. Existing configurations with the same name are replaced.
func (b *Backend) putWorkflows(w http.ResponseWriter, r *request, params httprouter.Params) error {

	if err := b.requireAdmin(r); err != nil {
		return err
	}

	configs, err := config.ParseWorkflows(http.MaxBytesReader(w, r.req.Body, 1<<20))
	if err != nil {
		return errBadRequest{err}
	}

	if err := config.ImportWorkflows(r.ctx, b.db, configs); err != nil {
		return err
	}

	b.log.Info().Str("user", core.UserName(r.user)).Int("count", len(configs)).Msg("imported workflow configurations")
	w.WriteHeader(http.StatusNoContent)
	return nil
}
