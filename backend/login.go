package backend

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/pubflow/core"
)

type userResponse struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// login expects the form values "name" and "password".
func (b *Backend) login(w http.ResponseWriter, r *request, params httprouter.Params) error {

	user, err := b.db.LoginUser(r.ctx, r.req.PostFormValue("name"), r.req.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, core.ErrAuth) {
			b.log.Info().Str("name", r.req.PostFormValue("name")).Msg("login failed")
		}
		return err
	}

	// prevents session fixation
	if err := b.sessions.RenewToken(r.ctx); err != nil {
		return err
	}
	b.sessions.Put(r.ctx, sessionUserID, user.ID())

	return writeJSON(w, http.StatusOK, userResponse{
		ID:   user.ID(),
		Name: user.Name(),
	})
}
