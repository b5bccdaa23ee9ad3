package backend

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

func (b *Backend) logout(w http.ResponseWriter, r *request, params httprouter.Params) error {
	if err := b.sessions.Destroy(r.ctx); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
