// Package backend is the HTTP surface of the workflow. Every workflow action checks the role of the
// logged-in user before it is delegated to the engine. Responses are JSON.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/wansing/pubflow/auth"
	"github.com/wansing/pubflow/core"
	"github.com/wansing/pubflow/workflow"
)

const sessionUserID = "uid"

// errBadRequest marks errors caused by the client.
type errBadRequest struct {
	err error
}

func (e errBadRequest) Error() string {
	return e.err.Error()
}

func (e errBadRequest) Unwrap() error {
	return e.err
}

func badRequest(format string, args ...interface{}) error {
	return errBadRequest{fmt.Errorf(format, args...)}
}

type Backend struct {
	db       *core.CoreDB
	engine   *workflow.Engine
	roles    *auth.Resolver
	sessions *scs.SessionManager
	wiki     string // used for references without wiki
	log      zerolog.Logger
}

func NewBackend(db *core.CoreDB, engine *workflow.Engine, roles *auth.Resolver, sessions *scs.SessionManager, wiki string, log zerolog.Logger) *Backend {
	return &Backend{
		db:       db,
		engine:   engine,
		roles:    roles,
		sessions: sessions,
		wiki:     wiki,
		log:      log.With().Str("component", "backend").Logger(),
	}
}

// request holds what a handler needs besides the http.Request
type request struct {
	ctx  context.Context
	user core.DBUser // nil if not logged in
	req  *http.Request
}

func (b *Backend) middleware(requireLoggedIn bool, f func(http.ResponseWriter, *request, httprouter.Params) error) httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {

		var r = &request{
			ctx: req.Context(),
			req: req,
		}

		user, err := b.currentUser(r.ctx)
		if err != nil {
			b.writeError(w, req, err)
			return
		}
		r.user = user

		if requireLoggedIn && r.user == nil {
			b.writeError(w, req, core.ErrAuth)
			return
		}

		if err := f(w, r, params); err != nil {
			b.writeError(w, req, err)
		}
	}
}

func (b *Backend) currentUser(ctx context.Context) (core.DBUser, error) {
	var id = b.sessions.GetInt(ctx, sessionUserID)
	if id == 0 {
		return nil, nil
	}
	user, err := b.db.GetUser(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil // deleted in the meantime
	}
	return user, err
}

// Handler returns the router, wrapped by the session middleware.
func (b *Backend) Handler() http.Handler {

	var router = httprouter.New()

	// public
	router.POST("/login", b.middleware(false, b.login))
	router.GET("/document/*ref", b.middleware(false, b.getDocument))
	router.GET("/status/*ref", b.middleware(false, b.status))

	// private
	router.POST("/copy/*ref", b.middleware(true, b.copyDocument))
	router.DELETE("/document/*ref", b.middleware(true, b.deleteDocument))
	router.PUT("/document/*ref", b.middleware(true, b.saveDocument))
	router.POST("/logout", b.middleware(true, b.logout))
	router.POST("/move/*ref", b.middleware(true, b.moveDocument))
	router.POST("/workflow/:action/*ref", b.middleware(true, b.workflowAction))
	router.GET("/workflows", b.middleware(true, b.getWorkflows))
	router.PUT("/workflows", b.middleware(true, b.putWorkflows))

	return b.sessions.LoadAndSave(router)
}

// parseRef parses the catch-all parameter, which starts with a slash.
func (b *Backend) parseRef(param string) (core.Ref, error) {
	ref, err := core.ParseRef(strings.TrimPrefix(param, "/"))
	if err != nil {
		return core.Ref{}, errBadRequest{err}
	}
	if ref.Wiki == "" {
		ref.Wiki = b.wiki
	}
	return ref, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (b *Backend) writeError(w http.ResponseWriter, req *http.Request, err error) {

	var status int
	var bad errBadRequest

	switch {
	case errors.As(err, &bad):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrAuth):
		status = http.StatusUnauthorized
	case errors.Is(err, core.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrExists):
		status = http.StatusConflict
	case errors.Is(err, workflow.ErrNotSupported):
		status = http.StatusNotImplemented
	default:
		status = http.StatusInternalServerError
		b.log.Error().Err(err).Str("method", req.Method).Str("path", req.URL.Path).Msg("request failed")
	}

	_ = writeJSON(w, status, errorResponse{Error: err.Error()})
}
