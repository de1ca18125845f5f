package api

import (
	"log/slog"
	"time"

	actx "go.hackfix.me/awesome/app/context"
	"go.hackfix.me/awesome/web/common"
	"go.hackfix.me/awesome/web/server/handler"
)

// Route is a request pattern served by a pipeline handler.
type Route struct {
	Pattern string
	Handler handler.Func
}

// Handler is the web endpoint handler.
type Handler struct {
	appCtx   *actx.Context
	sessions *common.SessionCodec
	maxAge   time.Duration
	logger   *slog.Logger
}

// New returns a new Handler. The session maximum age is read from the
// application configuration.
func New(appCtx *actx.Context, sessions *common.SessionCodec, logger *slog.Logger) *Handler {
	maxAge := 24 * time.Hour
	if appCtx.Config != nil && appCtx.Config.Session.MaxAge.Valid {
		maxAge = appCtx.Config.Session.MaxAge.V
	}

	return &Handler{appCtx: appCtx, sessions: sessions, maxAge: maxAge, logger: logger}
}

// Routes returns all web routes served through the request pipeline.
func (h *Handler) Routes() []Route {
	return []Route{
		{"GET /{$}", h.Index},
		{"GET /signin", h.SignIn},
		{"GET /register", h.Register},
		{"GET /signout", h.SignOut},
		{"POST /api/authenticate", h.Authenticate},
		{"GET /api/users", h.UsersGet},
		{"POST /api/users", h.UsersPost},
		{"GET /api/version", h.Version},
		{"GET /manage/{$}", h.Manage},
		{"GET /manage/users", h.ManageUsers},
		{"GET /healthz", h.Health},
	}
}
