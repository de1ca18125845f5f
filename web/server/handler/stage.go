package handler

import (
	"context"

	"go.hackfix.me/awesome/db/models"
	"go.hackfix.me/awesome/web/server/types"
)

// Func is a route handler. It returns the result that will be converted into
// the HTTP response.
type Func func(ctx context.Context, req *types.Request) (types.Result, error)

// Next calls the rest of the pipeline and returns its response.
type Next func(ctx context.Context, req *types.Request) (*types.Response, error)

// Stage is one link of the pipeline. It must either call next exactly once, or
// return a response of its own without calling it.
type Stage interface {
	Process(ctx context.Context, req *types.Request, next Next) (*types.Response, error)
}

// StageFunc is an adapter to allow the use of ordinary functions as stages.
type StageFunc func(ctx context.Context, req *types.Request, next Next) (*types.Response, error)

var _ Stage = StageFunc(nil)

// Process calls f(ctx, req, next).
func (f StageFunc) Process(ctx context.Context, req *types.Request, next Next) (*types.Response, error) {
	return f(ctx, req, next)
}

// CookieVerifier resolves a session cookie into the user it belongs to. It
// returns a nil user if the cookie is invalid, and an error only if the lookup
// itself failed.
type CookieVerifier interface {
	Verify(ctx context.Context, cookie string) (*models.User, error)
}

// Renderer renders a named template with the given variables.
type Renderer interface {
	Render(name string, ctx map[string]any) (string, error)
}
