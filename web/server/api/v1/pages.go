package api

import (
	"context"
	"net/http"

	"go.hackfix.me/awesome/db/models"
	"go.hackfix.me/awesome/web/server/types"
)

// Index renders the home page.
func (h *Handler) Index(_ context.Context, req *types.Request) (types.Result, error) {
	return types.FromMap(map[string]any{
		types.TemplateKey: "index.html",
		"user":            req.User,
	}), nil
}

// SignIn renders the sign in page.
func (h *Handler) SignIn(_ context.Context, req *types.Request) (types.Result, error) {
	return types.Template{Name: "signin.html", Context: map[string]any{"user": req.User}}, nil
}

// Register renders the registration page.
func (h *Handler) Register(_ context.Context, req *types.Request) (types.Result, error) {
	return types.Template{Name: "register.html", Context: map[string]any{"user": req.User}}, nil
}

// Manage redirects to the default management page.
func (h *Handler) Manage(context.Context, *types.Request) (types.Result, error) {
	return types.Text("redirect:/manage/users"), nil
}

// ManageUsers renders the user management page. Only admins reach it.
func (h *Handler) ManageUsers(ctx context.Context, req *types.Request) (types.Result, error) {
	users, err := models.Users(ctx, h.appCtx.DB, nil)
	if err != nil {
		return nil, err
	}

	return types.Template{Name: "manage_users.html", Context: map[string]any{
		"user":  req.User,
		"users": users,
	}}, nil
}

// Health reports that the server is up.
func (h *Handler) Health(context.Context, *types.Request) (types.Result, error) {
	return types.Status(http.StatusOK), nil
}

// Version returns the application version.
func (h *Handler) Version(context.Context, *types.Request) (types.Result, error) {
	if h.appCtx.Version == nil {
		return types.Text("dev"), nil
	}
	return types.Text(h.appCtx.Version.String()), nil
}
