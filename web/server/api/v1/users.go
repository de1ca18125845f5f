package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.hackfix.me/awesome/crypto"
	"go.hackfix.me/awesome/db/models"
	dbtypes "go.hackfix.me/awesome/db/types"
	"go.hackfix.me/awesome/web/server/types"
)

// UsersGet returns all registered users.
func (h *Handler) UsersGet(ctx context.Context, _ *types.Request) (types.Result, error) {
	users, err := models.Users(ctx, h.appCtx.DB, nil)
	if err != nil {
		return nil, err
	}

	return types.JSON{Value: map[string]any{"users": users}}, nil
}

// UsersPost registers a new user with the name, email and password sent in the
// request body. On success, the user is signed in.
func (h *Handler) UsersPost(ctx context.Context, req *types.Request) (types.Result, error) {
	name, _ := req.Body.Get("name")
	email, _ := req.Body.Get("email")
	password, _ := req.Body.Get("password")

	name = strings.TrimSpace(name)
	email = models.NormalizeEmail(email)
	switch {
	case name == "":
		return types.StatusMessage{Code: http.StatusBadRequest, Message: "invalid name"}, nil
	case !models.ValidEmail(email):
		return types.StatusMessage{Code: http.StatusBadRequest, Message: "invalid email"}, nil
	}
	if err := models.ValidatePassword(password); err != nil {
		return types.StatusMessage{Code: http.StatusBadRequest, Message: err.Error()}, nil
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Email: email, Name: name, PasswordHash: hash}
	if err = user.Save(ctx, h.appCtx.DB, false); err != nil {
		var errDup dbtypes.DuplicateError
		if errors.As(err, &errDup) {
			return types.StatusMessage{Code: http.StatusBadRequest, Message: "email is already registered"}, nil
		}
		return nil, err
	}

	h.logger.Info("registered user", "email", email, "user_id", user.ID, "request_id", req.ID)

	return h.userResponse(user)
}
