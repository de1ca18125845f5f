package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.hackfix.me/awesome/crypto"
	"go.hackfix.me/awesome/db/models"
	dbtypes "go.hackfix.me/awesome/db/types"
	"go.hackfix.me/awesome/web/common"
	"go.hackfix.me/awesome/web/server/types"
)

const errInvalidCredentials = "invalid email or password"

// Authenticate signs in a user with the email and password sent in the request
// body. On success, the user is returned as JSON along with a new session
// cookie.
func (h *Handler) Authenticate(ctx context.Context, req *types.Request) (types.Result, error) {
	email, _ := req.Body.Get("email")
	password, _ := req.Body.Get("password")
	email = models.NormalizeEmail(email)
	if email == "" {
		return types.StatusMessage{Code: http.StatusBadRequest, Message: "invalid email"}, nil
	}
	if password == "" {
		return types.StatusMessage{Code: http.StatusBadRequest, Message: "invalid password"}, nil
	}

	user := &models.User{Email: email}
	if err := user.Load(ctx, h.appCtx.DB); err != nil {
		var errNoRes dbtypes.NoResultError
		if errors.As(err, &errNoRes) {
			h.logger.Debug("sign in with unknown email", "email", email, "request_id", req.ID)
			return types.StatusMessage{Code: http.StatusBadRequest, Message: errInvalidCredentials}, nil
		}
		return nil, err
	}

	if err := crypto.CheckPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, crypto.ErrPasswordMismatch) {
			h.logger.Debug("sign in with wrong password", "email", email, "request_id", req.ID)
			return types.StatusMessage{Code: http.StatusBadRequest, Message: errInvalidCredentials}, nil
		}
		return nil, err
	}

	h.logger.Info("user signed in", "email", email, "request_id", req.ID)

	return h.userResponse(user)
}

// SignOut removes the session cookie, and redirects back to the referring page.
func (h *Handler) SignOut(_ context.Context, req *types.Request) (types.Result, error) {
	location := req.Referer()
	if location == "" {
		location = "/"
	}

	if req.User != nil {
		h.logger.Info("user signed out", "email", req.User.Email, "request_id", req.ID)
	}

	return types.NewRedirect(location).SetCookie(common.ClearCookie()), nil
}

// userResponse returns the user as JSON, with a session cookie for them.
func (h *Handler) userResponse(user *models.User) (*types.Response, error) {
	data, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("failed marshalling user: %w", err)
	}

	resp := types.NewResponse(http.StatusOK, types.ContentTypeJSON, data)
	resp.SetCookie(h.sessions.Cookie(user, h.maxAge))

	return resp, nil
}
