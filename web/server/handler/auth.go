package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.hackfix.me/awesome/web/common"
	"go.hackfix.me/awesome/web/server/types"
)

const (
	// AdminPathPrefix is the path prefix of pages only admin users can access.
	AdminPathPrefix = "/manage/"
	// SignInPath is where users are redirected to if they aren't allowed to
	// access an admin page.
	SignInPath = "/signin"
)

// Authenticate creates a stage that loads the user identified by the session
// cookie into the request. A missing or invalid cookie results in an anonymous
// request, which is fine everywhere except for admin pages: requests to those
// are redirected to the sign in page, unless they come from an admin user.
func Authenticate(verifier CookieVerifier, logger *slog.Logger) Stage {
	return StageFunc(func(ctx context.Context, req *types.Request, next Next) (*types.Response, error) {
		logger.Debug("checking user", "method", req.Method, "path", req.Path(), "request_id", req.ID)

		req.User = nil
		if cookie := req.CookieValue(common.CookieName); cookie != "" {
			user, err := verifier.Verify(ctx, cookie)
			if err != nil {
				return nil, fmt.Errorf("failed verifying session cookie: %w", err)
			}
			if user != nil {
				logger.Info("set current user", "email", user.Email, "request_id", req.ID)
				req.User = user
			}
		}

		if strings.HasPrefix(req.Path(), AdminPathPrefix) && (req.User == nil || !req.User.Admin) {
			return types.NewRedirect(SignInPath), nil
		}

		return next(ctx, req)
	})
}
