package handler

import (
	"context"
	"fmt"
	"log/slog"

	"go.hackfix.me/awesome/web/server/types"
)

// Log creates a stage that logs the method and path of every request before
// passing it on.
func Log(logger *slog.Logger) Stage {
	return StageFunc(func(ctx context.Context, req *types.Request, next Next) (*types.Response, error) {
		logger.Info(fmt.Sprintf("Request: %s %s", req.Method, req.Path()), "request_id", req.ID)
		return next(ctx, req)
	})
}
