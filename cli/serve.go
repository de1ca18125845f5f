package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	actx "go.hackfix.me/awesome/app/context"
	"go.hackfix.me/awesome/web/server"
)

// Serve starts the web server.
type Serve struct {
	Address       string        `help:"[host]:port to listen on. Default: 127.0.0.1:9000"`
	SessionMaxAge time.Duration `type:"duration" help:"Amount of time session cookies are valid for, e.g. 12h or 7d. Default: 1d"` //nolint:lll // Long struct tags are unavoidable.
	NoAutoReload  bool          `help:"Parse templates only once at startup, instead of when they change."`
}

// Run the serve command.
func (c *Serve) Run(appCtx *actx.Context) error {
	if err := checkInitialized(appCtx); err != nil {
		return err
	}

	appCtx.Config.SetDefaults()
	srv, err := server.New(appCtx, appCtx.Config.Server.Address.V)
	if err != nil {
		return err
	}

	// Gracefully shutdown the server if a process signal is received, or the
	// main context is done.
	// See https://dev.to/mokiat/proper-http-shutdown-in-go-3fji
	srvDone := make(chan error)
	go func() {
		srvErr := srv.ListenAndServe()
		slog.Debug("web server shutdown")
		srvDone <- srvErr
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case s := <-sigCh:
		slog.Debug("process received signal", "signal", s)
	case <-appCtx.Ctx.Done():
		slog.Debug("app context is done")
	case srvErr := <-srvDone:
		if srvErr != nil && !errors.Is(srvErr, http.ErrServerClosed) {
			return fmt.Errorf("web server error: %w", srvErr)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(appCtx.Ctx), 10*time.Second)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("failed shutting down web server: %w", err)
	}

	return nil
}
