package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	actx "go.hackfix.me/awesome/app/context"
	"go.hackfix.me/awesome/db/queries"
	"go.hackfix.me/awesome/web/common"
	api "go.hackfix.me/awesome/web/server/api/v1"
	"go.hackfix.me/awesome/web/server/handler"
	"go.hackfix.me/awesome/web/server/middleware"
	"go.hackfix.me/awesome/web/template"
	"go.hackfix.me/awesome/xtime"
)

// Server is a wrapper around http.Server with some custom behavior.
type Server struct {
	*http.Server
	logger *slog.Logger
}

// New returns a new web Server instance that will listen on addr.
func New(appCtx *actx.Context, addr string) (*Server, error) {
	logger := appCtx.Logger.With("component", "web-server")
	h, err := SetupHandlers(appCtx, logger)
	if err != nil {
		return nil, err
	}

	srv := &Server{
		Server: &http.Server{
			Handler:           h,
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      time.Minute,
		},
		logger: logger,
	}

	return srv, nil
}

// ListenAndServe starts the HTTP server. It stores the actual listen address,
// which is convenient when the address is dynamically determined by the system
// (e.g. ':0').
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		//nolint:wrapcheck // This is fine.
		return err
	}

	s.Addr = ln.Addr().String()
	s.logger.Info("started listener", "address", s.Addr)

	//nolint:wrapcheck // This is fine.
	return s.Serve(ln)
}

// SetupHandlers configures the server HTTP handlers. Web routes are served
// through the request pipeline, while static files and metrics are served
// directly.
func SetupHandlers(appCtx *actx.Context, logger *slog.Logger) (http.Handler, error) {
	cfg := appCtx.Config
	cfg.SetDefaults()

	secret, err := queries.GetSessionSecret(appCtx.DB.NewContext(), appCtx.DB)
	if err != nil {
		return nil, err
	}
	sessions, err := common.NewSessionCodec(appCtx.DB, secret, appCtx.TimeNow, logger)
	if err != nil {
		return nil, err
	}

	locale, err := xtime.LocaleFromString(cfg.Templates.Locale.V)
	if err != nil {
		return nil, err
	}
	ago := xtime.NewAgoFormatter(appCtx.TimeNow, locale)

	engine := template.New(appCtx.FS, template.Options{
		Path:       appCtx.DataPath(cfg.Templates.Path.V),
		LeftDelim:  cfg.Templates.VariableStart.V,
		RightDelim: cfg.Templates.VariableEnd.V,
		AutoEscape: cfg.Templates.AutoEscape.V,
		AutoReload: cfg.Templates.AutoReload.V,
		Filters:    map[string]any{"datetime": ago.Filter},
	}, logger.With("component", "template"))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := middleware.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("failed registering metrics: %w", err)
	}

	pipeline := handler.NewPipeline(logger).Log().ParseBody().Auth(sessions).Render(engine)
	mux := http.NewServeMux()
	for _, route := range api.New(appCtx, sessions, logger).Routes() {
		mux.Handle(route.Pattern,
			middleware.Chain(pipeline.Handle(route.Handler), metrics.Instrument(route.Pattern)))
	}

	staticDir := appCtx.DataPath(cfg.Server.StaticDir.V)
	logger.Info("serving static files", "path", staticDir)
	mux.Handle("GET /static/", middleware.Chain(
		http.StripPrefix("/static", http.FileServer(&staticFS{fs: appCtx.FS, root: staticDir})),
		middleware.Logger(logger), metrics.Instrument("GET /static/"),
	))
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return mux, nil
}
