package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"

	"go.hackfix.me/awesome/app/config"
	actx "go.hackfix.me/awesome/app/context"
	"go.hackfix.me/awesome/cli"
	"go.hackfix.me/awesome/db"
)

// dbFileName is the name of the SQLite database file in the data directory.
const dbFileName = "awesome.db"

// App is the application.
type App struct {
	name       string
	configPath string
	ctx        *actx.Context
	cli        *cli.CLI
	// the logging level is set via the CLI, if the app was initialized with the
	// WithLogger option.
	logLevel *slog.LevelVar
}

// New initializes a new application. configPath and dataDir are the default
// locations of the configuration file and the data directory, which can be
// overridden via CLI flags or environment variables.
func New(name, configPath, dataDir string, opts ...Option) (*App, error) {
	version, err := actx.GetVersion()
	if err != nil {
		return nil, err
	}

	defaultCtx := &actx.Context{
		Ctx:     context.Background(),
		FS:      memoryfs.New(),
		Logger:  slog.Default(),
		TimeNow: time.Now,
		Version: version,
	}
	app := &App{name: name, configPath: configPath, ctx: defaultCtx}

	for _, opt := range opts {
		opt(app)
	}

	ver := fmt.Sprintf("%s %s", app.name, app.ctx.Version.String())
	app.cli, err = cli.New(configPath, dataDir, ver)
	if err != nil {
		return nil, err
	}

	return app, nil
}

// Run initializes the application environment and starts execution of the
// application.
func (app *App) Run(args []string) error {
	if err := app.loadEnv(); err != nil {
		return err
	}

	if err := app.cli.Parse(args); err != nil {
		return err
	}

	if app.logLevel != nil {
		app.logLevel.Set(app.cli.Log.Level)
		slog.SetLogLoggerLevel(app.cli.Log.Level)
	}

	if app.ctx.Config == nil {
		app.ctx.Config = config.NewConfig(app.ctx.FS, app.cli.ConfigFile)
	}
	if err := app.ctx.Config.Load(); err != nil {
		return err
	}
	app.cli.ApplyConfig(app.ctx.Config)

	app.ctx.DataDir = app.cli.DataDir
	if app.ctx.DB == nil {
		if err := app.openDB(); err != nil {
			return err
		}
	}

	if err := app.cli.Execute(app.ctx); err != nil {
		return err
	}

	return nil
}

// loadEnv reads a .env file next to the default configuration file, and sets
// any variables that aren't set in the process environment already.
func (app *App) loadEnv() error {
	if app.ctx.Env == nil {
		return nil
	}

	envPath := filepath.Join(filepath.Dir(app.configPath), ".env")
	f, err := app.ctx.FS.Open(envPath)
	if err != nil {
		if vfs.IsErrNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed opening env file: %w", err)
	}
	defer f.Close()

	vars, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("failed parsing env file '%s': %w", envPath, err)
	}

	for k, v := range vars {
		if app.ctx.Env.Get(k) != "" {
			continue
		}
		if err = app.ctx.Env.Set(k, v); err != nil {
			return fmt.Errorf("failed setting environment variable '%s': %w", k, err)
		}
	}

	return nil
}

func (app *App) openDB() error {
	if err := app.ctx.FS.MkdirAll(app.ctx.DataDir, 0o700); err != nil {
		return fmt.Errorf("failed creating data directory: %w", err)
	}

	d, err := db.Open(app.ctx.Ctx, app.ctx.DataPath(dbFileName), app.ctx.TimeNow)
	if err != nil {
		return err
	}
	app.ctx.DB = d

	return nil
}
