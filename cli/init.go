package cli

import (
	"fmt"

	actx "go.hackfix.me/awesome/app/context"
	aerrors "go.hackfix.me/awesome/app/errors"
	"go.hackfix.me/awesome/crypto"
	"go.hackfix.me/awesome/db/queries"
	"go.hackfix.me/awesome/web/template"
)

const sessionSecretSize = 32

// The Init command creates the initial artifacts: the database with a new
// session secret, the configuration file with default values, and the default
// templates.
type Init struct{}

// Run the init command.
func (c *Init) Run(appCtx *actx.Context) error {
	version, err := queries.Version(appCtx.DB.NewContext(), appCtx.DB)
	if err != nil {
		return aerrors.NewWithCause("failed reading database version", err)
	}
	if version.Valid {
		return fmt.Errorf("awesome is already initialized with version %s", version.V)
	}

	secret, err := crypto.RandomData(sessionSecretSize)
	if err != nil {
		return fmt.Errorf("failed generating session secret: %w", err)
	}

	if err = appCtx.DB.Init(appCtx.Version.Semantic, secret, appCtx.Logger); err != nil {
		return aerrors.NewWithCause("failed initializing database", err)
	}

	cfg := appCtx.Config
	cfg.SetDefaults()
	if err = cfg.Save(); err != nil {
		return aerrors.NewWithCause("failed saving configuration", err, "path", cfg.Path())
	}

	tplDir := appCtx.DataPath(cfg.Templates.Path.V)
	if err = template.InstallDefaults(appCtx.FS, tplDir); err != nil {
		return aerrors.NewWithCause("failed installing default templates", err, "path", tplDir)
	}
	staticDir := appCtx.DataPath(cfg.Server.StaticDir.V)
	if err = appCtx.FS.MkdirAll(staticDir, 0o755); err != nil {
		return aerrors.NewWithCause("failed creating static directory", err, "path", staticDir)
	}

	appCtx.Logger.Info("initialized awesome", "version", appCtx.Version.Semantic,
		"config_file", cfg.Path(), "data_dir", appCtx.DataDir)

	return nil
}

func checkInitialized(appCtx *actx.Context) error {
	version, err := queries.Version(appCtx.DB.NewContext(), appCtx.DB)
	if err != nil {
		return aerrors.NewWithCause("failed reading database version", err)
	}
	if !version.Valid {
		return aerrors.NewWith("awesome is not initialized", "hint", "run 'awesome init' first")
	}

	return nil
}
