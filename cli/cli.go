package cli

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"go.hackfix.me/awesome/app/config"
	actx "go.hackfix.me/awesome/app/context"
)

// CLI is the command line interface of awesome.
type CLI struct {
	Init  Init  `kong:"cmd,help='Initialize the database, configuration and default templates.'"`
	Serve Serve `kong:"cmd,help='Start the web server.'"`
	User  User  `kong:"cmd,help='Manage users.'"`

	Log struct {
		Level slog.Level `enum:"DEBUG,INFO,WARN,ERROR" default:"INFO" help:"Set the app logging level."`
	} `embed:"" prefix:"log-"`
	// NOTE: Configuration is managed independently from the CLI, so
	// kong.ConfigFlag is deliberately not used.
	ConfigFile string           `kong:"default='${configFile}',help='Path to the configuration file.'"`
	DataDir    string           `kong:"default='${dataDir}',help='Path to the directory where the database, templates and static files are stored.'"` //nolint:lll // Long struct tags are unavoidable.
	Version    kong.VersionFlag `kong:"help='Output version and exit.'"`

	kong *kong.Kong
	kctx *kong.Context
}

// New initializes the command-line interface.
func New(configFilePath, dataDir, version string) (*CLI, error) {
	c := &CLI{}
	kparser, err := kong.New(c,
		kong.Name("awesome"),
		kong.Description("A small web application with user accounts."),
		kong.UsageOnError(),
		kong.DefaultEnvars("AWESOME"),
		kong.NamedMapper("duration", DurationMapper{}),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			Summary:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"configFile": configFilePath,
			"dataDir":    dataDir,
			"version":    version,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed creating the Kong parser: %w", err)
	}

	c.kong = kparser

	return c, nil
}

// Execute starts the command execution. Parse must be called before this method.
func (c *CLI) Execute(appCtx *actx.Context) error {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	c.kong.Stdout = appCtx.Stdout
	c.kong.Stderr = appCtx.Stderr

	//nolint:wrapcheck // This is fine.
	return c.kctx.Run(appCtx)
}

// Parse the given command line arguments. This method must be called before
// Execute.
func (c *CLI) Parse(args []string) error {
	kctx, err := c.kong.Parse(args)
	if err != nil {
		return fmt.Errorf("failed parsing CLI arguments: %w", err)
	}
	c.kctx = kctx

	return nil
}

// Command returns the full path of the executed command.
func (c *CLI) Command() string {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	cmdPath := []string{}
	for _, p := range c.kctx.Path {
		if p.Command != nil {
			cmdPath = append(cmdPath, p.Command.Name)
		}
	}

	return strings.Join(cmdPath, " ")
}

// ApplyConfig overrides configuration values with the ones set via CLI flags
// or environment variables.
func (c *CLI) ApplyConfig(cfg *config.Config) {
	if c.Serve.Address != "" {
		cfg.Server.Address = sql.Null[string]{V: c.Serve.Address, Valid: true}
	}
	if c.Serve.SessionMaxAge > 0 {
		cfg.Session.MaxAge = sql.Null[time.Duration]{V: c.Serve.SessionMaxAge, Valid: true}
	}
	if c.Serve.NoAutoReload {
		cfg.Templates.AutoReload = sql.Null[bool]{V: false, Valid: true}
	}
}
