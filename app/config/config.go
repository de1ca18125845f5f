package config

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"

	"go.hackfix.me/awesome/xtime"
)

// Config represents the application configuration, backed by a filesystem for
// persistence.
type Config struct {
	Server    Server
	Session   Session
	Templates Templates

	fs   vfs.FileSystem
	path string
}

// NewConfig creates a new Config instance with the specified filesystem
// and configuration file path.
func NewConfig(fs vfs.FileSystem, path string) *Config {
	return &Config{fs: fs, path: path}
}

// Load reads and parses the configuration file from the filesystem.
// If the file doesn't exist, it initializes with an empty configuration.
func (c *Config) Load() error {
	configJSON, err := vfs.ReadFile(c.fs, c.path)
	if err != nil && !vfs.IsErrNotExist(err) {
		return fmt.Errorf("failed reading configuration file: %w", err)
	}

	// Ensure that unmarshalling JSON doesn't fail if the file doesn't exist or is empty.
	if len(bytes.TrimSpace(configJSON)) == 0 {
		configJSON = []byte("{}")
	}

	if err = json.Unmarshal(configJSON, c); err != nil {
		return fmt.Errorf("failed parsing configuration file: %w", err)
	}

	return nil
}

// Path returns the filesystem path where the configuration is stored.
func (c *Config) Path() string {
	return c.path
}

// Save writes the current configuration to the filesystem as JSON.
func (c *Config) Save() error {
	if err := c.fs.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed creating configuration directory: %w", err)
	}
	configJSON, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed serializing configuration data: %w", err)
	}
	if err = vfs.WriteFile(c.fs, c.path, configJSON, 0o644); err != nil {
		return fmt.Errorf("failed writing configuration file: %w", err)
	}

	return nil
}

// Server defines configuration options specific to the HTTP server.
type Server struct {
	// Address is the network address in [host]:port format the server will listen on.
	Address sql.Null[string] `json:"address"`
	// StaticDir is the directory static files are served from under /static/.
	// Relative paths are resolved from the data directory.
	StaticDir sql.Null[string] `json:"static_dir"`
}

// Session defines options of the user sessions.
type Session struct {
	// MaxAge is the amount of time a session cookie is valid for.
	// It serializes from/to xtime.Duration string values. Minimum value: 1 minute.
	MaxAge sql.Null[time.Duration] `json:"max_age"`
}

// Templates defines options of the HTML template engine.
type Templates struct {
	// Path is the directory containing the template files. Relative paths are
	// resolved from the data directory.
	Path sql.Null[string] `json:"path"`
	// VariableStart and VariableEnd are the template action delimiters.
	VariableStart sql.Null[string] `json:"variable_start"`
	VariableEnd   sql.Null[string] `json:"variable_end"`
	// AutoEscape enables contextual HTML escaping of rendered values.
	AutoEscape sql.Null[bool] `json:"autoescape"`
	// AutoReload parses templates again when their files change.
	AutoReload sql.Null[bool] `json:"auto_reload"`
	// Locale is the language of relative timestamps. Valid values: en, zh.
	Locale sql.Null[string] `json:"locale"`
}

type cfgWrapper struct {
	Server    srvCfgWrapper     `json:"server"`
	Session   sessionCfgWrapper `json:"session"`
	Templates tplCfgWrapper     `json:"templates"`
}
type srvCfgWrapper struct {
	Address   string `json:"address,omitempty"`
	StaticDir string `json:"static_dir,omitempty"`
}
type sessionCfgWrapper struct {
	MaxAge string `json:"max_age,omitempty"`
}
type tplCfgWrapper struct {
	Path          string `json:"path,omitempty"`
	VariableStart string `json:"variable_start,omitempty"`
	VariableEnd   string `json:"variable_end,omitempty"`
	AutoEscape    *bool  `json:"autoescape,omitempty"`
	AutoReload    *bool  `json:"auto_reload,omitempty"`
	Locale        string `json:"locale,omitempty"`
}

// MarshalJSON implements custom JSON marshaling to convert sql.Null values
// to their underlying types, omitting invalid/null fields from the output.
func (c Config) MarshalJSON() ([]byte, error) {
	w := cfgWrapper{}

	if c.Server.Address.Valid {
		w.Server.Address = c.Server.Address.V
	}
	if c.Server.StaticDir.Valid {
		w.Server.StaticDir = c.Server.StaticDir.V
	}

	if c.Session.MaxAge.Valid {
		w.Session.MaxAge = xtime.FormatDuration(c.Session.MaxAge.V, time.Minute)
	}

	if c.Templates.Path.Valid {
		w.Templates.Path = c.Templates.Path.V
	}
	if c.Templates.VariableStart.Valid {
		w.Templates.VariableStart = c.Templates.VariableStart.V
	}
	if c.Templates.VariableEnd.Valid {
		w.Templates.VariableEnd = c.Templates.VariableEnd.V
	}
	if c.Templates.AutoEscape.Valid {
		w.Templates.AutoEscape = &c.Templates.AutoEscape.V
	}
	if c.Templates.AutoReload.Valid {
		w.Templates.AutoReload = &c.Templates.AutoReload.V
	}
	if c.Templates.Locale.Valid {
		w.Templates.Locale = c.Templates.Locale.V
	}

	//nolint:wrapcheck // This is fine.
	return json.Marshal(w)
}

// UnmarshalJSON implements custom JSON unmarshaling to convert plain values
// into sql.Null types and parse duration strings into time.Duration values.
func (c *Config) UnmarshalJSON(data []byte) error {
	var w cfgWrapper
	if err := json.Unmarshal(data, &w); err != nil {
		//nolint:wrapcheck // This is fine.
		return err
	}

	if w.Server.Address != "" {
		c.Server.Address = sql.Null[string]{V: w.Server.Address, Valid: true}
	}
	if w.Server.StaticDir != "" {
		c.Server.StaticDir = sql.Null[string]{V: w.Server.StaticDir, Valid: true}
	}

	if w.Session.MaxAge != "" {
		dur, err := xtime.ParseDuration(w.Session.MaxAge)
		if err != nil {
			return fmt.Errorf("failed parsing session max age: %w", err)
		}
		if dur < time.Minute {
			return fmt.Errorf("session max age must be at least 1m, got %s", w.Session.MaxAge)
		}
		c.Session.MaxAge = sql.Null[time.Duration]{V: dur, Valid: true}
	}

	if w.Templates.Path != "" {
		c.Templates.Path = sql.Null[string]{V: w.Templates.Path, Valid: true}
	}
	if w.Templates.VariableStart != "" {
		c.Templates.VariableStart = sql.Null[string]{V: w.Templates.VariableStart, Valid: true}
	}
	if w.Templates.VariableEnd != "" {
		c.Templates.VariableEnd = sql.Null[string]{V: w.Templates.VariableEnd, Valid: true}
	}
	if w.Templates.AutoEscape != nil {
		c.Templates.AutoEscape = sql.Null[bool]{V: *w.Templates.AutoEscape, Valid: true}
	}
	if w.Templates.AutoReload != nil {
		c.Templates.AutoReload = sql.Null[bool]{V: *w.Templates.AutoReload, Valid: true}
	}
	if w.Templates.Locale != "" {
		if _, err := xtime.LocaleFromString(w.Templates.Locale); err != nil {
			return err //nolint:wrapcheck // The error is descriptive enough.
		}
		c.Templates.Locale = sql.Null[string]{V: w.Templates.Locale, Valid: true}
	}

	return nil
}

// SetDefaults sets default configuration values if they weren't set already.
func (c *Config) SetDefaults() {
	if !c.Server.Address.Valid {
		c.Server.Address = sql.Null[string]{V: "127.0.0.1:9000", Valid: true}
	}
	if !c.Server.StaticDir.Valid {
		c.Server.StaticDir = sql.Null[string]{V: "static", Valid: true}
	}
	if !c.Session.MaxAge.Valid {
		c.Session.MaxAge = sql.Null[time.Duration]{V: 24 * time.Hour, Valid: true}
	}
	if !c.Templates.Path.Valid {
		c.Templates.Path = sql.Null[string]{V: "templates", Valid: true}
	}
	if !c.Templates.VariableStart.Valid {
		c.Templates.VariableStart = sql.Null[string]{V: "{{", Valid: true}
	}
	if !c.Templates.VariableEnd.Valid {
		c.Templates.VariableEnd = sql.Null[string]{V: "}}", Valid: true}
	}
	if !c.Templates.AutoEscape.Valid {
		c.Templates.AutoEscape = sql.Null[bool]{V: true, Valid: true}
	}
	if !c.Templates.AutoReload.Valid {
		c.Templates.AutoReload = sql.Null[bool]{V: true, Valid: true}
	}
	if !c.Templates.Locale.Valid {
		c.Templates.Locale = sql.Null[string]{V: xtime.LocaleEN.Name, Valid: true}
	}
}
