package context

import (
	"context"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"

	"go.hackfix.me/awesome/app/config"
	"go.hackfix.me/awesome/db"
)

// Context contains common objects used by the application. It is passed around
// the application to avoid direct dependencies on external systems, and make
// testing easier.
type Context struct {
	Ctx     context.Context  // global context
	FS      vfs.FileSystem   // filesystem
	Env     Environment      // process environment
	Logger  *slog.Logger     // global logger
	TimeNow func() time.Time // current time
	DB      *db.DB
	Config  *config.Config
	// DataDir is the directory where the database, templates and static files
	// are stored by default.
	DataDir string

	// Standard streams
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Metadata
	Version *VersionInfo
}

// DataPath resolves p relative to the data directory, unless it's absolute.
func (c *Context) DataPath(p string) string {
	if path.IsAbs(p) {
		return p
	}
	return path.Join(c.DataDir, p)
}

// Environment provides access to the process environment variables.
type Environment interface {
	Get(key string) string
	Set(key, val string) error
}
