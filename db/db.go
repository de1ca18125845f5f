package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"strings"
	"time"

	//nolint:revive,nolintlint // Idiomatic way of loading DB libraries.
	_ "github.com/glebarez/go-sqlite"

	"go.hackfix.me/awesome/db/migrator"
	"go.hackfix.me/awesome/db/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// busyTimeout is how long SQLite waits for a lock before returning SQLITE_BUSY.
const busyTimeout = 5 * time.Second

// DB is the SQLite store of users and application metadata.
type DB struct {
	*sql.DB
	ctx        context.Context
	timeNow    func() time.Time
	path       string
	migrations []*migrator.Migration
}

var _ types.Querier = (*DB)(nil)

// Open opens the SQLite database at path, and loads the embedded schema
// migrations. The schema is only created by Init.
func Open(ctx context.Context, path string, timeNow func() time.Time) (*DB, error) {
	sqliteDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed opening SQLite database: %w", err)
	}

	if isMemory(path) {
		// Closing the last connection of an in-memory database discards it.
		// See https://github.com/mattn/go-sqlite3#faq
		sqliteDB.SetMaxIdleConns(10)
		sqliteDB.SetConnMaxLifetime(time.Duration(math.Inf(1)))
	}

	pragmas := []string{
		`PRAGMA foreign_keys = ON`,
		fmt.Sprintf(`PRAGMA busy_timeout = %d`, busyTimeout.Milliseconds()),
	}
	for _, p := range pragmas {
		if _, err = sqliteDB.ExecContext(ctx, p); err != nil {
			return nil, fmt.Errorf("failed setting '%s': %w", p, err)
		}
	}

	migrationsDir, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed getting migrations directory: %w", err)
	}
	migrations, err := migrator.LoadMigrations(migrationsDir)
	if err != nil {
		return nil, err
	}

	return &DB{DB: sqliteDB, ctx: ctx, path: path, timeNow: timeNow, migrations: migrations}, nil
}

// Init creates the database schema and stores the application version and the
// secret used to sign session cookies. Either all of it is written, or nothing.
func (d *DB) Init(appVersion string, sessionSecret []byte, logger *slog.Logger) (rerr error) {
	dblogger := logger.With("path", d.path)
	dblogger.Debug("initializing database")

	ctx := d.NewContext()
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed starting transaction: %w", err)
	}
	defer func() {
		if rerr != nil {
			rerr = errors.Join(rerr, tx.Rollback())
		}
	}()

	err = migrator.RunMigrations(ctx, tx, d.migrations, migrator.MigrationUp, "all", dblogger)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO _meta (version, session_secret) VALUES (?, ?)`,
		appVersion, sessionSecret)
	if err != nil {
		return fmt.Errorf("failed inserting into _meta: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed committing transaction: %w", err)
	}

	dblogger.Info("database initialized", "version", appVersion)

	return nil
}

// NewContext returns a context derived from the main database context, which
// isn't canceled along with it.
func (d *DB) NewContext() context.Context {
	return context.WithoutCancel(d.ctx)
}

// TimeNow returns the current time used for record timestamps.
func (d *DB) TimeNow() time.Time {
	return d.timeNow()
}

func isMemory(path string) bool {
	return strings.Contains(path, "mode=memory") || strings.Contains(path, ":memory:")
}
