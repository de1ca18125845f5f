package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
)

// MigrationDirection is the direction migrations are applied in.
type MigrationDirection string

// Supported migration directions.
const (
	MigrationUp   MigrationDirection = "up"
	MigrationDown MigrationDirection = "down"
)

// Migration is a single schema change, with the SQL to apply and revert it.
type Migration struct {
	ID   int
	Name string
	Up   string
	Down string
}

// Execer runs SQL statements.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

var fileRx = regexp.MustCompile(`^(\d+)-([\w-]+)\.(up|down)\.sql$`)

// LoadMigrations reads all migration files from the root of fsys, and returns
// them sorted by ID.
func LoadMigrations(fsys fs.FS) ([]*Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed reading migrations directory: %w", err)
	}

	byID := map[int]*Migration{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := fileRx.FindStringSubmatch(entry.Name())
		if match == nil {
			return nil, fmt.Errorf("invalid migration file name '%s'", entry.Name())
		}

		id, err := strconv.Atoi(match[1])
		if err != nil {
			return nil, fmt.Errorf("invalid migration ID in '%s': %w", entry.Name(), err)
		}

		data, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed reading migration file '%s': %w", entry.Name(), err)
		}

		m, ok := byID[id]
		if !ok {
			m = &Migration{ID: id, Name: match[2]}
			byID[id] = m
		}
		if MigrationDirection(match[3]) == MigrationUp {
			m.Up = string(data)
		} else {
			m.Down = string(data)
		}
	}

	migrations := make([]*Migration, 0, len(byID))
	for _, m := range byID {
		migrations = append(migrations, m)
	}
	slices.SortFunc(migrations, func(a, b *Migration) int { return a.ID - b.ID })

	return migrations, nil
}

// RunMigrations applies migrations in the given direction until the migration
// with name to is reached, or all of them if to is "all". Applied migrations
// are recorded in the _migrations table, so running the same plan twice is a
// no-op.
func RunMigrations(
	ctx context.Context, d Execer, migrations []*Migration,
	dir MigrationDirection, to string, logger *slog.Logger,
) error {
	_, err := d.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (
		id INTEGER PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("failed creating migrations table: %w", err)
	}

	applied, err := appliedMigrations(ctx, d)
	if err != nil {
		return err
	}

	plan := slices.Clone(migrations)
	if dir == MigrationDown {
		slices.Reverse(plan)
	}

	for _, m := range plan {
		_, isApplied := applied[m.ID]
		switch {
		case dir == MigrationUp && !isApplied:
			if _, err = d.ExecContext(ctx, m.Up); err != nil {
				return fmt.Errorf("failed applying migration %d-%s: %w", m.ID, m.Name, err)
			}
			if _, err = d.ExecContext(ctx,
				`INSERT INTO _migrations (id, name) VALUES (?, ?)`, m.ID, m.Name); err != nil {
				return fmt.Errorf("failed recording migration %d-%s: %w", m.ID, m.Name, err)
			}
			logger.Debug("applied migration", "id", m.ID, "name", m.Name)
		case dir == MigrationDown && isApplied:
			if _, err = d.ExecContext(ctx, m.Down); err != nil {
				return fmt.Errorf("failed reverting migration %d-%s: %w", m.ID, m.Name, err)
			}
			if _, err = d.ExecContext(ctx, `DELETE FROM _migrations WHERE id = ?`, m.ID); err != nil {
				return fmt.Errorf("failed removing migration record %d-%s: %w", m.ID, m.Name, err)
			}
			logger.Debug("reverted migration", "id", m.ID, "name", m.Name)
		}

		if m.Name == to {
			break
		}
	}

	return nil
}

func appliedMigrations(ctx context.Context, d Execer) (applied map[int]struct{}, rerr error) {
	rows, err := d.QueryContext(ctx, `SELECT id FROM _migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed querying applied migrations: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			rerr = fmt.Errorf("failed closing migrations rows: %w", err)
		}
	}()

	applied = map[int]struct{}{}
	for rows.Next() {
		var id int
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed scanning migration ID: %w", err)
		}
		applied[id] = struct{}{}
	}

	return applied, rows.Err() //nolint:wrapcheck // It's fine.
}
