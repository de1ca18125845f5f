package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.hackfix.me/awesome/db/types"
)

// ErrNotInitialized is returned when the database metadata is missing.
var ErrNotInitialized = errors.New("database is not initialized")

// GetSessionSecret retrieves the secret used to sign session cookies.
func GetSessionSecret(ctx context.Context, d types.Querier) ([]byte, error) {
	var secret []byte
	err := d.QueryRowContext(ctx, `SELECT session_secret FROM _meta`).Scan(&secret)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("failed reading session secret: %w", err)
	}

	if len(secret) == 0 {
		return nil, errors.New("session secret is empty")
	}

	return secret, nil
}

// Version returns the application version the database was initialized with.
// If the returned sql.Null value is invalid, it indicates that the database
// hasn't been initialized.
func Version(ctx context.Context, d types.Querier) (version sql.Null[string], err error) {
	var exists bool
	err = d.QueryRowContext(ctx,
		`SELECT COUNT(*) > 0 FROM sqlite_master WHERE type = 'table' AND name = '_meta'`,
	).Scan(&exists)
	if err != nil || !exists {
		return version, err //nolint:wrapcheck // It's fine.
	}

	err = d.QueryRowContext(ctx, `SELECT version FROM _meta`).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return version, fmt.Errorf("failed reading version: %w", err)
	}

	return version, nil
}
